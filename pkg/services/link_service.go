package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/store"
)

var (
	// ErrInvalidURL is a target the emulator refuses to redirect to.
	ErrInvalidURL = errors.New("url is not valid")
	// ErrWrongDomain is a change request for a domain this server does not own.
	ErrWrongDomain = errors.New("domain is not valid")
)

// LinkService handles business logic for the provider emulator.
type LinkService struct {
	store  *store.Store
	domain string
}

// NewLinkService creates a service issuing short links on domain.
func NewLinkService(s *store.Store, domain string) *LinkService {
	return &LinkService{store: s, domain: domain}
}

// Domain is the short link domain reported in every response.
func (s *LinkService) Domain() string {
	return s.domain
}

// CreateLink registers an alias. A taken alias returns store.ErrAliasTaken.
func (s *LinkService) CreateLink(ctx context.Context, req models.LinkCreate) (*models.ShortLink, error) {
	target, err := checkTarget(req.URL)
	if err != nil {
		return nil, err
	}
	return s.store.CreateLink(ctx, models.ShortLink{
		Alias:     req.Alias,
		URL:       target,
		Domain:    s.domain,
		ExpiresAt: req.ExpiresAt,
	})
}

// ChangeLink points an existing alias at a new target.
func (s *LinkService) ChangeLink(ctx context.Context, req models.LinkChange) (*models.ShortLink, error) {
	if req.Domain != "" && !strings.EqualFold(req.Domain, s.domain) {
		return nil, fmt.Errorf("%w: %s", ErrWrongDomain, req.Domain)
	}
	target, err := checkTarget(req.URL)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateLink(ctx, req.Alias, target)
}

// Resolve returns the link served at alias.
func (s *LinkService) Resolve(ctx context.Context, alias string) (*models.ShortLink, error) {
	return s.store.GetLink(ctx, alias)
}

// SetPreview toggles the preview page for alias.
func (s *LinkService) SetPreview(ctx context.Context, alias string, on bool) (*models.ShortLink, error) {
	return s.store.SetPreview(ctx, alias, on)
}

func checkTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return raw, nil
}
