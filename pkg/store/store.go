// Package store keeps the provider emulator's aliases and API tokens in
// memory.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"redirect-mgmt-go/pkg/models"
)

var (
	ErrAliasTaken = errors.New("alias taken")
	ErrNotFound   = errors.New("link not found")
)

type Store struct {
	mu       sync.RWMutex
	links    map[string]models.ShortLink
	previews map[string]bool
	tokens   map[string]struct{}
	now      func() time.Time
}

// New creates a store accepting the given API tokens. Aliases listed in
// previews serve the preview page from the moment they are created.
func New(tokens, previews []string) *Store {
	s := &Store{
		links:    make(map[string]models.ShortLink),
		previews: make(map[string]bool),
		tokens:   make(map[string]struct{}),
		now:      time.Now,
	}
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
	for _, a := range previews {
		s.previews[a] = true
	}
	return s
}

// HasToken reports whether token is an accepted API key.
func (s *Store) HasToken(_ context.Context, token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// CreateLink stores a new alias. Expired aliases are free to reuse.
func (s *Store) CreateLink(_ context.Context, link models.ShortLink) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.links[link.Alias]; ok && !existing.Expired(now) {
		return nil, ErrAliasTaken
	}
	link.CreatedAt = now
	link.UpdatedAt = now
	link.Preview = s.previews[link.Alias]
	s.links[link.Alias] = link
	return &link, nil
}

// GetLink returns a live alias.
func (s *Store) GetLink(_ context.Context, alias string) (*models.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[alias]
	if !ok || link.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &link, nil
}

// UpdateLink points alias at url.
func (s *Store) UpdateLink(_ context.Context, alias, url string) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[alias]
	if !ok || link.Expired(s.now()) {
		return nil, ErrNotFound
	}
	link.URL = url
	link.UpdatedAt = s.now()
	s.links[alias] = link
	return &link, nil
}

// SetPreview turns the preview page for alias on or off.
func (s *Store) SetPreview(_ context.Context, alias string, on bool) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[alias]
	if !ok {
		return nil, ErrNotFound
	}
	link.Preview = on
	s.links[alias] = link
	if on {
		s.previews[alias] = true
	} else {
		delete(s.previews, alias)
	}
	return &link, nil
}

// Len is the number of stored aliases, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}
