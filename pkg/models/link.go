package models

import (
	"time"
)

// Link is a short link tracked by the session.
type Link struct {
	ID             int       `json:"id"`
	ShortURL       string    `json:"short_url"`
	Alias          string    `json:"alias"`
	IntendedTarget string    `json:"intended_target"`
	ResolvedDomain string    `json:"resolved_domain"`
	TokenID        int       `json:"token_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LinkCreate is the provider payload for POST /create
type LinkCreate struct {
	URL       string     `json:"url" binding:"required,url"`
	Alias     string     `json:"alias" binding:"required,alpha,min=1,max=30"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// LinkChange is the provider payload for PATCH /change
type LinkChange struct {
	Domain string `json:"domain"`
	URL    string `json:"url" binding:"required,url"`
	Alias  string `json:"alias" binding:"required"`
}

// LinkData is the body of a successful provider response
type LinkData struct {
	URL    string `json:"url"`
	Alias  string `json:"alias"`
	Domain string `json:"domain"`
}

// ProviderResponse wraps both provider response shapes:
// {"data": {...}} on success and {"errors": [...]} otherwise.
type ProviderResponse struct {
	Data   *LinkData `json:"data,omitempty"`
	Errors []string  `json:"errors,omitempty"`
}
