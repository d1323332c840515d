package provider

import (
	"fmt"
	"sync"

	"redirect-mgmt-go/pkg/models"
)

// TokenPool holds the configured bearer tokens and which one is in use.
// The session selects tokens while monitor repairs read them, so access is
// guarded.
type TokenPool struct {
	mu       sync.RWMutex
	tokens   []string
	selected int // index into tokens
}

// NewTokenPool creates a pool with the first token selected.
func NewTokenPool(tokens []string) *TokenPool {
	return &TokenPool{tokens: append([]string(nil), tokens...)}
}

// Select switches to the token with the given 1-based id.
func (p *TokenPool) Select(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id < 1 || id > len(p.tokens) {
		return fmt.Errorf("token (%d) is invalid", id)
	}
	p.selected = id - 1
	return nil
}

// Current returns the selected token and its 1-based id. ok is false when
// the pool is empty.
func (p *TokenPool) Current() (token string, id int, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.tokens) == 0 {
		return "", 0, false
	}
	return p.tokens[p.selected], p.selected + 1, true
}

// List returns every token with its id and selection state.
func (p *TokenPool) List() []models.Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Token, len(p.tokens))
	for i, t := range p.tokens {
		out[i] = models.Token{ID: i + 1, Value: t, Selected: i == p.selected}
	}
	return out
}

// Len returns the number of configured tokens.
func (p *TokenPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tokens)
}
