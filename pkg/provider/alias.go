package provider

import (
	"crypto/rand"
	"errors"
	"sync"
)

const aliasChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// AliasGenerator generates alias candidates.
// Implementations should be safe for concurrent use.
type AliasGenerator interface {
	Generate(length int) (string, error)
}

type letterGenerator struct{}

// NewLetterGenerator returns a generator of random ASCII-letter aliases.
func NewLetterGenerator() AliasGenerator {
	return letterGenerator{}
}

func (letterGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = aliasChars[int(b[i])%len(aliasChars)]
	}
	return string(b), nil
}

// aliasSet tracks aliases handed out by this process.
type aliasSet struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func newAliasSet() *aliasSet {
	return &aliasSet{used: make(map[string]struct{})}
}

// reserve returns a fresh alias of the given length that this process has
// not used yet.
func (s *aliasSet) reserve(gen AliasGenerator, length int) (string, error) {
	const maxDraws = 100
	for i := 0; i < maxDraws; i++ {
		alias, err := gen.Generate(length)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		if _, taken := s.used[alias]; !taken {
			s.used[alias] = struct{}{}
			s.mu.Unlock()
			return alias, nil
		}
		s.mu.Unlock()
	}
	return "", errors.New("could not draw an unused alias")
}

func (s *aliasSet) release(alias string) {
	s.mu.Lock()
	delete(s.used, alias)
	s.mu.Unlock()
}
