package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://example.com/path?q=1", "example.com"},
		{"subdomain", "https://www.example.com", "example.com"},
		{"deep subdomain", "http://a.b.c.example.org/x", "example.org"},
		{"country tld simplification", "https://www.example.co.uk", "co.uk"},
		{"port dropped", "http://short.test:8080/abc", "short.test"},
		{"upper case", "https://WWW.Example.COM", "example.com"},
		{"single label", "http://localhost:9000", "localhost"},
		{"no host", "not a url", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDomain(tt.in))
		})
	}
}

func TestResolveDomainIdempotent(t *testing.T) {
	urls := []string{
		"https://www.example.com/a/b",
		"http://x.y.z.example.net:81",
		"https://www.example.co.uk",
		"https://tinyurl.com/abcde",
	}
	for _, u := range urls {
		first := ResolveDomain(u)
		assert.Equal(t, first, ResolveDomain(DomainAsURL(ResolveDomain(DomainAsURL(first)))), u)
	}
}

func TestAliasFromShortURL(t *testing.T) {
	assert.Equal(t, "abcde", AliasFromShortURL("https://tinyurl.com/abcde"))
	assert.Equal(t, "abcde", AliasFromShortURL("https://tinyurl.com/abcde/"))
	assert.Equal(t, "", AliasFromShortURL("https://tinyurl.com"))
}

func TestValidateURL(t *testing.T) {
	got, err := ValidateURL("  example.com/page ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", got)

	got, err = ValidateURL("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", got)

	_, err = ValidateURL("   ")
	assert.Error(t, err)

	_, err = ValidateURL("ftp://example.com")
	assert.Error(t, err)
}

func TestLoadList(t *testing.T) {
	dir := t.TempDir()

	t.Run("separator", func(t *testing.T) {
		path := filepath.Join(dir, "tokens.txt")
		require.NoError(t, os.WriteFile(path, []byte("one, two ,,three"), 0o644))

		items, err := LoadList(path, ",")
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, items)
	})

	t.Run("newline default", func(t *testing.T) {
		path := filepath.Join(dir, "fallbacks.txt")
		require.NoError(t, os.WriteFile(path, []byte("https://a.com\n\nhttps://b.com\n"), 0o644))

		items, err := LoadList(path, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.com", "https://b.com"}, items)
	})

	t.Run("escaped separator", func(t *testing.T) {
		path := filepath.Join(dir, "escaped.txt")
		require.NoError(t, os.WriteFile(path, []byte("a\nb"), 0o644))

		items, err := LoadList(path, `\n`)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, items)
	})

	t.Run("newline sentinel", func(t *testing.T) {
		path := filepath.Join(dir, "sentinel.txt")
		require.NoError(t, os.WriteFile(path, []byte("tok1\ntok2\n"), 0o644))

		items, err := LoadList(path, "__NEWLINE__")
		require.NoError(t, err)
		assert.Equal(t, []string{"tok1", "tok2"}, items)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "fallbacks.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- https://a.com\n- https://b.com\n"), 0o644))

		items, err := LoadList(path, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.com", "https://b.com"}, items)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadList(filepath.Join(dir, "nope"), "")
		assert.Error(t, err)
	})
}
