package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"redirect-mgmt-go/pkg/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if len(tokens) == 0 {
		tokens = []string{"tok-1", "tok-2"}
	}
	return NewClient(Config{
		BaseURL:        srv.URL,
		ShortDomain:    "tinyurl.com",
		Timeout:        200 * time.Millisecond,
		BackoffInitial: time.Millisecond,
	}, NewTokenPool(tokens))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload models.LinkCreate

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		writeJSON(w, http.StatusOK, models.ProviderResponse{Data: &models.LinkData{
			URL:    "example.com/page",
			Alias:  gotPayload.Alias,
			Domain: "tinyurl.com",
		}})
	})

	link, err := c.Create(context.Background(), "https://example.com/page", nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Len(t, gotPayload.Alias, 5)
	assert.Equal(t, "https://example.com/page", gotPayload.URL)
	assert.Equal(t, gotPayload.Alias, link.Alias)
	assert.Equal(t, "https://tinyurl.com/"+gotPayload.Alias, link.ShortURL)
	assert.Equal(t, "https://example.com/page", link.IntendedTarget)
	assert.Equal(t, "example.com", link.ResolvedDomain)
	assert.Equal(t, 1, link.TokenID)
}

func TestCreateAliasCollisionGrowsAlias(t *testing.T) {
	var mu sync.Mutex
	var aliases []string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var p models.LinkCreate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))

		mu.Lock()
		aliases = append(aliases, p.Alias)
		n := len(aliases)
		mu.Unlock()

		if n < 3 {
			writeJSON(w, http.StatusUnprocessableEntity, models.ProviderResponse{Errors: []string{AliasUnavailable}})
			return
		}
		writeJSON(w, http.StatusOK, models.ProviderResponse{Data: &models.LinkData{
			URL: p.URL, Alias: p.Alias, Domain: "tinyurl.com",
		}})
	})

	link, err := c.Create(context.Background(), "https://example.com", nil)
	require.NoError(t, err)

	require.Len(t, aliases, 3)
	assert.Len(t, aliases[0], 5)
	assert.Len(t, aliases[1], 6)
	assert.Len(t, aliases[2], 7)
	assert.NotEqual(t, aliases[0], aliases[1])
	assert.Equal(t, aliases[2], link.Alias)
}

func TestCreateCollisionBoundedByContext(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, models.ProviderResponse{Errors: []string{AliasUnavailable}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Create(ctx, "https://example.com", nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Greater(t, calls.Load(), int32(1))
}

func TestCreateValidationErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, models.ProviderResponse{
			Errors: []string{"The url field must be a valid URL.", "Expiry is in the past."},
		})
	})

	_, err := c.Create(context.Background(), "https://example.com", nil)
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindCreation, pe.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.Status)
	assert.Len(t, pe.Fields, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateTimeoutIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := c.Create(context.Background(), "https://example.com", nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestCreateTransportFailureIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ShortDomain: "tinyurl.com"}, NewTokenPool([]string{"tok"}))
	_, err := c.Create(context.Background(), "https://example.com", nil)
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
}

func TestCreateMissingData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 0})
	})

	_, err := c.Create(context.Background(), "https://example.com", nil)
	require.Error(t, err)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestUpdateRetriesRejections(t *testing.T) {
	var calls atomic.Int32
	var got models.LinkChange

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/change", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusUnprocessableEntity, models.ProviderResponse{Errors: []string{"try again"}})
			return
		}
		writeJSON(w, http.StatusOK, models.ProviderResponse{Data: &models.LinkData{
			URL: got.URL, Alias: got.Alias, Domain: "tinyurl.com",
		}})
	})

	link, err := c.Update(context.Background(), "abcde", "https://fallback.net/x", UpdateOptions{Retries: 3})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, models.LinkChange{Domain: "tinyurl.com", URL: "https://fallback.net/x", Alias: "abcde"}, got)
	assert.Equal(t, "fallback.net", link.ResolvedDomain)
	assert.Equal(t, "https://tinyurl.com/abcde", link.ShortURL)
}

func TestUpdateExhaustedRejections(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, models.ProviderResponse{Errors: []string{"Alias not found"}})
	})

	_, err := c.Update(context.Background(), "abcde", "https://example.com", UpdateOptions{Retries: 2})
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindUpdate, pe.Kind)
	assert.Equal(t, http.StatusNotFound, pe.Status)
	assert.Equal(t, []string{"Alias not found"}, pe.Fields)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUpdateTimeoutsBecomeNetworkError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := c.Update(context.Background(), "abcde", "https://example.com",
		UpdateOptions{Retries: 3, Timeout: 30 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestUpdateTransportFailureNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, BackoffInitial: time.Millisecond}, NewTokenPool([]string{"tok"}))
	_, err := c.Update(context.Background(), "abcde", "https://example.com", UpdateOptions{Retries: 3})
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
}

func TestTokenSelectionChangesHeader(t *testing.T) {
	var gotAuth atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.ProviderResponse{Data: &models.LinkData{URL: "https://a.com", Alias: "abcde"}})
	})

	require.NoError(t, c.Tokens().Select(2))
	link, err := c.Update(context.Background(), "abcde", "https://a.com", UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-2", gotAuth.Load())
	assert.Equal(t, 2, link.TokenID)

	assert.Error(t, c.Tokens().Select(3))
	assert.Error(t, c.Tokens().Select(0))
}

func TestCheckTarget(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	c := NewClient(Config{BaseURL: "http://unused"}, nil)

	assert.NoError(t, c.CheckTarget(context.Background(), target.URL+"/ok"))

	err := c.CheckTarget(context.Background(), target.URL+"/missing")
	require.Error(t, err)
	assert.Equal(t, KindRequest, KindOf(err))
}
