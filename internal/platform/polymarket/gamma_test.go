package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

func TestGammaExchangeByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/512345", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "512345",
			"question": "Will it rain tomorrow?",
			"slug": "will-it-rain-tomorrow",
			"active": true,
			"funded": true,
			"tokens": [
				{"token_id": "111", "outcome": "Yes", "price": 0.55},
				{"token_id": "222", "outcome": "No", "price": 0.45}
			]
		}`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	ex, err := g.ExchangeByID(context.Background(), "512345")
	require.NoError(t, err)
	assert.Equal(t, "512345", ex.ID)
	assert.Len(t, ex.PositionTokens, 2)
}

func TestGammaExchangeByID_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	_, err := g.ExchangeByID(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestGammaExchangesBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "rain-tomorrow", r.URL.Query().Get("slug"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "1", "slug": "rain-tomorrow", "outcomes": "[\"Yes\",\"No\"]", "clobTokenIds": "[\"11\",\"12\"]"},
			{"id": "2", "slug": "rain-tomorrow", "outcomes": "[\"Yes\",\"No\"]", "clobTokenIds": "[\"21\",\"22\"]"}
		]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	exs, err := g.ExchangesBySlug(context.Background(), "rain-tomorrow")
	require.NoError(t, err)
	require.Len(t, exs, 2)
	assert.Equal(t, "1", exs[0].ID)
}

func TestGammaExchangesBySlug_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	exs, err := g.ExchangesBySlug(context.Background(), "no-such-slug")
	require.NoError(t, err)
	assert.Empty(t, exs)
}

func TestGammaRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"slow down"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	_, err := g.ExchangeByID(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, domain.CodeRateLimitExceeded, domain.CodeOf(err))
}
