package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// GammaClient is the REST client for the market-metadata API. It serves
// instrument resolution: lookup by opaque id or by URL slug.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a Gamma API client.
//
// baseURL is the API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExchangeByID fetches a single market by its opaque id. A 404 surfaces as a
// NOT_FOUND coded error.
func (g *GammaClient) ExchangeByID(ctx context.Context, id string) (domain.Exchange, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Exchange{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}

	ex, err := m.ToExchange()
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("polymarket/gamma: %w", err)
	}
	return ex, nil
}

// ExchangesBySlug fetches all markets listed under the given URL slug. The
// same logical market can be listed more than once; callers pick. An empty
// result set is returned as-is, not as an error.
func (g *GammaClient) ExchangesBySlug(ctx context.Context, slug string) ([]domain.Exchange, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets by slug %s: %w", slug, err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	out := make([]domain.Exchange, 0, len(markets))
	for i := range markets {
		ex, err := markets[i].ToExchange()
		if err != nil {
			return nil, fmt.Errorf("polymarket/gamma: %w", err)
		}
		out = append(out, ex)
	}
	return out, nil
}

// doGet sends an unauthenticated GET request and returns the raw body.
// Non-2xx statuses become coded domain errors.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestBuild, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.FromStatus(resp.StatusCode, body)
	}
	return body, nil
}
