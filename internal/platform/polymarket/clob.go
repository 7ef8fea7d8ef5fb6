// Package polymarket contains the REST and WebSocket clients for the
// Polymarket settlement backend: Gamma for market metadata, the CLOB API for
// order submission and status, and the market-data feed.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethanvb/clobtrader/internal/crypto"
	"github.com/ethanvb/clobtrader/internal/domain"
)

// ClobClient is the REST client for the CLOB (central limit order book) API:
// order submission, status fetch, cancellation, and price proposals.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	creds      *crypto.APICreds
}

// NewClobClient creates a CLOB client. signer provides the wallet address
// for L2 headers and the ClobAuth signature for DeriveAPIKey; creds may be
// nil until DeriveAPIKey has run.
func NewClobClient(baseURL string, signer *crypto.Signer, creds *crypto.APICreds) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
		creds:  creds,
	}
}

// SubmitOrder posts a signed order. The response carries the backend's order
// id when the order was accepted onto the book or matched; a response without
// an id signals the resting/price-proposal path.
func (c *ClobClient) SubmitOrder(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (*APIOrderPlacement, error) {
	body := map[string]any{
		"order":     order,
		"owner":     order.Maker,
		"orderType": string(orderType),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: submit order: %w", err)
	}

	var placement APIOrderPlacement
	if err := json.Unmarshal(respBody, &placement); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode placement: %w", err)
	}
	if !placement.Success && placement.ErrorMsg != "" {
		return nil, domain.Errorf(domain.CodeRequestFailed, "order rejected: %s", placement.ErrorMsg)
	}
	return &placement, nil
}

// GetOrder fetches the live status of a single order by id.
func (c *ClobClient) GetOrder(ctx context.Context, orderID string) (domain.OrderSnapshot, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/data/order/"+orderID, nil)
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("polymarket/clob: get order %s: %w", orderID, err)
	}

	var o APIOrder
	if err := json.Unmarshal(respBody, &o); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("polymarket/clob: decode order: %w", err)
	}
	return o.ToSnapshot(), nil
}

// CancelOrder cancels a single resting order by id.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	respBody, err := c.doRequest(ctx, http.MethodDelete, "/order", map[string]any{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}

	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return domain.Errorf(domain.CodeRequestFailed, "cancel failed: %s", result.ErrorMsg)
	}
	return nil
}

// SubmitPriceProposal records a resting price proposal for an order the
// backend did not assign an id to, and returns the response's raw shape.
func (c *ClobClient) SubmitPriceProposal(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (json.RawMessage, error) {
	body := map[string]any{
		"order":     order,
		"owner":     order.Maker,
		"orderType": string(orderType),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/price-proposal", body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: submit price proposal: %w", err)
	}
	return json.RawMessage(respBody), nil
}

// DeriveAPIKey runs the L1 auth flow: sign a ClobAuth message and exchange
// it for HMAC credentials, which are stored on the client for subsequent
// authenticated requests.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	timestamp := time.Now().Unix()
	sig, err := c.signer.SignAuth(timestamp, 0)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: %w: %v", domain.ErrRequestBuild, err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", "0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: derive api key: %w", domain.FromStatus(resp.StatusCode, respBody))
	}

	var auth struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.creds = &crypto.APICreds{
		Key:        auth.APIKey,
		Secret:     auth.Secret,
		Passphrase: auth.Passphrase,
	}
	return nil
}

// doRequest builds, authenticates, sends, and reads one CLOB API request.
// Non-2xx statuses become coded domain errors.
func (c *ClobClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", domain.ErrRequestBuild, err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestBuild, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.creds != nil {
		// Authenticated headers sign over the wallet address; credentials
		// without a wallet cannot produce them.
		if c.signer == nil {
			return nil, domain.NewError(domain.CodeEnvironment,
				"api credentials configured without a signing wallet")
		}
		for k, v := range c.creds.Headers(c.signer.Address().Hex(), method, path, bodyStr) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.FromStatus(resp.StatusCode, respBody)
	}
	return respBody, nil
}
