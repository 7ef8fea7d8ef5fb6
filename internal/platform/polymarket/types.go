package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") because the
// Gamma API is inconsistent about how it encodes boolean flags.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// ---------------------------------------------------------------------------
// Gamma API DTOs
// ---------------------------------------------------------------------------

// APIToken is one outcome token as embedded in a market response.
type APIToken struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
	Winner  bool      `json:"winner"`
}

// APIMarket is a market as returned by the Gamma API. Outcome data arrives
// either as an embedded tokens array or as three parallel JSON-encoded string
// arrays (outcomes, outcomePrices, clobTokenIds), depending on the endpoint.
type APIMarket struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	Slug             string    `json:"slug"`
	ConditionID      string    `json:"conditionId"`
	Active           flexBool  `json:"active"`
	Closed           bool      `json:"closed"`
	Funded           flexBool  `json:"funded"`
	NegRisk          bool      `json:"negRisk"`
	Spread           flexFloat `json:"spread"`
	RewardsMinSize   flexFloat `json:"rewardsMinSize"`
	RewardsMaxSpread flexFloat `json:"rewardsMaxSpread"`

	Tokens []APIToken `json:"tokens"`

	// Parallel JSON-string arrays, e.g. "[\"Yes\",\"No\"]".
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
}

// ToExchange converts the DTO into a domain Exchange. It fails when the
// market carries no outcome tokens in either encoding, so callers never see
// an Exchange with an empty position-token list.
func (m *APIMarket) ToExchange() (domain.Exchange, error) {
	ex := domain.Exchange{
		ID:               m.ID,
		Slug:             m.Slug,
		Question:         m.Question,
		Active:           bool(m.Active) && !m.Closed,
		Funded:           bool(m.Funded),
		NegRisk:          m.NegRisk,
		Spread:           float64(m.Spread),
		RewardsMinSize:   float64(m.RewardsMinSize),
		RewardsMaxSpread: float64(m.RewardsMaxSpread),
	}

	if len(m.Tokens) > 0 {
		ex.PositionTokens = make([]domain.PositionToken, 0, len(m.Tokens))
		for _, t := range m.Tokens {
			ex.PositionTokens = append(ex.PositionTokens, domain.PositionToken{
				TokenID: t.TokenID,
				Name:    t.Outcome,
				Price:   strconv.FormatFloat(float64(t.Price), 'f', -1, 64),
			})
		}
		return ex, nil
	}

	tokens, err := m.parallelTokens()
	if err != nil {
		return domain.Exchange{}, err
	}
	if len(tokens) == 0 {
		return domain.Exchange{}, fmt.Errorf("market %s has no position tokens", m.ID)
	}
	ex.PositionTokens = tokens
	return ex, nil
}

// parallelTokens decodes the outcomes/outcomePrices/clobTokenIds string
// arrays into position tokens.
func (m *APIMarket) parallelTokens() ([]domain.PositionToken, error) {
	if m.Outcomes == "" || m.ClobTokenIDs == "" {
		return nil, nil
	}

	var names, prices, ids []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return nil, fmt.Errorf("decode outcomes for market %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return nil, fmt.Errorf("decode clobTokenIds for market %s: %w", m.ID, err)
	}
	if m.OutcomePrices != "" {
		if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
			return nil, fmt.Errorf("decode outcomePrices for market %s: %w", m.ID, err)
		}
	}
	if len(names) != len(ids) {
		return nil, fmt.Errorf("market %s: %d outcomes but %d token ids", m.ID, len(names), len(ids))
	}

	out := make([]domain.PositionToken, 0, len(names))
	for i := range names {
		pt := domain.PositionToken{TokenID: ids[i], Name: names[i]}
		if i < len(prices) {
			pt.Price = prices[i]
		}
		out = append(out, pt)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// CLOB API DTOs
// ---------------------------------------------------------------------------

// APIOrderPlacement is the CLOB response to an order submission.
type APIOrderPlacement struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg,omitempty"`
	OrderID  string `json:"orderID,omitempty"`
	Status   string `json:"status,omitempty"`
}

// APIOrder is an order as returned by the CLOB order-status endpoint.
type APIOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	CreatedAt    string `json:"created_at"`
}

// ToSnapshot converts the DTO into a domain order snapshot.
func (o *APIOrder) ToSnapshot() domain.OrderSnapshot {
	return domain.OrderSnapshot{
		ID:           o.ID,
		Status:       domain.OrderStatus(strings.ToLower(o.Status)),
		MarketID:     o.Market,
		AssetID:      o.AssetID,
		Side:         domain.OrderSide(strings.ToUpper(o.Side)),
		Price:        o.Price,
		OriginalSize: o.OriginalSize,
		SizeMatched:  o.SizeMatched,
		CreatedAt:    o.CreatedAt,
	}
}

// ---------------------------------------------------------------------------
// WebSocket DTOs
// ---------------------------------------------------------------------------

// WSCommand is a subscribe/unsubscribe frame sent to the market data feed.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

// WSTrade is a last-trade-price event from the market channel.
type WSTrade struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// WSPriceChange is an incremental price-level event from the market channel.
type WSPriceChange struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
}
