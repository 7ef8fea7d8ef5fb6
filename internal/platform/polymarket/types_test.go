package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

func TestAPIMarketToExchange_EmbeddedTokens(t *testing.T) {
	raw := `{
		"id": "512345",
		"question": "Will it rain tomorrow?",
		"slug": "will-it-rain-tomorrow",
		"active": "true",
		"closed": false,
		"funded": true,
		"negRisk": false,
		"spread": "0.02",
		"rewardsMinSize": 50,
		"tokens": [
			{"token_id": "111", "outcome": "Yes", "price": 0.55},
			{"token_id": "222", "outcome": "No", "price": "0.45"}
		]
	}`

	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	ex, err := m.ToExchange()
	require.NoError(t, err)

	assert.Equal(t, "512345", ex.ID)
	assert.True(t, ex.Active)
	assert.True(t, ex.Funded)
	assert.InDelta(t, 0.02, ex.Spread, 1e-9)
	require.Len(t, ex.PositionTokens, 2)
	assert.Equal(t, "111", ex.PositionTokens[0].TokenID)
	assert.Equal(t, "Yes", ex.PositionTokens[0].Name)
	assert.Equal(t, "0.45", ex.PositionTokens[1].Price)
}

func TestAPIMarketToExchange_ParallelArrays(t *testing.T) {
	m := APIMarket{
		ID:            "600001",
		Question:      "Binary outcome?",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.61","0.39"]`,
		ClobTokenIDs:  `["1001","1002"]`,
	}

	ex, err := m.ToExchange()
	require.NoError(t, err)
	require.Len(t, ex.PositionTokens, 2)
	assert.Equal(t, "1001", ex.PositionTokens[0].TokenID)
	assert.Equal(t, "No", ex.PositionTokens[1].Name)
	assert.Equal(t, "0.39", ex.PositionTokens[1].Price)
}

func TestAPIMarketToExchange_ClosedMarketInactive(t *testing.T) {
	m := APIMarket{
		ID:           "600002",
		Active:       true,
		Closed:       true,
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["1","2"]`,
	}

	ex, err := m.ToExchange()
	require.NoError(t, err)
	assert.False(t, ex.Active)
}

func TestAPIMarketToExchange_NoTokens(t *testing.T) {
	m := APIMarket{ID: "600003"}

	_, err := m.ToExchange()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no position tokens")
}

func TestAPIMarketToExchange_MismatchedArrays(t *testing.T) {
	m := APIMarket{
		ID:           "600004",
		Outcomes:     `["Yes","No","Maybe"]`,
		ClobTokenIDs: `["1","2"]`,
	}

	_, err := m.ToExchange()
	require.Error(t, err)
}

func TestAPIOrderToSnapshot(t *testing.T) {
	o := APIOrder{
		ID:           "0xabc",
		Status:       "LIVE",
		Market:       "0xcond",
		AssetID:      "111",
		Side:         "buy",
		Price:        "0.55",
		OriginalSize: "100",
		SizeMatched:  "40",
	}

	snap := o.ToSnapshot()
	assert.Equal(t, domain.OrderStatusLive, snap.Status)
	assert.Equal(t, domain.OrderSideBuy, snap.Side)
	assert.Equal(t, "40", snap.SizeMatched)
}

func TestFlexBoolVariants(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"TRUE"`, true},
		{`"false"`, false},
		{`"1"`, true},
	}
	for _, tc := range cases {
		var f flexBool
		require.NoError(t, json.Unmarshal([]byte(tc.in), &f), tc.in)
		assert.Equal(t, tc.want, bool(f), tc.in)
	}
}
