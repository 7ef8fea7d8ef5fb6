package domain

import (
	"strconv"
	"strings"
)

// Exchange is one tradable prediction-market instrument: a single question
// with an ordered list of outcome position tokens. It is a read-only snapshot
// fetched fresh on every resolution call; the core never caches or mutates it.
type Exchange struct {
	ID               string
	Slug             string
	Question         string
	Active           bool
	Funded           bool
	NegRisk          bool
	Spread           float64
	RewardsMinSize   float64
	RewardsMaxSpread float64

	// PositionTokens is non-empty for any Exchange returned to a caller.
	// Binary markets carry exactly two entries named "Yes"/"No"
	// (matched case-insensitively).
	PositionTokens []PositionToken
}

// PositionToken is a tokenized claim on one outcome of an exchange.
// Immutable once returned.
type PositionToken struct {
	TokenID string // opaque settlement-layer identifier (ERC-1155 token id)
	Name    string // outcome name, e.g. "Yes"
	Price   string // current reference price as a decimal string
}

// PriceFloat parses the token's reference price. A malformed price returns
// an error rather than silently producing zero.
func (pt PositionToken) PriceFloat() (float64, error) {
	return strconv.ParseFloat(pt.Price, 64)
}

// Token returns the position token whose name equals name case-insensitively,
// or false when the exchange lists no such outcome.
func (e *Exchange) Token(name string) (PositionToken, bool) {
	for _, pt := range e.PositionTokens {
		if strings.EqualFold(pt.Name, name) {
			return pt, true
		}
	}
	return PositionToken{}, false
}
