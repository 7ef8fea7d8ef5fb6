package trading

import (
	"context"
	crand "crypto/rand"
	"math"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// OrderSigner produces the EIP-712 signature over a settlement order and
// reports the wallet address it signs for. *crypto.Signer satisfies it.
type OrderSigner interface {
	Address() common.Address
	SignOrder(o *domain.SignedOrder) (string, error)
}

const zeroAddress = "0x0000000000000000000000000000000000000000"

// quoteDecimals is the fixed-point scale of the quote token and outcome
// tokens (USDC and CTF shares both use 6 decimals).
const quoteDecimals = 1e6

// BuildOrder turns a trade intent into a signed, settlement-ready order.
//
// Quantity resolution: an explicit Size takes precedence; otherwise size is
// USDCFlowAbs divided by the price. Price resolution: an explicit Price
// takes precedence; otherwise the position token's current reference price
// is used. A zero or negative effective price fails outright rather than
// producing a nonsensical size.
//
// The build is a single pass with no retries and no side effects beyond the
// signing call.
func (c *Client) BuildOrder(ctx context.Context, intent domain.TradeIntent) (*domain.SignedOrder, error) {
	const method = "BuildOrder"

	errCtx := map[string]string{
		"market":   intent.MarketIDOrSlug,
		"position": intent.PositionIDOrName,
		"side":     string(intent.Side),
	}

	venue, err := c.venueFor(intent.Venue)
	if err != nil {
		return nil, err
	}
	if c.signer == nil {
		return nil, domain.NewError(domain.CodeEnvironment, "no order signer configured").
			WithMethod(method)
	}
	if intent.Side != domain.OrderSideBuy && intent.Side != domain.OrderSideSell {
		return nil, domain.Errorf(domain.CodeInvalidParameter, "side must be BUY or SELL, got %q", intent.Side).
			WithMethod(method).WithContext(errCtx)
	}

	ex, err := c.resolveExchange(ctx, venue, intent.MarketIDOrSlug)
	if err != nil {
		return nil, domain.Classify(err, method, errCtx)
	}

	token, ok := ex.Token(intent.PositionIDOrName)
	if !ok {
		return nil, domain.Errorf(domain.CodeInvalidParameter, "position token %q not found on market %s", intent.PositionIDOrName, ex.ID).
			WithMethod(method).WithContext(errCtx)
	}

	price := intent.Price
	if price == 0 {
		price, err = token.PriceFloat()
		if err != nil {
			return nil, domain.Errorf(domain.CodeInternal, "malformed reference price %q for token %s", token.Price, token.TokenID).
				WithMethod(method).WithContext(errCtx)
		}
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, domain.Errorf(domain.CodeInvalidParameter, "effective price %v is not positive", price).
			WithMethod(method).WithContext(errCtx)
	}

	size := intent.Size
	if size == 0 {
		size = intent.USDCFlowAbs / price
	}
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, domain.Errorf(domain.CodeInvalidParameter, "effective size %v is not positive", size).
			WithMethod(method).WithContext(errCtx)
	}

	order := unsignedOrder(intent, token.TokenID, c.signer.Address().Hex(), size, price)

	sig, err := c.signer.SignOrder(order)
	if err != nil {
		return nil, domain.Classify(err, method, errCtx)
	}
	order.Signature = sig
	return order, nil
}

// unsignedOrder assembles the twelve order fields. Maker amounts are what
// the wallet gives up, taker amounts what it receives: for a BUY the maker
// amount is quote currency and the taker amount is outcome tokens; a SELL
// is the reverse.
func unsignedOrder(intent domain.TradeIntent, tokenID, maker string, size, price float64) *domain.SignedOrder {
	quote := fixedUnits(size * price)
	shares := fixedUnits(size)

	makerAmount, takerAmount := quote, shares
	side := 0
	if intent.Side == domain.OrderSideSell {
		makerAmount, takerAmount = shares, quote
		side = 1
	}

	taker := intent.Taker
	if taker == "" {
		taker = zeroAddress
	}

	return &domain.SignedOrder{
		Salt:          newSalt(),
		Maker:         maker,
		Signer:        maker,
		Taker:         taker,
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    strconv.FormatInt(intent.Expiration, 10),
		Nonce:         strconv.FormatInt(intent.Nonce, 10),
		FeeRateBps:    strconv.FormatInt(intent.FeeRateBps, 10),
		Side:          side,
		SignatureType: 0,
	}
}

// fixedUnits renders a human amount as an integer string at the settlement
// fixed-point scale.
func fixedUnits(v float64) string {
	return strconv.FormatInt(int64(math.Round(v*quoteDecimals)), 10)
}

func newSalt() string {
	n, err := crand.Int(crand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		// crypto/rand only fails when the platform's entropy source is
		// broken; a zero salt still signs and settles.
		return "0"
	}
	return n.String()
}
