// Package trading is the order core: instrument resolution, order building
// and signing, allowance-gated execution, and pending-order tracking.
package trading

import (
	"context"
	"encoding/json"

	"github.com/ethanvb/clobtrader/internal/domain"
	"github.com/ethanvb/clobtrader/internal/platform/polymarket"
)

// DefaultVenue is used when a TradeIntent or execution call names no venue.
const DefaultVenue = "polymarket"

// Placement is the settlement backend's immediate answer to an order
// submission. An empty OrderID signals the price-proposal path.
type Placement struct {
	OrderID string
	Status  domain.OrderStatus
}

// Venue is one settlement backend's capability set. Adding a backend means
// adding an implementation and registering it, not branching on a name.
type Venue interface {
	Name() string

	ExchangeByID(ctx context.Context, id string) (domain.Exchange, error)
	ExchangesBySlug(ctx context.Context, slug string) ([]domain.Exchange, error)

	SubmitOrder(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (Placement, error)
	Order(ctx context.Context, orderID string) (domain.OrderSnapshot, error)
	CancelOrder(ctx context.Context, orderID string) error
	SubmitPriceProposal(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (json.RawMessage, error)
}

// venueFor resolves a venue name against the client's registry. An unknown
// name is a capability gap, not bad input, so it maps to ENVIRONMENT_ERROR.
func (c *Client) venueFor(name string) (Venue, error) {
	if name == "" {
		name = DefaultVenue
	}
	v, ok := c.venues[name]
	if !ok {
		return nil, domain.Errorf(domain.CodeEnvironment, "unsupported venue %q", name)
	}
	return v, nil
}

// polymarketVenue adapts the Gamma and CLOB clients to the Venue interface.
type polymarketVenue struct {
	gamma *polymarket.GammaClient
	clob  *polymarket.ClobClient
}

// NewPolymarketVenue wraps the Polymarket REST clients as a Venue.
func NewPolymarketVenue(gamma *polymarket.GammaClient, clob *polymarket.ClobClient) Venue {
	return &polymarketVenue{gamma: gamma, clob: clob}
}

func (v *polymarketVenue) Name() string { return DefaultVenue }

func (v *polymarketVenue) ExchangeByID(ctx context.Context, id string) (domain.Exchange, error) {
	return v.gamma.ExchangeByID(ctx, id)
}

func (v *polymarketVenue) ExchangesBySlug(ctx context.Context, slug string) ([]domain.Exchange, error) {
	return v.gamma.ExchangesBySlug(ctx, slug)
}

func (v *polymarketVenue) SubmitOrder(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (Placement, error) {
	placement, err := v.clob.SubmitOrder(ctx, order, orderType)
	if err != nil {
		return Placement{}, err
	}
	return Placement{
		OrderID: placement.OrderID,
		Status:  domain.OrderStatus(placement.Status),
	}, nil
}

func (v *polymarketVenue) Order(ctx context.Context, orderID string) (domain.OrderSnapshot, error) {
	return v.clob.GetOrder(ctx, orderID)
}

func (v *polymarketVenue) CancelOrder(ctx context.Context, orderID string) error {
	return v.clob.CancelOrder(ctx, orderID)
}

func (v *polymarketVenue) SubmitPriceProposal(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType) (json.RawMessage, error) {
	return v.clob.SubmitPriceProposal(ctx, order, orderType)
}

var _ Venue = (*polymarketVenue)(nil)
