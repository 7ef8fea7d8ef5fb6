package trading

import (
	"context"
	"log/slog"
	"math/big"
	"slices"
	"sync"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// AllowanceEnsurer guarantees settlement permissions and reports the quote
// balance. *chain.AllowanceManager satisfies it.
type AllowanceEnsurer interface {
	EnsureAllowances(ctx context.Context) (*big.Int, error)
}

// OrderStore persists execution outcomes. Optional; a nil store disables
// history recording without affecting execution.
type OrderStore interface {
	RecordOrder(ctx context.Context, snap domain.OrderSnapshot, venue string) error
}

// MatchArchiver receives snapshots of matched orders for long-term storage.
// Optional, best-effort.
type MatchArchiver interface {
	ArchiveMatched(ctx context.Context, snap domain.OrderSnapshot) error
}

// SubmitLimiter throttles order submissions. Optional; a nil limiter means
// no client-side throttle.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string) error
}

// ClientConfig wires a Client's collaborators. Signer and Allowances are
// required for building and executing orders; Store, Archiver, and Limiter
// are optional.
type ClientConfig struct {
	Logger     *slog.Logger
	Signer     OrderSigner
	Allowances AllowanceEnsurer
	Store      OrderStore
	Archiver   MatchArchiver
	Limiter    SubmitLimiter
}

// Client is the trading session: one signer, one venue registry, and one
// pending-order registry. Registries are owned by the instance; two clients
// never share state.
type Client struct {
	logger     *slog.Logger
	signer     OrderSigner
	allowances AllowanceEnsurer
	store      OrderStore
	archiver   MatchArchiver
	limiter    SubmitLimiter

	venues map[string]Venue

	mu      sync.Mutex
	pending []string
}

// NewClient creates a trading client. Venues are added with RegisterVenue.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:     logger,
		signer:     cfg.Signer,
		allowances: cfg.Allowances,
		store:      cfg.Store,
		archiver:   cfg.Archiver,
		limiter:    cfg.Limiter,
		venues:     make(map[string]Venue),
	}
}

// RegisterVenue adds a settlement backend under its own name. Registering
// the same name twice replaces the earlier venue.
func (c *Client) RegisterVenue(v Venue) {
	c.venues[v.Name()] = v
}

// ExecuteOrder submits a signed order to the named venue (empty selects the
// default) and classifies the immediate outcome.
//
// Allowance verification always completes, corrective transactions included,
// before submission is attempted. When the backend assigns an order id, the
// live status is fetched once: a matched order is returned as settled, any
// other status lands the id in the pending registry. A response without an
// order id takes the price-proposal path, which is a deliberate fallback
// and not an error.
func (c *Client) ExecuteOrder(ctx context.Context, order *domain.SignedOrder, orderType domain.OrderType, venueName string) (*domain.ExecutionResult, error) {
	const method = "ExecuteOrder"

	venue, err := c.venueFor(venueName)
	if err != nil {
		return nil, err
	}
	if order == nil || order.Signature == "" {
		return nil, domain.NewError(domain.CodeInvalidParameter, "order is missing or unsigned").
			WithMethod(method)
	}
	if c.allowances == nil {
		return nil, domain.NewError(domain.CodeEnvironment, "no chain backend configured for allowance verification").
			WithMethod(method)
	}

	errCtx := map[string]string{
		"venue":   venue.Name(),
		"tokenId": order.TokenID,
		"maker":   order.Maker,
	}

	if c.limiter != nil {
		if err := c.limiter.Allow(ctx, "submit:"+order.Maker); err != nil {
			return nil, domain.Classify(err, method, errCtx)
		}
	}

	balance, err := c.allowances.EnsureAllowances(ctx)
	if err != nil {
		return nil, domain.Classify(err, method, errCtx)
	}
	c.logger.Debug("allowances verified", "balance", balance.String())

	placement, err := venue.SubmitOrder(ctx, order, orderType)
	if err != nil {
		return nil, domain.Classify(err, method, errCtx)
	}

	if placement.OrderID == "" {
		proposal, err := venue.SubmitPriceProposal(ctx, order, orderType)
		if err != nil {
			return nil, domain.Classify(err, method, errCtx)
		}
		c.logger.Info("order recorded as price proposal", "venue", venue.Name())
		return &domain.ExecutionResult{Proposal: proposal}, nil
	}

	snap, err := venue.Order(ctx, placement.OrderID)
	if err != nil {
		return nil, domain.Classify(err, method, errCtx)
	}

	result := &domain.ExecutionResult{
		OrderID: placement.OrderID,
		Status:  snap.Status,
		Matched: snap.Status == domain.OrderStatusMatched,
		Order:   &snap,
	}

	if result.Matched {
		c.archiveMatched(ctx, snap)
	} else {
		c.addPending(placement.OrderID)
	}
	c.recordOrder(ctx, snap, venue.Name())

	c.logger.Info("order executed",
		"venue", venue.Name(),
		"order_id", placement.OrderID,
		"status", string(snap.Status),
		"matched", result.Matched,
	)
	return result, nil
}

// WaitOrderMatched performs a single status fetch for the order and reports
// whether it has matched. Any error folds into false: "not yet matched" and
// "could not be determined" are deliberately the same non-committal answer
// here. A matched order is dropped from the pending registry.
func (c *Client) WaitOrderMatched(ctx context.Context, orderID string, venueName string) bool {
	venue, err := c.venueFor(venueName)
	if err != nil {
		c.logger.Debug("wait order matched: venue lookup failed", "err", err)
		return false
	}

	snap, err := venue.Order(ctx, orderID)
	if err != nil {
		c.logger.Debug("wait order matched: status fetch failed", "order_id", orderID, "err", err)
		return false
	}
	if snap.Status != domain.OrderStatusMatched {
		return false
	}

	c.removePending(orderID)
	return true
}

// CancelOrder cancels a resting order and drops it from the pending
// registry.
func (c *Client) CancelOrder(ctx context.Context, orderID string, venueName string) error {
	const method = "CancelOrder"

	venue, err := c.venueFor(venueName)
	if err != nil {
		return err
	}
	if err := venue.CancelOrder(ctx, orderID); err != nil {
		return domain.Classify(err, method, map[string]string{"orderId": orderID})
	}

	c.removePending(orderID)
	c.logger.Info("order cancelled", "venue", venue.Name(), "order_id", orderID)
	return nil
}

// PendingOrderIDs returns a snapshot copy of the pending registry in append
// order. Callers cannot mutate the registry through it.
func (c *Client) PendingOrderIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pending)
}

func (c *Client) addPending(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.pending, orderID) {
		return
	}
	c.pending = append(c.pending, orderID)
}

func (c *Client) removePending(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = slices.DeleteFunc(c.pending, func(id string) bool {
		return id == orderID
	})
}

// recordOrder and archiveMatched are best-effort side channels; their
// failures are logged, never surfaced to the execution caller.
func (c *Client) recordOrder(ctx context.Context, snap domain.OrderSnapshot, venue string) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordOrder(ctx, snap, venue); err != nil {
		c.logger.Warn("order history write failed", "order_id", snap.ID, "err", err)
	}
}

func (c *Client) archiveMatched(ctx context.Context, snap domain.OrderSnapshot) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.ArchiveMatched(ctx, snap); err != nil {
		c.logger.Warn("match archive write failed", "order_id", snap.ID, "err", err)
	}
}
