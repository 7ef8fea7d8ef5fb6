package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/ethanvb/clobtrader/internal/blob/s3"
	"github.com/ethanvb/clobtrader/internal/domain"
	"github.com/ethanvb/clobtrader/internal/feed"
)

const (
	// pendingPollInterval is how often resting orders are re-checked for a
	// match.
	pendingPollInterval = 15 * time.Second

	// monitorPollInterval is how often the monitor mode reconciles stored
	// live orders against the venue.
	monitorPollInterval = 30 * time.Second

	// batchArchiveInterval paces the daily matched-order batch upload.
	batchArchiveInterval = time.Hour
)

// TradeMode verifies on-chain allowances up front, then runs the pending-order
// watcher and, when configured, the market-data feed relay. The trading client
// itself is driven by callers of Dependencies.Trader; this mode keeps its
// background obligations serviced.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	if deps.Allowances == nil {
		return fmt.Errorf("app: trade mode requires a wallet and chain rpc")
	}

	balance, err := deps.Allowances.EnsureAllowances(ctx)
	if err != nil {
		return fmt.Errorf("app: verify allowances: %w", err)
	}
	a.logger.InfoContext(ctx, "allowances verified",
		slog.String("owner", deps.Allowances.Owner().Hex()),
		slog.String("quote_balance", balance.String()),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.watchPending(ctx, deps)
	})

	if a.cfg.Feed.Enabled && deps.Prices != nil {
		relay := feed.New(feed.Config{
			WsURL:          a.cfg.Polymarket.WsHost,
			Assets:         a.cfg.Feed.Assets,
			ReconnectDelay: a.cfg.Feed.ReconnectDelay.Duration,
		}, deps.Prices, a.logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	return g.Wait()
}

// MonitorMode reconciles stored order history against the venue without
// signing anything: every stored live order is re-fetched, its status
// persisted, and matches reported.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	if deps.Orders == nil {
		return fmt.Errorf("app: monitor mode requires postgres order history")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(monitorPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.reconcileLiveOrders(ctx, deps)
			}
		}
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			ticker := time.NewTicker(batchArchiveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					a.archiveDailyBatch(ctx, deps)
				}
			}
		})
	}

	if a.cfg.Feed.Enabled && deps.Prices != nil {
		relay := feed.New(feed.Config{
			WsURL:          a.cfg.Polymarket.WsHost,
			Assets:         a.cfg.Feed.Assets,
			ReconnectDelay: a.cfg.Feed.ReconnectDelay.Duration,
		}, deps.Prices, a.logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	return g.Wait()
}

// FeedMode runs only the market-data relay, writing trade prices into the
// Redis price cache.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	if deps.Prices == nil {
		return fmt.Errorf("app: feed mode requires redis")
	}

	relay := feed.New(feed.Config{
		WsURL:          a.cfg.Polymarket.WsHost,
		Assets:         a.cfg.Feed.Assets,
		ReconnectDelay: a.cfg.Feed.ReconnectDelay.Duration,
	}, deps.Prices, a.logger)
	return relay.Run(ctx)
}

// watchPending polls the trading client's pending registry. When an order
// matches it is archived, its stored status updated, and a notification sent.
func (a *App) watchPending(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(pendingPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, orderID := range deps.Trader.PendingOrderIDs() {
			if !deps.Trader.WaitOrderMatched(ctx, orderID, "") {
				continue
			}
			a.logger.InfoContext(ctx, "pending order matched",
				slog.String("order_id", orderID),
			)

			snap, err := deps.Clob.GetOrder(ctx, orderID)
			if err != nil {
				a.logger.WarnContext(ctx, "matched order snapshot fetch failed",
					slog.String("order_id", orderID),
					slog.String("error", err.Error()),
				)
				continue
			}

			if deps.Archiver != nil {
				if err := deps.Archiver.ArchiveMatched(ctx, snap); err != nil {
					a.logger.WarnContext(ctx, "match archive write failed",
						slog.String("order_id", orderID),
						slog.String("error", err.Error()),
					)
				}
			}
			if deps.Orders != nil {
				if err := deps.Orders.UpdateStatus(ctx, orderID, domain.OrderStatusMatched); err != nil {
					a.logger.WarnContext(ctx, "order history update failed",
						slog.String("order_id", orderID),
						slog.String("error", err.Error()),
					)
				}
			}
			if err := deps.Notifier.OrderMatched(ctx, snap); err != nil {
				a.logger.WarnContext(ctx, "match notification failed",
					slog.String("order_id", orderID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// reconcileLiveOrders refreshes the status of every stored live order from
// the venue.
func (a *App) reconcileLiveOrders(ctx context.Context, deps *Dependencies) {
	live, err := deps.Orders.ListByStatus(ctx, domain.OrderStatusLive, 0)
	if err != nil {
		a.logger.WarnContext(ctx, "live order listing failed",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, stored := range live {
		snap, err := deps.Clob.GetOrder(ctx, stored.ID)
		if err != nil {
			a.logger.WarnContext(ctx, "order status fetch failed",
				slog.String("order_id", stored.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if snap.Status == stored.Status {
			continue
		}

		if err := deps.Orders.UpdateStatus(ctx, stored.ID, snap.Status); err != nil {
			a.logger.WarnContext(ctx, "order history update failed",
				slog.String("order_id", stored.ID),
				slog.String("error", err.Error()),
			)
		}
		if snap.Status == domain.OrderStatusMatched {
			if err := deps.Notifier.OrderMatched(ctx, snap); err != nil {
				a.logger.WarnContext(ctx, "match notification failed",
					slog.String("order_id", stored.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// archiveDailyBatch uploads yesterday's matched orders as one JSONL batch.
// A day already covered in the archive is skipped, so restarts and the
// hourly cadence never duplicate it.
func (a *App) archiveDailyBatch(ctx context.Context, deps *Dependencies) {
	day := time.Now().UTC().AddDate(0, 0, -1)

	present, err := deps.Archiver.Exists(ctx, s3blob.BatchKey(day))
	if err != nil {
		a.logger.WarnContext(ctx, "batch archive lookup failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if present {
		return
	}

	matched, err := deps.Orders.ListByStatus(ctx, domain.OrderStatusMatched, 0)
	if err != nil {
		a.logger.WarnContext(ctx, "matched order listing failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(matched) == 0 {
		return
	}

	if err := deps.Archiver.ArchiveBatch(ctx, day, matched); err != nil {
		a.logger.WarnContext(ctx, "batch archive upload failed",
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "matched order batch archived",
		slog.String("day", day.Format("2006-01-02")),
		slog.Int("orders", len(matched)),
	)
}
