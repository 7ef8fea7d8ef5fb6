// Package feed relays the market-data WebSocket stream into the live price
// cache.
package feed

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethanvb/clobtrader/internal/platform/polymarket"
)

// PriceSink receives the latest trade price per position token. The Redis
// price cache satisfies it.
type PriceSink interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
}

// Config holds the relay settings.
type Config struct {
	WsURL          string
	Assets         []string
	ReconnectDelay time.Duration
}

// Relay owns one WebSocket client at a time, reconnecting with a fixed
// delay when the connection drops, and writes every trade price it sees to
// the sink.
type Relay struct {
	cfg    Config
	sink   PriceSink
	logger *slog.Logger
}

// New creates a relay. A zero ReconnectDelay defaults to five seconds.
func New(cfg Config, sink PriceSink, logger *slog.Logger) *Relay {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With(slog.String("component", "feed_relay")),
	}
}

// Run connects, subscribes, and pumps events until the context is
// cancelled. Connection loss triggers a reconnect after the configured
// delay; the subscription set is re-sent on every new connection.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("feed relay started", slog.Int("assets", len(r.cfg.Assets)))
	defer r.logger.Info("feed relay stopped")

	for {
		ws := polymarket.NewWSClient(r.cfg.WsURL)
		ws.OnTrade(func(t polymarket.WSTrade) {
			r.handleTrade(ctx, t)
		})
		ws.OnPriceChange(func(pc polymarket.WSPriceChange) {
			r.handlePriceChange(ctx, pc)
		})

		if err := r.connect(ctx, ws); err != nil {
			r.logger.Warn("feed connect failed", slog.String("error", err.Error()))
		} else {
			select {
			case <-ctx.Done():
				_ = ws.Close()
				return ctx.Err()
			case <-ws.Done():
				r.logger.Warn("feed connection lost")
			}
		}
		_ = ws.Close()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.ReconnectDelay):
		}
	}
}

func (r *Relay) connect(ctx context.Context, ws *polymarket.WSClient) error {
	if err := ws.Connect(ctx); err != nil {
		return err
	}
	return ws.Subscribe(r.cfg.Assets)
}

func (r *Relay) handleTrade(ctx context.Context, t polymarket.WSTrade) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		r.logger.Debug("feed: unparseable trade price",
			slog.String("asset", t.AssetID),
			slog.String("price", t.Price),
		)
		return
	}

	ts := time.Now()
	if ms, err := strconv.ParseInt(t.Timestamp, 10, 64); err == nil && ms > 0 {
		ts = time.UnixMilli(ms)
	}

	if err := r.sink.SetPrice(ctx, t.AssetID, price, ts); err != nil {
		r.logger.Warn("feed: price cache write failed",
			slog.String("asset", t.AssetID),
			slog.String("error", err.Error()),
		)
	}
}

// handlePriceChange keeps the cache fresh between trades. Price-change
// events carry no timestamp, so receive time stands in.
func (r *Relay) handlePriceChange(ctx context.Context, pc polymarket.WSPriceChange) {
	price, err := strconv.ParseFloat(pc.Price, 64)
	if err != nil {
		r.logger.Debug("feed: unparseable price change",
			slog.String("asset", pc.AssetID),
			slog.String("price", pc.Price),
		)
		return
	}

	if err := r.sink.SetPrice(ctx, pc.AssetID, price, time.Now()); err != nil {
		r.logger.Warn("feed: price cache write failed",
			slog.String("asset", pc.AssetID),
			slog.String("error", err.Error()),
		)
	}
}
