package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/platform/polymarket"
)

type recordedPrice struct {
	tokenID string
	price   float64
	ts      time.Time
}

type fakeSink struct {
	prices []recordedPrice
}

func (f *fakeSink) SetPrice(_ context.Context, tokenID string, price float64, ts time.Time) error {
	f.prices = append(f.prices, recordedPrice{tokenID: tokenID, price: price, ts: ts})
	return nil
}

func TestRelayHandleTrade(t *testing.T) {
	sink := &fakeSink{}
	r := New(Config{WsURL: "ws://unused"}, sink, nil)

	r.handleTrade(context.Background(), polymarket.WSTrade{
		AssetID:   "1001",
		Price:     "0.62",
		Timestamp: "1700000000123",
	})

	require.Len(t, sink.prices, 1)
	assert.Equal(t, "1001", sink.prices[0].tokenID)
	assert.Equal(t, 0.62, sink.prices[0].price)
	assert.True(t, sink.prices[0].ts.Equal(time.UnixMilli(1700000000123)))
}

func TestRelayHandleTradeBadPrice(t *testing.T) {
	sink := &fakeSink{}
	r := New(Config{WsURL: "ws://unused"}, sink, nil)

	r.handleTrade(context.Background(), polymarket.WSTrade{AssetID: "1001", Price: "n/a"})
	assert.Empty(t, sink.prices)
}

func TestRelayHandlePriceChange(t *testing.T) {
	sink := &fakeSink{}
	r := New(Config{WsURL: "ws://unused"}, sink, nil)

	r.handlePriceChange(context.Background(), polymarket.WSPriceChange{
		AssetID: "1002",
		Price:   "0.38",
	})

	require.Len(t, sink.prices, 1)
	assert.Equal(t, "1002", sink.prices[0].tokenID)
	assert.Equal(t, 0.38, sink.prices[0].price)
	assert.False(t, sink.prices[0].ts.IsZero())
}
