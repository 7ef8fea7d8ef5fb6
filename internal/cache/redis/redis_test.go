package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

func testClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClientHealth(t *testing.T) {
	c, _ := testClient(t)
	require.NoError(t, c.Health(context.Background()))
}

func TestNewUnreachable(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestPriceCacheRoundTrip(t *testing.T) {
	c, _ := testClient(t)
	pc := NewPriceCache(c)
	ctx := context.Background()

	ts := time.UnixMilli(1700000000123)
	require.NoError(t, pc.SetPrice(ctx, "1001", 0.55, ts))

	price, got, err := pc.GetPrice(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, 0.55, price)
	assert.True(t, got.Equal(ts))
}

func TestPriceCacheMissingToken(t *testing.T) {
	c, _ := testClient(t)
	pc := NewPriceCache(c)

	_, _, err := pc.GetPrice(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestPriceCacheGetPricesOmitsMissing(t *testing.T) {
	c, _ := testClient(t)
	pc := NewPriceCache(c)
	ctx := context.Background()

	require.NoError(t, pc.SetPrice(ctx, "1001", 0.25, time.Now()))
	require.NoError(t, pc.SetPrice(ctx, "1002", 0.75, time.Now()))

	prices, err := pc.GetPrices(ctx, []string{"1001", "1002", "1003"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1001": 0.25, "1002": 0.75}, prices)
}

func TestPriceCacheGetPricesEmptyInput(t *testing.T) {
	c, _ := testClient(t)
	pc := NewPriceCache(c)

	prices, err := pc.GetPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestSubmitLimiterDeniesOverLimit(t *testing.T) {
	c, _ := testClient(t)
	sl := NewSubmitLimiter(c, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, sl.Allow(ctx, "submit:0xmaker"))
	}

	err := sl.Allow(ctx, "submit:0xmaker")
	require.Error(t, err)
	assert.Equal(t, domain.CodeRateLimitExceeded, domain.CodeOf(err))
}

func TestSubmitLimiterKeysAreIndependent(t *testing.T) {
	c, _ := testClient(t)
	sl := NewSubmitLimiter(c, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, sl.Allow(ctx, "submit:0xa"))
	require.Error(t, sl.Allow(ctx, "submit:0xa"))
	require.NoError(t, sl.Allow(ctx, "submit:0xb"))
}
