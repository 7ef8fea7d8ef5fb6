package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

func buildIntent() domain.TradeIntent {
	return domain.TradeIntent{
		MarketIDOrSlug:   "rain-tomorrow",
		PositionIDOrName: "YES",
		Side:             domain.OrderSideBuy,
	}
}

func builderClient() (*Client, *fakeVenue) {
	venue := newFakeVenue()
	venue.slugMatches["rain-tomorrow"] = []domain.Exchange{binaryExchange("1", "rain-tomorrow")}
	return testClient(venue, &fakeAllowances{}), venue
}

func TestBuildOrder_NotionalDerivesSize(t *testing.T) {
	c, venue := builderClient()
	venue.slugMatches["rain-tomorrow"][0].PositionTokens[0].Price = "0.25"

	intent := buildIntent()
	intent.USDCFlowAbs = 100

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)

	// 100 USDC at 0.25 buys 400 shares.
	assert.Equal(t, "100000000", order.MakerAmount)
	assert.Equal(t, "400000000", order.TakerAmount)
	assert.Equal(t, 0, order.Side)
	assert.Equal(t, "1001", order.TokenID)
	assert.Equal(t, "0xsigned", order.Signature)
}

func TestBuildOrder_ExplicitSizePriceWins(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.USDCFlowAbs = 1000
	intent.Size = 10
	intent.Price = 0.6

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)

	// 10 shares at 0.6, not anything derived from the notional.
	assert.Equal(t, "6000000", order.MakerAmount)
	assert.Equal(t, "10000000", order.TakerAmount)
}

func TestBuildOrder_ScenarioYesAtHalf(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.USDCFlowAbs = 50

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)

	// 50 USDC at the token's reference price 0.5 is 100 shares, side BUY.
	assert.Equal(t, "100000000", order.TakerAmount)
	assert.Equal(t, "50000000", order.MakerAmount)
	assert.Equal(t, 0, order.Side)
}

func TestBuildOrder_SellSwapsAmounts(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.Side = domain.OrderSideSell
	intent.Size = 100
	intent.Price = 0.5

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, 1, order.Side)
	assert.Equal(t, "100000000", order.MakerAmount, "seller gives up shares")
	assert.Equal(t, "50000000", order.TakerAmount, "seller receives quote")
}

func TestBuildOrder_ZeroPriceFails(t *testing.T) {
	c, venue := builderClient()
	venue.slugMatches["rain-tomorrow"][0].PositionTokens[0].Price = "0"

	intent := buildIntent()
	intent.USDCFlowAbs = 100

	_, err := c.BuildOrder(context.Background(), intent)
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidParameter, domain.CodeOf(err))
}

func TestBuildOrder_UnknownPositionToken(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.PositionIDOrName = "MAYBE"
	intent.USDCFlowAbs = 10

	_, err := c.BuildOrder(context.Background(), intent)
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidParameter, domain.CodeOf(err))
}

func TestBuildOrder_PositionNameCaseInsensitive(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.PositionIDOrName = "yEs"
	intent.USDCFlowAbs = 10

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, "1001", order.TokenID)
}

func TestBuildOrder_UnsupportedVenue(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.Venue = "kalshi"
	intent.USDCFlowAbs = 10

	_, err := c.BuildOrder(context.Background(), intent)
	require.Error(t, err)
	assert.Equal(t, domain.CodeEnvironment, domain.CodeOf(err))
}

func TestBuildOrder_DefaultsProduceValidOrder(t *testing.T) {
	c, _ := builderClient()

	// Fee rate, nonce, expiration, and taker all omitted.
	intent := buildIntent()
	intent.USDCFlowAbs = 10

	order, err := c.BuildOrder(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, "0", order.FeeRateBps)
	assert.Equal(t, "0", order.Nonce)
	assert.Equal(t, "0", order.Expiration)
	assert.Equal(t, zeroAddress, order.Taker)
	assert.NotEmpty(t, order.Salt)
	assert.NotEmpty(t, order.Signature)
}

func TestBuildOrder_ResolutionFailureWrapped(t *testing.T) {
	venue := newFakeVenue()
	c := testClient(venue, &fakeAllowances{})

	intent := buildIntent()
	intent.USDCFlowAbs = 10

	_, err := c.BuildOrder(context.Background(), intent)
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestBuildOrder_InvalidSide(t *testing.T) {
	c, _ := builderClient()

	intent := buildIntent()
	intent.Side = "HOLD"
	intent.USDCFlowAbs = 10

	_, err := c.BuildOrder(context.Background(), intent)
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidParameter, domain.CodeOf(err))
}
