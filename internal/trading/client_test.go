package trading

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

func signedOrder() *domain.SignedOrder {
	return &domain.SignedOrder{
		Maker:       "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		TokenID:     "1001",
		MakerAmount: "50000000",
		TakerAmount: "100000000",
		Signature:   "0xsigned",
	}
}

func TestExecuteOrder_MatchedIsNotPending(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder1", Status: domain.OrderStatusMatched}
	venue.orders["0xorder1"] = domain.OrderSnapshot{ID: "0xorder1", Status: domain.OrderStatusMatched}
	c := testClient(venue, &fakeAllowances{balance: big.NewInt(100)})

	result, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "0xorder1", result.OrderID)
	require.NotNil(t, result.Order)
	assert.Empty(t, c.PendingOrderIDs(), "a matched order never enters the registry")
}

func TestExecuteOrder_LiveOrderIsPending(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder2", Status: domain.OrderStatusLive}
	venue.orders["0xorder2"] = domain.OrderSnapshot{ID: "0xorder2", Status: domain.OrderStatusLive}
	c := testClient(venue, &fakeAllowances{})

	result, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, []string{"0xorder2"}, c.PendingOrderIDs())
}

func TestExecuteOrder_AllowancesBeforeSubmission(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder3"}
	venue.orders["0xorder3"] = domain.OrderSnapshot{ID: "0xorder3", Status: domain.OrderStatusLive}
	allowances := &fakeAllowances{venue: venue}
	c := testClient(venue, allowances)

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"allowances", "submit", "order"}, venue.calls)
}

func TestExecuteOrder_AllowanceFailureAborts(t *testing.T) {
	venue := newFakeVenue()
	c := testClient(venue, &fakeAllowances{err: errStoreDown})

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.Error(t, err)
	assert.NotContains(t, venue.calls, "submit", "submission never runs against unknown allowance state")
}

func TestExecuteOrder_NoOrderIDTakesProposalPath(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{}
	venue.proposal = json.RawMessage(`{"proposalId":"p1"}`)
	c := testClient(venue, &fakeAllowances{})

	result, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)
	assert.Empty(t, result.OrderID)
	assert.JSONEq(t, `{"proposalId":"p1"}`, string(result.Proposal))
	assert.Empty(t, c.PendingOrderIDs())
}

func TestExecuteOrder_UnsignedOrderRejected(t *testing.T) {
	c := testClient(newFakeVenue(), &fakeAllowances{})

	order := signedOrder()
	order.Signature = ""

	_, err := c.ExecuteOrder(context.Background(), order, domain.OrderTypeGTC, "")
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidParameter, domain.CodeOf(err))
}

func TestExecuteOrder_MissingChainBackend(t *testing.T) {
	c := testClient(newFakeVenue(), nil)

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.Error(t, err)
	assert.Equal(t, domain.CodeEnvironment, domain.CodeOf(err))
}

func TestExecuteOrder_UnknownVenue(t *testing.T) {
	c := testClient(newFakeVenue(), &fakeAllowances{})

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "kalshi")
	require.Error(t, err)
	assert.Equal(t, domain.CodeEnvironment, domain.CodeOf(err))
}

func TestExecuteOrder_SideChannelsBestEffort(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder4"}
	venue.orders["0xorder4"] = domain.OrderSnapshot{ID: "0xorder4", Status: domain.OrderStatusMatched}

	store := &fakeStore{err: errStoreDown}
	archiver := &fakeArchiver{}
	c := NewClient(ClientConfig{
		Signer:     &fakeSigner{},
		Allowances: &fakeAllowances{},
		Store:      store,
		Archiver:   archiver,
	})
	c.RegisterVenue(venue)

	result, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err, "a failing history store does not fail the execution")
	assert.True(t, result.Matched)
	assert.Len(t, archiver.archived, 1)
}

func TestWaitOrderMatched(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder5"}
	venue.orders["0xorder5"] = domain.OrderSnapshot{ID: "0xorder5", Status: domain.OrderStatusLive}
	c := testClient(venue, &fakeAllowances{})

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)
	require.Equal(t, []string{"0xorder5"}, c.PendingOrderIDs())

	assert.False(t, c.WaitOrderMatched(context.Background(), "0xorder5", ""))
	assert.Equal(t, []string{"0xorder5"}, c.PendingOrderIDs(), "unmatched orders stay pending")

	venue.orders["0xorder5"] = domain.OrderSnapshot{ID: "0xorder5", Status: domain.OrderStatusMatched}
	assert.True(t, c.WaitOrderMatched(context.Background(), "0xorder5", ""))
	assert.Empty(t, c.PendingOrderIDs())
}

func TestWaitOrderMatched_UnknownOrderIsFalse(t *testing.T) {
	c := testClient(newFakeVenue(), &fakeAllowances{})
	assert.False(t, c.WaitOrderMatched(context.Background(), "0xnope", ""))
}

func TestPendingOrderIDs_DefensiveCopy(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder6"}
	venue.orders["0xorder6"] = domain.OrderSnapshot{ID: "0xorder6", Status: domain.OrderStatusLive}
	c := testClient(venue, &fakeAllowances{})

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)

	snapshot := c.PendingOrderIDs()
	snapshot[0] = "mutated"
	assert.Equal(t, []string{"0xorder6"}, c.PendingOrderIDs())
}

func TestCancelOrder_RemovesPending(t *testing.T) {
	venue := newFakeVenue()
	venue.placement = Placement{OrderID: "0xorder7"}
	venue.orders["0xorder7"] = domain.OrderSnapshot{ID: "0xorder7", Status: domain.OrderStatusLive}
	c := testClient(venue, &fakeAllowances{})

	_, err := c.ExecuteOrder(context.Background(), signedOrder(), domain.OrderTypeGTC, "")
	require.NoError(t, err)

	require.NoError(t, c.CancelOrder(context.Background(), "0xorder7", ""))
	assert.Empty(t, c.PendingOrderIDs())
}
