package trading

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// fakeVenue serves canned markets and order states and records the call
// sequence so tests can assert ordering.
type fakeVenue struct {
	name string

	markets     map[string]domain.Exchange
	slugMatches map[string][]domain.Exchange
	orders      map[string]domain.OrderSnapshot

	placement    Placement
	placementErr error
	proposal     json.RawMessage

	calls []string
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		name:        "polymarket",
		markets:     make(map[string]domain.Exchange),
		slugMatches: make(map[string][]domain.Exchange),
		orders:      make(map[string]domain.OrderSnapshot),
	}
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) ExchangeByID(_ context.Context, id string) (domain.Exchange, error) {
	f.calls = append(f.calls, "byID")
	ex, ok := f.markets[id]
	if !ok {
		return domain.Exchange{}, domain.Errorf(domain.CodeNotFound, "market %s not found", id)
	}
	return ex, nil
}

func (f *fakeVenue) ExchangesBySlug(_ context.Context, slug string) ([]domain.Exchange, error) {
	f.calls = append(f.calls, "bySlug")
	return f.slugMatches[slug], nil
}

func (f *fakeVenue) SubmitOrder(_ context.Context, _ *domain.SignedOrder, _ domain.OrderType) (Placement, error) {
	f.calls = append(f.calls, "submit")
	if f.placementErr != nil {
		return Placement{}, f.placementErr
	}
	return f.placement, nil
}

func (f *fakeVenue) Order(_ context.Context, orderID string) (domain.OrderSnapshot, error) {
	f.calls = append(f.calls, "order")
	snap, ok := f.orders[orderID]
	if !ok {
		return domain.OrderSnapshot{}, domain.Errorf(domain.CodeNotFound, "order %s not found", orderID)
	}
	return snap, nil
}

func (f *fakeVenue) CancelOrder(_ context.Context, orderID string) error {
	f.calls = append(f.calls, "cancel")
	if _, ok := f.orders[orderID]; !ok {
		return domain.Errorf(domain.CodeNotFound, "order %s not found", orderID)
	}
	return nil
}

func (f *fakeVenue) SubmitPriceProposal(_ context.Context, _ *domain.SignedOrder, _ domain.OrderType) (json.RawMessage, error) {
	f.calls = append(f.calls, "proposal")
	return f.proposal, nil
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) Address() common.Address {
	return common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
}

func (f *fakeSigner) SignOrder(_ *domain.SignedOrder) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "0xsigned", nil
}

type fakeAllowances struct {
	balance *big.Int
	err     error
	venue   *fakeVenue // when set, records the call on the shared sequence
	calls   int
}

func (f *fakeAllowances) EnsureAllowances(_ context.Context) (*big.Int, error) {
	f.calls++
	if f.venue != nil {
		f.venue.calls = append(f.venue.calls, "allowances")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

var errStoreDown = errors.New("store down")

type fakeStore struct {
	recorded []domain.OrderSnapshot
	err      error
}

func (f *fakeStore) RecordOrder(_ context.Context, snap domain.OrderSnapshot, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, snap)
	return nil
}

type fakeArchiver struct {
	archived []domain.OrderSnapshot
}

func (f *fakeArchiver) ArchiveMatched(_ context.Context, snap domain.OrderSnapshot) error {
	f.archived = append(f.archived, snap)
	return nil
}

func binaryExchange(id, slug string) domain.Exchange {
	return domain.Exchange{
		ID:     id,
		Slug:   slug,
		Active: true,
		Funded: true,
		PositionTokens: []domain.PositionToken{
			{TokenID: "1001", Name: "Yes", Price: "0.5"},
			{TokenID: "1002", Name: "No", Price: "0.5"},
		},
	}
}

func testClient(venue *fakeVenue, allowances AllowanceEnsurer) *Client {
	c := NewClient(ClientConfig{
		Signer:     &fakeSigner{},
		Allowances: allowances,
	})
	c.RegisterVenue(venue)
	return c
}
