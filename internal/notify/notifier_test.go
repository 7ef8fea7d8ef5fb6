package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanvb/clobtrader/internal/domain"
)

type recordingSender struct {
	name     string
	titles   []string
	messages []string
	err      error
}

func (r *recordingSender) Name() string { return r.name }

func (r *recordingSender) Send(_ context.Context, title, message string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func TestNotifierFiltersEvents(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventOrderMatched}, nil)

	require.NoError(t, n.Notify(context.Background(), EventOrderPending, "Pending", "dropped"))
	require.NoError(t, n.Notify(context.Background(), EventOrderMatched, "Matched", "kept"))

	require.Len(t, sender.titles, 1)
	assert.Equal(t, "Matched", sender.titles[0])
}

func TestNotifierEmptyEventSetAllowsAll(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, nil)

	require.NoError(t, n.Notify(context.Background(), "anything", "Title", "body"))
	assert.Len(t, sender.titles, 1)
}

func TestNotifierCollectsSenderFailures(t *testing.T) {
	broken := &recordingSender{name: "broken", err: errors.New("boom")}
	healthy := &recordingSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, nil, nil)

	err := n.Notify(context.Background(), EventError, "Title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// A failing sender must not block the others.
	assert.Len(t, healthy.titles, 1)
}

func TestNotifierOrderMatched(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, []string{EventOrderMatched, EventOrderPending, EventError}, nil)

	snap := domain.OrderSnapshot{
		ID:          "0xabc",
		Status:      domain.OrderStatusMatched,
		AssetID:     "1001",
		Side:        domain.OrderSideBuy,
		Price:       "0.55",
		SizeMatched: "20",
	}
	require.NoError(t, n.OrderMatched(context.Background(), snap))

	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "1001")
	assert.Contains(t, sender.messages[0], "0.55")
}

func TestNotifierFailureIncludesCode(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := NewNotifier([]Sender{sender}, nil, nil)

	err := domain.Errorf(domain.CodeNotFound, "no market found for slug %s", "nope")
	require.NoError(t, n.Failure(context.Background(), err))

	require.Len(t, sender.titles, 1)
	assert.Contains(t, sender.titles[0], string(domain.CodeNotFound))
}
