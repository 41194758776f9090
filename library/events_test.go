package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierDeliversToEverySubscriber(t *testing.T) {
	n, err := NewNotifier(WithClock(fixedClock))
	require.NoError(t, err)
	a, cancelA := n.Subscribe(4)
	defer cancelA()
	b, cancelB := n.Subscribe(4)
	defer cancelB()

	sent := n.Publish(EventBookAdded, 3)
	assert.Equal(t, testNow, sent.OccurredAt)

	for _, ch := range []<-chan Event{a, b} {
		got := <-ch
		assert.Equal(t, sent, got)
		assert.Equal(t, EventBookAdded, got.Kind)
		assert.Equal(t, int64(3), got.RecordID)
	}
}

func TestNotifierDropsWhenBufferFull(t *testing.T) {
	n, err := NewNotifier()
	require.NoError(t, err)
	ch, cancel := n.Subscribe(1)
	defer cancel()

	first := n.Publish(EventUserAdded, 1)
	n.Publish(EventUserAdded, 2)

	assert.Equal(t, first.ID, (<-ch).ID)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestNotifierCancelClosesChannel(t *testing.T) {
	n, err := NewNotifier()
	require.NoError(t, err)
	ch, cancel := n.Subscribe(1)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	n.Publish(EventLoanAdded, 1)
}

func TestStoresPublishOnlyOnSuccess(t *testing.T) {
	n, err := NewNotifier()
	require.NoError(t, err)
	ch, cancel := n.Subscribe(16)
	defer cancel()

	backend := &failingBackend{Backend: tempCSV(t)}
	c := newCirculation(t, backend, WithNotifier(n))
	book, err := c.books.Add(Book{Title: "Dune", Quantity: 1})
	require.NoError(t, err)
	_, err = c.loans.Add(Loan{BookID: book.ID, UserID: 1})
	require.NoError(t, err)

	backend.fail = true
	_, err = c.loans.RecordReturn(1, Date{})
	require.Error(t, err)
	require.Error(t, c.books.Delete(book.ID))

	var kinds []EventKind
	for len(ch) > 0 {
		kinds = append(kinds, (<-ch).Kind)
	}
	assert.Equal(t, []EventKind{EventBookAdded, EventBookUpdated, EventLoanAdded}, kinds)
}
