package library

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind names a store mutation.
type EventKind string

const (
	EventBookAdded    EventKind = "book.added"
	EventBookUpdated  EventKind = "book.updated"
	EventBookDeleted  EventKind = "book.deleted"
	EventUserAdded    EventKind = "user.added"
	EventUserUpdated  EventKind = "user.updated"
	EventUserDeleted  EventKind = "user.deleted"
	EventLoanAdded    EventKind = "loan.added"
	EventLoanUpdated  EventKind = "loan.updated"
	EventLoanDeleted  EventKind = "loan.deleted"
	EventLoanReturned EventKind = "loan.returned"
)

// Event tells subscribers that a record changed. Subscribers re-read the
// store; the event carries no record payload.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       EventKind `json:"kind"`
	RecordID   int64     `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier fans events out to subscribers. It is safe for concurrent use;
// Publish never blocks on a slow subscriber.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
	logger      Logger
	now         func() time.Time
}

// NewNotifier builds a hub. Only the logger and clock options apply.
func NewNotifier(opts ...Option) (*Notifier, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		subscribers: make(map[int]chan Event),
		logger:      s.logger,
		now:         s.now,
	}, nil
}

// Subscribe returns a channel receiving every event published from now on and
// a cancel func that unregisters and closes it.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subscribers[id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			close(ch)
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish stamps and delivers an event. A subscriber whose buffer is full
// misses it.
func (n *Notifier) Publish(kind EventKind, recordID int64) Event {
	event := Event{
		ID:         uuid.New(),
		Kind:       kind,
		RecordID:   recordID,
		OccurredAt: n.now().UTC(),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subscribers {
		select {
		case ch <- event:
		default:
			n.logger.Warn(logMsgEventDropped, logAttrEventKind, string(kind), logAttrID, recordID)
		}
	}
	return event
}
