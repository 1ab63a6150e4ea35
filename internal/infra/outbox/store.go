package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appoutbox "stayhub/internal/app/outbox"
)

type EventState string

const (
	StateNew     EventState = "NEW"
	StateClaimed EventState = "CLAIMED"
	StateSent    EventState = "SENT"
	StateFailed  EventState = "FAILED"
)

// EventDocument is a durable outbox entry.
type EventDocument struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	Headers    map[string]string
	State      EventState
	Attempts   int
	ClaimedBy  string
	NextRetry  time.Time
	LastError  string
	OccurredAt time.Time
}

// EventStore is the durable queue between command commits and the broker.
// Claim hands out one publishable document at a time, moving it to CLAIMED
// so concurrent relays do not double-publish.
type EventStore interface {
	Append(ctx context.Context, msgs ...appoutbox.Message) error
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, nextRetry time.Time, reason string) error
}

// Store is the in-memory EventStore.
type Store struct {
	mu    sync.Mutex
	docs  []*EventDocument
	index map[string]*EventDocument
}

func NewStore() *Store {
	return &Store{index: make(map[string]*EventDocument)}
}

// Append persists flushed messages as NEW documents.
func (s *Store) Append(ctx context.Context, msgs ...appoutbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc := &EventDocument{
			ID:         id,
			Name:       msg.EventName,
			Aggregate:  msg.AggregateID,
			Payload:    msg.Payload,
			State:      StateNew,
			OccurredAt: msg.OccurredAt,
		}
		s.docs = append(s.docs, doc)
		s.index[doc.ID] = doc
	}
	return nil
}

// Claim returns the oldest publishable document, marking it CLAIMED.
func (s *Store) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, doc := range s.docs {
		switch doc.State {
		case StateNew:
		case StateFailed:
			if doc.NextRetry.After(now) {
				continue
			}
		default:
			continue
		}
		doc.State = StateClaimed
		doc.ClaimedBy = workerID
		copyDoc := *doc
		return &copyDoc, nil
	}
	return nil, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.index[id]; ok {
		doc.State = StateSent
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id string, nextRetry time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.index[id]; ok {
		doc.State = StateFailed
		doc.Attempts++
		doc.NextRetry = nextRetry
		doc.LastError = reason
	}
	return nil
}

var _ EventStore = (*Store)(nil)

// Pending reports how many documents still await publishing.
func (s *Store) Pending(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, doc := range s.docs {
		if doc.State == StateNew || doc.State == StateFailed || doc.State == StateClaimed {
			n++
		}
	}
	return n
}
