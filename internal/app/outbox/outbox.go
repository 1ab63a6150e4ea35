package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"stayhub/internal/domain/shared/events"
)

var ErrNilOutbox = errors.New("outbox: nil outbox")

type scopeKey struct{}

// Scope collects the messages recorded while one command runs. Keeping the
// buffer on the context stops a command's flush from draining events that
// belong to a concurrent, not-yet-committed command.
type Scope struct {
	mu   sync.Mutex
	msgs []Message
}

func (s *Scope) Add(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
}

func (s *Scope) Drain() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.msgs
	s.msgs = nil
	return out
}

// WithScope attaches a fresh per-command buffer to the context.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &Scope{})
}

// ScopeFrom returns the command's buffer when one was attached.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	sc, ok := ctx.Value(scopeKey{}).(*Scope)
	return sc, ok
}

// Message is a serialized domain event waiting to be published.
type Message struct {
	ID          string
	EventName   string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}

// Outbox buffers event messages inside the current transaction and flushes
// them to durable storage when the command commits.
type Outbox interface {
	Record(ctx context.Context, msgs ...Message) error
	Flush(ctx context.Context) error
}

// EventEncoder turns a domain event into a wire payload.
type EventEncoder interface {
	Encode(event events.DomainEvent) ([]byte, error)
}

type JSONEventEncoder struct{}

func (JSONEventEncoder) Encode(event events.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// RecordDomainEvents encodes and records pending aggregate events.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evts []events.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}
	if box == nil {
		return ErrNilOutbox
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	msgs := make([]Message, 0, len(evts))
	for _, event := range evts {
		payload, err := encoder.Encode(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, Message{
			EventName:   event.EventName(),
			AggregateID: event.AggregateID(),
			Payload:     payload,
			OccurredAt:  event.OccurredAt(),
		})
	}
	return box.Record(ctx, msgs...)
}
