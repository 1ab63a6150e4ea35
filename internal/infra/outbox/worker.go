package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrRelayNotConfigured = errors.New("outbox: relay missing store or producer")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

const (
	defaultPollEvery    = 500 * time.Millisecond
	defaultRetryBackoff = 5 * time.Second
	defaultSource       = "app://stayhub"
)

// Relay moves committed events from the store to the broker. Each poll
// drains the store completely; a publish failure parks the document with a
// retry timestamp instead of stopping the relay.
type Relay struct {
	Store       EventStore
	Producer    Producer
	PollEvery   time.Duration
	TopicPrefix string
	Source      string
	WorkerID    string
	Backoff     []time.Duration
}

func (r *Relay) Run(ctx context.Context) error {
	if r.Store == nil || r.Producer == nil {
		return ErrRelayNotConfigured
	}
	poll := r.PollEvery
	if poll <= 0 {
		poll = defaultPollEvery
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// drain publishes until the store has nothing claimable left.
func (r *Relay) drain(ctx context.Context) error {
	for {
		delivered, err := r.deliverNext(ctx)
		if err != nil || !delivered {
			return err
		}
	}
}

// deliverNext claims one document and settles it as SENT or FAILED. It
// reports whether a document was claimed, so drain knows when to stop.
func (r *Relay) deliverNext(ctx context.Context) (bool, error) {
	doc, err := r.Store.Claim(ctx, r.workerID())
	if err != nil || doc == nil {
		return false, err
	}
	payload, headers, err := r.envelope(doc)
	if err != nil {
		return true, r.Store.MarkFailed(ctx, doc.ID, r.retryAt(doc.Attempts), err.Error())
	}
	if err := r.Producer.Publish(ctx, r.topicFor(doc.Name), doc.Aggregate, payload, headers); err != nil {
		return true, r.Store.MarkFailed(ctx, doc.ID, r.retryAt(doc.Attempts), err.Error())
	}
	return true, r.Store.MarkSent(ctx, doc.ID)
}

// cloudEvent is the CloudEvents 1.0 structured-mode wire format.
type cloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Time        time.Time       `json:"time"`
	ContentType string          `json:"datacontenttype"`
	Data        json.RawMessage `json:"data"`
	TraceParent string          `json:"traceparent,omitempty"`
}

func (r *Relay) envelope(doc *EventDocument) ([]byte, map[string]string, error) {
	if !json.Valid(doc.Payload) {
		return nil, nil, fmt.Errorf("outbox: event %s carries a non-JSON payload", doc.ID)
	}
	source := r.Source
	if source == "" {
		source = defaultSource
	}
	evt := cloudEvent{
		SpecVersion: "1.0",
		ID:          uuid.NewString(),
		Type:        doc.Name + ".v1",
		Source:      source,
		Time:        doc.OccurredAt,
		ContentType: "application/json",
		Data:        json.RawMessage(doc.Payload),
		TraceParent: doc.Headers["traceparent"],
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps an event name onto its aggregate stream, so
// "booking.requested" lands on "booking.events.v1".
func (r *Relay) topicFor(name string) string {
	stream := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		stream = name[:idx]
	}
	return r.TopicPrefix + stream + ".events.v1"
}

func (r *Relay) workerID() string {
	if r.WorkerID != "" {
		return r.WorkerID
	}
	return uuid.NewString()
}

func (r *Relay) retryAt(attempts int) time.Time {
	if len(r.Backoff) == 0 {
		return time.Now().Add(defaultRetryBackoff)
	}
	if attempts >= len(r.Backoff) {
		attempts = len(r.Backoff) - 1
	}
	return time.Now().Add(r.Backoff[attempts])
}
