package memory

import (
	"context"
	"sync"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

// Outbox routes recorded messages into the dispatching command's context
// scope, so Flush only moves the committing command's own events to the
// durable store. Callers without a scope (direct handler invocations in
// tests) share a fallback buffer.
type Outbox struct {
	mu       sync.Mutex
	unscoped []appoutbox.Message
	Store    infraoutbox.EventStore
}

func NewOutbox(store infraoutbox.EventStore) *Outbox {
	return &Outbox{Store: store}
}

func (o *Outbox) Record(ctx context.Context, msgs ...appoutbox.Message) error {
	if sc, ok := appoutbox.ScopeFrom(ctx); ok {
		sc.Add(msgs...)
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unscoped = append(o.unscoped, msgs...)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	var pending []appoutbox.Message
	if sc, ok := appoutbox.ScopeFrom(ctx); ok {
		pending = sc.Drain()
	} else {
		o.mu.Lock()
		pending = o.unscoped
		o.unscoped = nil
		o.mu.Unlock()
	}
	if o.Store == nil || len(pending) == 0 {
		return nil
	}
	return o.Store.Append(ctx, pending...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
