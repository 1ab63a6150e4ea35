package commands

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryBus dispatches commands by key. Registration happens during
// startup; Dispatch is safe for concurrent use afterwards.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context, cmd Command) (any, error)
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[string]func(ctx context.Context, cmd Command) (any, error))}
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	b.mu.RLock()
	handle, ok := b.handlers[cmd.Key()]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return handle(ctx, cmd)
}

// RegisterHandler binds a typed handler to the key of C's zero value.
func RegisterHandler[C Command, R any](bus *InMemoryBus, handler Handler[C, R]) {
	var probe C
	key := probe.Key()
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[key] = func(ctx context.Context, cmd Command) (any, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, typed)
	}
}
