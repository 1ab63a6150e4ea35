package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/uow"
	"stayhub/internal/infra/storage/memory"
)

type echoCommand struct {
	Value string
	IDKey string
}

func (c echoCommand) Key() string { return "test.echo" }

func (c echoCommand) IdempotencyKey() string { return c.IDKey }

func (c echoCommand) ResultPrototype() any { return &echoResult{} }

type echoResult struct {
	Value string `json:"value"`
	Calls int    `json:"calls"`
}

type echoHandler struct {
	calls int
	fail  error
}

func (h *echoHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.fail != nil {
		return nil, h.fail
	}
	return &echoResult{Value: cmd.Value, Calls: h.calls}, nil
}

func newBus(handler *echoHandler) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, handler)
	return bus
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	handler := &echoHandler{}
	bus := middleware.ChainCommands(newBus(handler), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	first, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Value: "a", IDKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Calls)

	replay, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Value: "a", IDKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, replay.Calls)
	assert.Equal(t, 1, handler.calls)

	fresh, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Value: "b", IDKey: "key-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Calls)
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	handler := &echoHandler{}
	bus := middleware.ChainCommands(newBus(handler), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Value: "a"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, handler.calls)
}

func TestIdempotencyReplaysStoredError(t *testing.T) {
	handler := &echoHandler{fail: errors.New("boom")}
	bus := middleware.ChainCommands(newBus(handler), middleware.Idempotency(memory.NewIdempotencyStore(), nil))
	ctx := context.Background()

	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IDKey: "key-1"})
	require.EqualError(t, err, "boom")

	handler.fail = nil
	_, err = commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IDKey: "key-1"})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 1, handler.calls)
}

type unitAwareCommand struct{}

func (unitAwareCommand) Key() string { return "test.unit" }

type unitAwareHandler struct {
	sawUnit bool
}

func (h *unitAwareHandler) Handle(ctx context.Context, cmd unitAwareCommand) (struct{}, error) {
	_, h.sawUnit = uow.FromContext(ctx)
	return struct{}{}, nil
}

type guardedCommand struct {
	Missing bool
}

func (guardedCommand) Key() string { return "test.guarded" }

func (c guardedCommand) Validate() error {
	if c.Missing {
		return errors.New("guarded: id required")
	}
	return nil
}

type guardedHandler struct {
	calls int
}

func (h *guardedHandler) Handle(ctx context.Context, cmd guardedCommand) (struct{}, error) {
	h.calls++
	return struct{}{}, nil
}

func TestValidationRejectsBeforeHandler(t *testing.T) {
	handler := &guardedHandler{}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, handler)

	wrapped := middleware.ChainCommands(bus, middleware.Validation(middleware.SelfValidator{}))
	ctx := context.Background()

	_, err := commands.Dispatch[guardedCommand, struct{}](ctx, wrapped, guardedCommand{Missing: true})
	require.EqualError(t, err, "guarded: id required")
	assert.Zero(t, handler.calls)

	_, err = commands.Dispatch[guardedCommand, struct{}](ctx, wrapped, guardedCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, handler.calls)
}

func TestTransactionInjectsUnitOfWork(t *testing.T) {
	factory := memory.Factory{
		ListingsRepo: memory.NewListingRepository(),
		BookingRepo:  memory.NewBookingRepository(),
		ReviewsRepo:  memory.NewReviewRepository(),
	}
	handler := &unitAwareHandler{}
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, handler)

	wrapped := middleware.ChainCommands(bus, middleware.Transaction(factory, nil))
	_, err := commands.Dispatch[unitAwareCommand, struct{}](context.Background(), wrapped, unitAwareCommand{})
	require.NoError(t, err)
	assert.True(t, handler.sawUnit)
}
