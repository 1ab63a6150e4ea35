package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

func message(id string) appoutbox.Message {
	return appoutbox.Message{
		ID:          id,
		EventName:   "booking.requested",
		AggregateID: "agg-1",
		Payload:     []byte(`{}`),
		OccurredAt:  time.Now().UTC(),
	}
}

func TestOutboxFlushOnlyDrainsOwnScope(t *testing.T) {
	store := infraoutbox.NewStore()
	box := NewOutbox(store)

	committing := appoutbox.WithScope(context.Background())
	inFlight := appoutbox.WithScope(context.Background())

	require.NoError(t, box.Record(inFlight, message("evt-b")))

	// flushing one command must not queue another command's events
	require.NoError(t, box.Flush(committing))
	claimed, err := store.Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, claimed)

	require.NoError(t, box.Flush(inFlight))
	claimed, err = store.Claim(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "evt-b", claimed.ID)
}

func TestOutboxFallsBackToSharedBufferWithoutScope(t *testing.T) {
	store := infraoutbox.NewStore()
	box := NewOutbox(store)
	ctx := context.Background()

	require.NoError(t, box.Record(ctx, message("evt-1")))
	require.NoError(t, box.Flush(ctx))

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "evt-1", claimed.ID)
}
