package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stayhub/internal/app/outbox"
)

func appendMessage(t *testing.T, store *Store, id, name string) {
	t.Helper()
	err := store.Append(context.Background(), appoutbox.Message{
		ID:          id,
		EventName:   name,
		AggregateID: "agg-1",
		Payload:     []byte(`{"hello":"world"}`),
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestStoreClaimLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appendMessage(t, store, "evt-1", "booking.requested")

	doc, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, StateClaimed, doc.State)
	assert.Equal(t, "worker-1", doc.ClaimedBy)

	// a second worker sees nothing while the claim is held
	second, err := store.Claim(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, store.MarkSent(ctx, doc.ID))
	assert.Equal(t, 0, store.Pending(ctx))
}

func TestStoreFailedDocumentRetriesAfterBackoff(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appendMessage(t, store, "evt-1", "booking.requested")

	doc, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, doc.ID, time.Now().Add(time.Hour), "broker down"))

	tooSoon, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, tooSoon)

	require.NoError(t, store.MarkFailed(ctx, doc.ID, time.Now().Add(-time.Second), "broker down"))
	retry, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 2, retry.Attempts)
}

type capturingProducer struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
	fail    error
}

func (p *capturingProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail != nil {
		return p.fail
	}
	p.topic, p.key, p.payload, p.headers = topic, key, payload, headers
	return nil
}

func TestRelayPublishesCloudEventsEnvelope(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appendMessage(t, store, "evt-1", "booking.requested")

	producer := &capturingProducer{}
	r := &Relay{Store: store, Producer: producer, WorkerID: "worker-1"}
	require.NoError(t, r.drain(ctx))

	assert.Equal(t, "booking.events.v1", producer.topic)
	assert.Equal(t, "agg-1", producer.key)
	assert.Equal(t, "application/cloudevents+json", producer.headers["content-type"])

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(producer.payload, &envelope))
	assert.Equal(t, "1.0", envelope["specversion"])
	assert.Equal(t, "booking.requested.v1", envelope["type"])
	assert.Equal(t, "app://stayhub", envelope["source"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "world", data["hello"])

	assert.Equal(t, 0, store.Pending(ctx))
}

func TestRelayTopicPrefix(t *testing.T) {
	r := &Relay{TopicPrefix: "staging."}
	assert.Equal(t, "staging.reviews.events.v1", r.topicFor("reviews.submitted"))

	plain := &Relay{}
	assert.Equal(t, "listings.events.v1", plain.topicFor("listings.created"))
}

func TestRelayMarksFailureForRetry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	appendMessage(t, store, "evt-1", "booking.requested")

	producer := &capturingProducer{fail: errors.New("broker down")}
	r := &Relay{Store: store, Producer: producer, WorkerID: "worker-1", Backoff: []time.Duration{time.Hour}}
	require.NoError(t, r.drain(ctx))

	assert.Equal(t, 1, store.Pending(ctx))
	blocked, err := store.Claim(ctx, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, blocked)
}
