package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

// OutboxStore persists outbox documents in the app_outbox collection.
// Append runs with the command's session context, so events commit and
// roll back with the state they describe, and committed-but-unpublished
// events survive a restart.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("app_outbox")}
}

func (s *OutboxStore) Append(ctx context.Context, msgs ...appoutbox.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		docs = append(docs, outboxDocument{
			ID:         id,
			Name:       msg.EventName,
			Aggregate:  msg.AggregateID,
			Payload:    msg.Payload,
			State:      string(infraoutbox.StateNew),
			NextRetry:  now,
			OccurredAt: msg.OccurredAt,
			CreatedAt:  now,
		})
	}
	_, err := s.col.InsertMany(ctx, docs)
	return err
}

// Claim atomically flips the oldest publishable document to CLAIMED.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"state":      bson.M{"$in": []string{string(infraoutbox.StateNew), string(infraoutbox.StateFailed)}},
		"next_retry": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"state":      string(infraoutbox.StateClaimed),
		"claimed_by": workerID,
		"claimed_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "occurred_at", Value: 1}})
	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toEventDocument(), nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"state":   string(infraoutbox.StateSent),
		"sent_at": time.Now().UTC(),
	}})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, nextRetry time.Time, reason string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"state":      string(infraoutbox.StateFailed),
			"next_retry": nextRetry,
			"last_error": reason,
		},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}

type outboxDocument struct {
	ID         string            `bson:"_id"`
	Name       string            `bson:"name"`
	Aggregate  string            `bson:"aggregate"`
	Payload    []byte            `bson:"payload"`
	Headers    map[string]string `bson:"headers,omitempty"`
	State      string            `bson:"state"`
	Attempts   int               `bson:"attempts"`
	ClaimedBy  string            `bson:"claimed_by,omitempty"`
	NextRetry  time.Time         `bson:"next_retry"`
	LastError  string            `bson:"last_error,omitempty"`
	OccurredAt time.Time         `bson:"occurred_at"`
	CreatedAt  time.Time         `bson:"created_at"`
}

func (d outboxDocument) toEventDocument() *infraoutbox.EventDocument {
	return &infraoutbox.EventDocument{
		ID:         d.ID,
		Name:       d.Name,
		Aggregate:  d.Aggregate,
		Payload:    d.Payload,
		Headers:    d.Headers,
		State:      infraoutbox.EventState(d.State),
		Attempts:   d.Attempts,
		ClaimedBy:  d.ClaimedBy,
		NextRetry:  d.NextRetry,
		LastError:  d.LastError,
		OccurredAt: d.OccurredAt,
	}
}

var _ infraoutbox.EventStore = (*OutboxStore)(nil)
