package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the repositories rely on: the unique
// (listing, author) review index backs the one-review-per-author rule, and
// the booking range index keeps the overlap probe cheap.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	reviews := c.DB.Collection("agg_review")
	_, err := reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "author_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_listing_author"),
	})
	if err != nil {
		return err
	}
	bookings := c.DB.Collection("agg_booking")
	_, err = bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "range.check_in", Value: 1},
		},
		Options: options.Index().SetName("listing_status_checkin"),
	})
	if err != nil {
		return err
	}
	users := c.DB.Collection("agg_user")
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return err
	}
	sessions := c.DB.Collection("auth_session")
	_, err = sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("session_expiry"),
	})
	if err != nil {
		return err
	}
	outbox := c.DB.Collection("app_outbox")
	_, err = outbox.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "state", Value: 1}, {Key: "next_retry", Value: 1}},
		Options: options.Index().SetName("state_next_retry"),
	})
	if err != nil {
		return err
	}
	idempotency := c.DB.Collection("app_idempotency")
	_, err = idempotency.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds())).SetName("idempotency_expiry"),
	})
	return err
}
