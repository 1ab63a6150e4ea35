package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	domainrange "stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// writeConflictCode is the server error for conflicting write intents
// inside multi-document transactions.
const writeConflictCode = 112

type BookingRepository struct {
	col      *mongo.Collection
	listings *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		col:      db.Collection("agg_booking"),
		listings: db.Collection("agg_listing"),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"guest_id": guestID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cursor)
}

func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	cursor, err := r.col.Find(ctx, overlapFilter(listingID, dr))
	if err != nil {
		return nil, err
	}
	return decodeBookings(ctx, cursor)
}

func (r *BookingRepository) HasAnyActiveOverlap(ctx context.Context, listingID listings.ListingID, dr domainrange.DateRange) (bool, error) {
	err := r.col.FindOne(ctx, overlapFilter(listingID, dr)).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Reserve re-checks overlap inside the ambient transaction and inserts the
// booking. Callers run it through the session-backed unit of work so both
// steps commit or abort together.
//
// Transactions only see a snapshot, so the overlap re-check alone cannot
// stop two concurrent admissions from both inserting. The fence write on
// the listing document serializes admissions per listing: the second
// transaction hits a write conflict, aborts, and the range reads as taken.
func (r *BookingRepository) Reserve(ctx context.Context, b *domainbooking.Booking) error {
	fence, err := r.listings.UpdateOne(ctx, admissionFenceFilter(b.ListingID), admissionFenceUpdate())
	if err != nil {
		if isWriteConflict(err) {
			return domainbooking.ErrDateConflict
		}
		return err
	}
	if fence.MatchedCount == 0 {
		return listings.ErrNotFound
	}
	taken, err := r.HasAnyActiveOverlap(ctx, b.ListingID, b.Range)
	if err != nil {
		return err
	}
	if taken {
		return domainbooking.ErrDateConflict
	}
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return domainbooking.ErrDateConflict
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func admissionFenceFilter(listingID listings.ListingID) bson.M {
	return bson.M{"_id": string(listingID)}
}

func admissionFenceUpdate() bson.M {
	return bson.M{"$inc": bson.M{"admission_seq": 1}}
}

func isWriteConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == writeConflictCode || cmdErr.HasErrorLabel("TransientTransactionError")
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		if writeErr.HasErrorLabel("TransientTransactionError") {
			return true
		}
		for _, we := range writeErr.WriteErrors {
			if we.Code == writeConflictCode {
				return true
			}
		}
	}
	return false
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) DeleteByListing(ctx context.Context, listingID listings.ListingID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"listing_id": string(listingID)})
	return err
}

func overlapFilter(listingID listings.ListingID, dr domainrange.DateRange) bson.M {
	return bson.M{
		"listing_id": string(listingID),
		"status": bson.M{"$in": []string{
			string(domainbooking.StatusPending),
			string(domainbooking.StatusConfirmed),
		}},
		// Half-open overlap: existing.check_in < new.check_out AND
		// new.check_in < existing.check_out.
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]*domainbooking.Booking, error) {
	defer cursor.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type bookingDocument struct {
	ID         string        `bson:"_id"`
	ListingID  string        `bson:"listing_id"`
	GuestID    string        `bson:"guest_id"`
	Range      rangeDocument `bson:"range"`
	Guests     int           `bson:"guests"`
	TotalPrice money.Money   `bson:"total_price"`
	Nights     int           `bson:"nights"`
	Status     string        `bson:"status"`
	CreatedAt  int64         `bson:"created_at"`
	UpdatedAt  int64         `bson:"updated_at"`
	Version    int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		GuestID:    b.GuestID,
		Range:      rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
		Nights:     b.Nights,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: listings.ListingID(d.ListingID),
		GuestID:   d.GuestID,
		Range: domainrange.DateRange{
			CheckIn:  timestampToTime(d.Range.CheckIn),
			CheckOut: timestampToTime(d.Range.CheckOut),
		},
		Guests:     d.Guests,
		TotalPrice: d.TotalPrice,
		Nights:     d.Nights,
		Status:     domainbooking.Status(d.Status),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
