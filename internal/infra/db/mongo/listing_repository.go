package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/money"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

// Search pushes the structural filters down to Mongo and applies the free
// text filter in process, matching the in-memory repository's semantics.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()

	filter := bson.M{}
	if opts.Host != "" {
		filter["host_id"] = string(opts.Host)
	}
	if opts.Category != "" {
		filter["category"] = bson.M{"$regex": "^" + opts.Category + "$", "$options": "i"}
	}
	if opts.Location != "" {
		filter["location"] = bson.M{"$regex": "^" + opts.Location + "$", "$options": "i"}
	}
	if opts.MinGuests > 0 {
		filter["max_guests"] = bson.M{"$gte": opts.MinGuests}
	}
	priceFilter := bson.M{}
	if opts.PriceMinCents > 0 {
		priceFilter["$gte"] = opts.PriceMinCents
	}
	if opts.PriceMaxCents > 0 {
		priceFilter["$lte"] = opts.PriceMaxCents
	}
	if len(priceFilter) > 0 {
		filter["nightly_rate.cents"] = priceFilter
	}

	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(sortSpec(opts.Sort)))
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	defer cursor.Close(ctx)

	matches := make([]*domainlistings.Listing, 0)
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return domainlistings.SearchResult{}, err
		}
		listing := doc.toAggregate()
		if opts.Matches(listing) {
			matches = append(matches, listing)
		}
	}
	if err := cursor.Err(); err != nil {
		return domainlistings.SearchResult{}, err
	}

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return domainlistings.SearchResult{Items: matches[start:end], Total: total}, nil
}

func sortSpec(order domainlistings.SortOrder) bson.D {
	switch order {
	case domainlistings.SortByPriceAsc:
		return bson.D{{Key: "nightly_rate.cents", Value: 1}}
	case domainlistings.SortByPriceDesc:
		return bson.D{{Key: "nightly_rate.cents", Value: -1}}
	case domainlistings.SortByRating:
		return bson.D{{Key: "average_rating", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}

type listingDocument struct {
	ID            string      `bson:"_id"`
	HostID        string      `bson:"host_id"`
	Title         string      `bson:"title"`
	Description   string      `bson:"description"`
	Category      string      `bson:"category"`
	Location      string      `bson:"location"`
	NightlyRate   money.Money `bson:"nightly_rate"`
	MaxGuests     int         `bson:"max_guests"`
	AvailableFrom int64       `bson:"available_from"`
	AvailableTo   int64       `bson:"available_to"`
	AverageRating float64     `bson:"average_rating"`
	ReviewCount   int         `bson:"review_count"`
	Photos        []string    `bson:"photos"`
	CreatedAt     int64       `bson:"created_at"`
	UpdatedAt     int64       `bson:"updated_at"`
	Version       int64       `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:            string(l.ID),
		HostID:        string(l.Host),
		Title:         l.Title,
		Description:   l.Description,
		Category:      l.Category,
		Location:      l.Location,
		NightlyRate:   l.NightlyRate,
		MaxGuests:     l.MaxGuests,
		AvailableFrom: l.AvailableFrom.UnixMilli(),
		AvailableTo:   l.AvailableTo.UnixMilli(),
		AverageRating: l.AverageRating,
		ReviewCount:   l.ReviewCount,
		Photos:        l.Photos,
		CreatedAt:     l.CreatedAt.UnixMilli(),
		UpdatedAt:     l.UpdatedAt.UnixMilli(),
		Version:       l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:            domainlistings.ListingID(d.ID),
		Host:          domainlistings.HostID(d.HostID),
		Title:         d.Title,
		Description:   d.Description,
		Category:      d.Category,
		Location:      d.Location,
		NightlyRate:   d.NightlyRate,
		MaxGuests:     d.MaxGuests,
		AvailableFrom: timestampToTime(d.AvailableFrom),
		AvailableTo:   timestampToTime(d.AvailableTo),
		AverageRating: d.AverageRating,
		ReviewCount:   d.ReviewCount,
		Photos:        d.Photos,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}
