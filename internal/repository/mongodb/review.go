package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/mongodb"
)

// Fields allowed as review sort keys. Anything else falls back to createdAt.
var reviewSortFields = map[string]struct{}{
	"createdAt":    {},
	"updatedAt":    {},
	"rating":       {},
	"helpfulCount": {},
}

// ReviewRepository implements domain.ReviewRepository for MongoDB
type ReviewRepository struct {
	coll *mongo.Collection
}

// NewReviewRepository creates a new MongoDB review repository and ensures
// the indexes it depends on. Index creation is idempotent.
func NewReviewRepository(ctx context.Context, db *mongo.Database) (*ReviewRepository, error) {
	coll := db.Collection(mongodb.ReviewsCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// One review per user per product
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			// Free-text search over the textual review fields
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "content", Value: "text"},
				{Key: "pros", Value: "text"},
				{Key: "cons", Value: "text"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &ReviewRepository{coll: coll}, nil
}

// Create inserts a new review and assigns its ID
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	res, err := r.coll.InsertOne(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return err
	}

	review.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	var review domain.Review
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// GetByProductAndUser retrieves the review a user wrote for a product
func (r *ReviewRepository) GetByProductAndUser(ctx context.Context, productID, userID int64) (*domain.Review, error) {
	var review domain.Review
	err := r.coll.FindOne(ctx, bson.M{"productId": productID, "userId": userID}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// List retrieves a filtered, sorted page of reviews and the total match count
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, int, error) {
	query := bson.M{"productId": filter.ProductID}

	if filter.MinRating != nil || filter.MaxRating != nil {
		ratingRange := bson.M{}
		if filter.MinRating != nil {
			ratingRange["$gte"] = *filter.MinRating
		}
		if filter.MaxRating != nil {
			ratingRange["$lte"] = *filter.MaxRating
		}
		query["rating"] = ratingRange
	}

	if filter.VerifiedOnly {
		query["verifiedPurchase"] = true
	}

	if filter.Query != "" {
		query["$text"] = bson.M{"$search": filter.Query}
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	sortField := filter.SortBy
	if _, ok := reviewSortFields[sortField]; !ok {
		sortField = "createdAt"
	}
	sortDir := -1
	if filter.SortOrder == "asc" {
		sortDir = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: sortDir}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	reviews := []*domain.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, err
	}

	return reviews, int(total), nil
}

// ListAllByProduct retrieves every review for a product
func (r *ReviewRepository) ListAllByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"productId": productID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []*domain.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// Update applies the present fields of upd and refreshes updatedAt
func (r *ReviewRepository) Update(ctx context.Context, id primitive.ObjectID, upd domain.ReviewUpdate) (*domain.Review, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Rating != nil {
		set["rating"] = *upd.Rating
	}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Pros != nil {
		set["pros"] = *upd.Pros
	}
	if upd.Cons != nil {
		set["cons"] = *upd.Cons
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review domain.Review
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// Delete removes a review document
func (r *ReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// IncrementHelpful atomically adds 1 to helpfulCount
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	update := bson.M{
		"$inc": bson.M{"helpfulCount": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review domain.Review
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// ReviewTrends aggregates per-day review counts and average ratings for
// reviews created within [start, end]
func (r *ReviewRepository) ReviewTrends(ctx context.Context, productID int64, start, end time.Time) ([]domain.DailyReviewBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"productId": productID,
			"createdAt": bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$createdAt"},
				"month": bson.M{"$month": "$createdAt"},
				"day":   bson.M{"$dayOfMonth": "$createdAt"},
			},
			"count":         bson.M{"$sum": 1},
			"averageRating": bson.M{"$avg": "$rating"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"year":          "$_id.year",
			"month":         "$_id.month",
			"day":           "$_id.day",
			"count":         1,
			"averageRating": 1,
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "year", Value: 1},
			{Key: "month", Value: 1},
			{Key: "day", Value: 1},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	buckets := []domain.DailyReviewBucket{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}

	return buckets, nil
}
