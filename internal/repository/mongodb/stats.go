package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/mongodb"
)

// RatingStatsRepository implements domain.RatingStatsRepository for MongoDB
type RatingStatsRepository struct {
	coll *mongo.Collection
}

// NewRatingStatsRepository creates a new MongoDB rating stats repository
// and ensures the unique productId index.
func NewRatingStatsRepository(ctx context.Context, db *mongo.Database) (*RatingStatsRepository, error) {
	coll := db.Collection(mongodb.RatingStatsCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &RatingStatsRepository{coll: coll}, nil
}

// Get retrieves the stats document for a product
func (r *RatingStatsRepository) Get(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	var stats domain.RatingStats
	err := r.coll.FindOne(ctx, bson.M{"productId": productID}).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &stats, nil
}

// Upsert stores the stats document keyed by productId. Concurrent upserts
// for the same product are last-writer-wins; each writer carries a full
// recompute so the projection self-corrects.
func (r *RatingStatsRepository) Upsert(ctx context.Context, stats *domain.RatingStats) error {
	update := bson.M{"$set": bson.M{
		"averageRating":      stats.AverageRating,
		"totalReviews":       stats.TotalReviews,
		"ratingDistribution": stats.RatingDistribution,
		"updatedAt":          stats.UpdatedAt,
	}}

	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, bson.M{"productId": stats.ProductID}, update, opts)
	return err
}
