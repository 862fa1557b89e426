package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review represents a product review stored in the reviews collection.
// At most one review exists per (product, user) pair.
type Review struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProductID        int64              `json:"productId" bson:"productId" validate:"required,gt=0"`
	UserID           int64              `json:"userId" bson:"userId" validate:"required,gt=0"`
	Rating           int                `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Title            string             `json:"title" bson:"title" validate:"required,min=3,max=64"`
	Content          string             `json:"content" bson:"content" validate:"required,min=10,max=1000"`
	Pros             []string           `json:"pros" bson:"pros" validate:"dive,min=1,max=100"`
	Cons             []string           `json:"cons" bson:"cons" validate:"dive,min=1,max=100"`
	VerifiedPurchase bool               `json:"verifiedPurchase" bson:"verifiedPurchase"`
	HelpfulCount     int                `json:"helpfulCount" bson:"helpfulCount"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ReviewUpdate carries the mutable review fields for a partial update.
// A nil field means "leave unchanged".
type ReviewUpdate struct {
	Rating  *int      `json:"rating" validate:"omitempty,min=1,max=5"`
	Title   *string   `json:"title" validate:"omitempty,min=3,max=64"`
	Content *string   `json:"content" validate:"omitempty,min=10,max=1000"`
	Pros    *[]string `json:"pros" validate:"omitempty,dive,min=1,max=100"`
	Cons    *[]string `json:"cons" validate:"omitempty,dive,min=1,max=100"`
}

// Empty reports whether the update carries no fields at all.
func (u ReviewUpdate) Empty() bool {
	return u.Rating == nil && u.Title == nil && u.Content == nil && u.Pros == nil && u.Cons == nil
}

// ReviewFilter describes a review listing query.
type ReviewFilter struct {
	ProductID    int64
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
	MinRating    *int
	MaxRating    *int
	VerifiedOnly bool
	Query        string
}

// RatingStats is the denormalized per-product rating summary kept in the
// productRatingStats collection. It is a materialized view over reviews,
// never a source of truth.
type RatingStats struct {
	ProductID          int64          `json:"productId" bson:"productId"`
	AverageRating      float64        `json:"averageRating" bson:"averageRating"`
	TotalReviews       int            `json:"totalReviews" bson:"totalReviews"`
	RatingDistribution map[string]int `json:"ratingDistribution" bson:"ratingDistribution"`
	UpdatedAt          time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// ReviewRepository defines the interface for review document access
type ReviewRepository interface {
	// Create inserts a new review and assigns its ID
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id primitive.ObjectID) (*Review, error)

	// GetByProductAndUser retrieves the review a user wrote for a product
	GetByProductAndUser(ctx context.Context, productID, userID int64) (*Review, error)

	// List retrieves a filtered, sorted page of reviews together with the
	// total number of matching documents
	List(ctx context.Context, filter ReviewFilter) ([]*Review, int, error)

	// ListAllByProduct retrieves every review for a product (projection input)
	ListAllByProduct(ctx context.Context, productID int64) ([]*Review, error)

	// Update applies the present fields of upd and refreshes updatedAt
	Update(ctx context.Context, id primitive.ObjectID, upd ReviewUpdate) (*Review, error)

	// Delete removes a review document
	Delete(ctx context.Context, id primitive.ObjectID) error

	// IncrementHelpful atomically adds 1 to helpfulCount
	IncrementHelpful(ctx context.Context, id primitive.ObjectID) (*Review, error)

	// ReviewTrends aggregates per-day review counts and average ratings
	// for reviews created within [start, end]
	ReviewTrends(ctx context.Context, productID int64, start, end time.Time) ([]DailyReviewBucket, error)
}

// RatingStatsRepository defines the interface for the stats projection store
type RatingStatsRepository interface {
	// Get retrieves the stats document for a product
	Get(ctx context.Context, productID int64) (*RatingStats, error)

	// Upsert stores the stats document keyed by productId
	Upsert(ctx context.Context, stats *RatingStats) error
}
