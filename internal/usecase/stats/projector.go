package stats

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
)

// Projector maintains the productRatingStats projection. Every projection
// is a full recompute over the product's current review set: it never
// depends on knowing what changed, so redundant or concurrently interleaved
// calls converge on a consistent document.
type Projector struct {
	reviews domain.ReviewRepository
	stats   domain.RatingStatsRepository
	logger  *logger.Logger
}

// NewProjector creates a new rating statistics projector
func NewProjector(reviews domain.ReviewRepository, stats domain.RatingStatsRepository, log *logger.Logger) *Projector {
	return &Projector{
		reviews: reviews,
		stats:   stats,
		logger:  log,
	}
}

// Project recomputes and upserts the rating summary for a product
func (p *Projector) Project(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	reviews, err := p.reviews.ListAllByProduct(ctx, productID)
	if err != nil {
		p.logger.Error("Failed to load reviews for projection", err)
		return nil, err
	}

	stats := Compute(productID, reviews)
	stats.UpdatedAt = time.Now()

	if err := p.stats.Upsert(ctx, stats); err != nil {
		p.logger.Error("Failed to upsert rating stats", err)
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"product_id":     productID,
		"total_reviews":  stats.TotalReviews,
		"average_rating": stats.AverageRating,
	}).Debug("Projected rating stats")

	return stats, nil
}

// GetStats returns the current rating summary for a product, computing it
// lazily when no stats document exists yet. It never reports absence; the
// worst case is the zeroed default shape.
func (p *Projector) GetStats(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	stats, err := p.stats.Get(ctx, productID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return p.Project(ctx, productID)
}

// Compute derives the rating summary from a product's full review set.
// Distribution buckets 1..5 are always present, zero-valued when empty.
func Compute(productID int64, reviews []*domain.Review) *domain.RatingStats {
	distribution := make(map[string]int, 5)
	for r := 1; r <= 5; r++ {
		distribution[strconv.Itoa(r)] = 0
	}

	sum := 0
	for _, review := range reviews {
		distribution[strconv.Itoa(review.Rating)]++
		sum += review.Rating
	}

	average := 0.0
	if len(reviews) > 0 {
		average = float64(sum) / float64(len(reviews))
	}

	return &domain.RatingStats{
		ProductID:          productID,
		AverageRating:      average,
		TotalReviews:       len(reviews),
		RatingDistribution: distribution,
	}
}
