package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
)

// ProductGateway is the slice of the primary store the review service needs
type ProductGateway interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// UserGateway checks user existence in the primary store
type UserGateway interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ReviewCache caches rating stats and review list pages
type ReviewCache interface {
	GetRatingStats(ctx context.Context, productID int64) (*domain.RatingStats, error)
	SetRatingStats(ctx context.Context, stats *domain.RatingStats) error
	GetReviewsList(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, int, error)
	SetReviewsList(ctx context.Context, filter domain.ReviewFilter, reviews []*domain.Review, total int) error
	InvalidateProduct(ctx context.Context, productID int64) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ProductID int64     `json:"product_id"`
	ReviewID  string    `json:"review_id"`
}

// Page is one page of review listing results merged with the product's
// current rating summary.
type Page struct {
	Reviews []*domain.Review
	Total   int
	Page    int
	Pages   int
	Stats   *domain.RatingStats
}

// Service handles the review lifecycle and listing queries. Every mutation
// re-projects the product's rating stats before returning.
type Service struct {
	repo      domain.ReviewRepository
	products  ProductGateway
	users     UserGateway
	projector *stats.Projector
	cache     ReviewCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	products ProductGateway,
	users UserGateway,
	projector *stats.Projector,
	cache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		users:     users,
		projector: projector,
		cache:     cache,
		publisher: publisher,
		validate:  validator.New(),
		logger:    log,
	}
}

// Create validates and persists a new review, then re-projects the
// product's rating stats
func (s *Service) Create(ctx context.Context, review *domain.Review) error {
	if err := s.validate.Struct(review); err != nil {
		s.logger.Error("Review validation failed", err)
		return domain.ErrInvalidInput
	}

	productExists, err := s.products.Exists(ctx, review.ProductID)
	if err != nil {
		s.logger.Error("Failed to check product existence", err)
		return err
	}
	if !productExists {
		return domain.ErrNotFound
	}

	userExists, err := s.users.Exists(ctx, review.UserID)
	if err != nil {
		s.logger.Error("Failed to check user existence", err)
		return err
	}
	if !userExists {
		return domain.ErrNotFound
	}

	// One review per user per product. The unique index backs this up
	// against races.
	if _, err := s.repo.GetByProductAndUser(ctx, review.ProductID, review.UserID); err == nil {
		return domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("Failed to check for existing review", err)
		return err
	}

	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now
	review.HelpfulCount = 0
	if review.Pros == nil {
		review.Pros = []string{}
	}
	if review.Cons == nil {
		review.Cons = []string{}
	}

	if err := s.repo.Create(ctx, review); err != nil {
		s.logger.Error("Failed to create review", err)
		return err
	}

	if err := s.afterMutation(ctx, "review.created", review); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID.Hex(),
		"product_id": review.ProductID,
		"rating":     review.Rating,
	}).Info("Review created successfully")

	return nil
}

// Update applies the present fields of a partial update and re-projects
// stats for the review's product
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, upd domain.ReviewUpdate) (*domain.Review, error) {
	if err := s.validate.Struct(upd); err != nil {
		s.logger.Error("Review update validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	review, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id.Hex())
		} else {
			s.logger.Error("Failed to update review", err)
		}
		return nil, err
	}

	if err := s.afterMutation(ctx, "review.updated", review); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":  review.ID.Hex(),
		"product_id": review.ProductID,
		"rating":     review.Rating,
	}).Info("Review updated successfully")

	return review, nil
}

// Delete removes a review and re-projects stats for its product
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	// Product ID is needed for projection but only stored in the review
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to get review for deletion", err)
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	if err := s.afterMutation(ctx, "review.deleted", review); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id.Hex(),
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// Upvote atomically increments a review's helpful counter. Rating stats are
// untouched: helpfulCount is independent of the rating distribution.
func (s *Service) Upvote(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	review, err := s.repo.IncrementHelpful(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to upvote review", err)
		}
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %d: %v", review.ProductID, err)
	}

	return review, nil
}

// List retrieves a filtered, sorted, paginated review page merged with the
// product's current rating summary
func (s *Service) List(ctx context.Context, filter domain.ReviewFilter) (*Page, error) {
	if filter.ProductID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.products.Exists(ctx, filter.ProductID)
	if err != nil {
		s.logger.Error("Failed to check product existence", err)
		return nil, err
	}
	if !exists {
		return nil, domain.ErrInvalidInput
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	if filter.SortBy == "" {
		filter.SortBy = "createdAt"
	}
	if filter.SortOrder != "asc" {
		filter.SortOrder = "desc"
	}

	reviews, total, err := s.cache.GetReviewsList(ctx, filter)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("Review list cache read failed: %v", err)
		}
		reviews, total, err = s.repo.List(ctx, filter)
		if err != nil {
			s.logger.Error("Failed to list reviews", err)
			return nil, err
		}
		if err := s.cache.SetReviewsList(ctx, filter, reviews, total); err != nil {
			s.logger.Warnf("Failed to cache review list for product %d: %v", filter.ProductID, err)
		}
	}

	ratingStats, err := s.getStats(ctx, filter.ProductID)
	if err != nil {
		return nil, err
	}

	return &Page{
		Reviews: reviews,
		Total:   total,
		Page:    filter.Page,
		Pages:   int(math.Ceil(float64(total) / float64(filter.Limit))),
		Stats:   ratingStats,
	}, nil
}

func (s *Service) getStats(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	cached, err := s.cache.GetRatingStats(ctx, productID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warnf("Rating stats cache read failed: %v", err)
	}

	ratingStats, err := s.projector.GetStats(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetRatingStats(ctx, ratingStats); err != nil {
		s.logger.Warnf("Failed to cache rating stats for product %d: %v", productID, err)
	}

	return ratingStats, nil
}

// afterMutation runs the synchronous projection and cache invalidation
// every review mutation requires, then publishes the event. A projection
// failure does not undo the review write, but it is reported to the caller
// as an internal error: the stats are stale and the response must not claim
// success. The event still goes out so the reconciler can repair them.
func (s *Service) afterMutation(ctx context.Context, eventType string, review *domain.Review) error {
	_, projErr := s.projector.Project(ctx, review.ProductID)
	if projErr != nil {
		s.logger.Errorf(projErr, "Failed to project rating stats for product %d", review.ProductID)
	}

	if err := s.cache.InvalidateProduct(ctx, review.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %d: %v", review.ProductID, err)
	}

	s.publishEvent(eventType, review)

	if projErr != nil {
		return fmt.Errorf("%w: rating stats projection for product %d: %v", domain.ErrInternal, review.ProductID, projErr)
	}
	return nil
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(eventType string, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ProductID: review.ProductID,
		ReviewID:  review.ID.Hex(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID.Hex())
		return
	}

	// Publish in background to avoid blocking the response
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID.Hex())
		}
	}()
}
