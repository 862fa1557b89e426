package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
)

const (
	// recommendationWindowDays is how far back viewing history counts
	recommendationWindowDays = 30

	// maxRecentProducts caps the viewing history used for similarity
	maxRecentProducts = 10

	// minCommonProducts is how many products two users must share to be similar
	minCommonProducts = 2

	// maxSimilarUsers caps the similar-user candidate set
	maxSimilarUsers = 20
)

// RatingBreakdown is the per-product rating summary enriched with the
// percentage distribution.
type RatingBreakdown struct {
	ProductID              int64              `json:"productId"`
	TotalReviews           int                `json:"totalReviews"`
	AverageRating          float64            `json:"averageRating"`
	RatingDistribution     map[string]int     `json:"ratingDistribution"`
	PercentageDistribution map[string]float64 `json:"percentageDistribution"`
	LastUpdated            time.Time          `json:"lastUpdated"`
}

// TrendPoint is one day of review activity. AverageRating is nil for days
// with no reviews.
type TrendPoint struct {
	Date          string   `json:"date"`
	Count         int      `json:"count"`
	AverageRating *float64 `json:"averageRating"`
}

// ReviewTrends is the gap-filled daily review trend for a window.
type ReviewTrends struct {
	ProductID int64        `json:"productId"`
	Period    string       `json:"period"`
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Trends    []TrendPoint `json:"trends"`
}

// ViewSummary is the windowed page-view summary for a product.
type ViewSummary struct {
	ProductID       int64                    `json:"productId"`
	Period          string                   `json:"period"`
	TotalViews      int                      `json:"totalViews"`
	UniqueUsers     int                      `json:"uniqueUsers"`
	AverageDuration float64                  `json:"averageDuration"`
	Sources         []domain.ViewSourceCount `json:"sources"`
	ConversionRate  float64                  `json:"conversionRate"`
}

// ViewTrendPoint is one labeled time bucket of view activity.
type ViewTrendPoint struct {
	TimeGroup       string  `json:"timeGroup"`
	Views           int     `json:"views"`
	UniqueUsers     int     `json:"uniqueUsers"`
	AverageDuration float64 `json:"averageDuration"`
}

// ViewTrends is the bucketed view trend for a window.
type ViewTrends struct {
	ProductID int64            `json:"productId"`
	Period    string           `json:"period"`
	GroupBy   string           `json:"groupBy"`
	Trends    []ViewTrendPoint `json:"trends"`
}

// Recommendation is one recommended product with its ranking context.
type Recommendation struct {
	Product       *domain.Product `json:"product"`
	Score         int             `json:"score,omitempty"`
	ViewedByUsers int             `json:"viewedByUsers,omitempty"`
	Reason        string          `json:"recommendationReason"`
}

// Recommendations carries the strategy that produced the result set.
type Recommendations struct {
	Type            string           `json:"recommendationType"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Service answers the analytics queries over reviews and page views
type Service struct {
	reviews   domain.ReviewRepository
	views     domain.ProductViewRepository
	products  domain.ProductRepository
	projector *stats.Projector
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new analytics service
func NewService(
	reviews domain.ReviewRepository,
	views domain.ProductViewRepository,
	products domain.ProductRepository,
	projector *stats.Projector,
	log *logger.Logger,
) *Service {
	return &Service{
		reviews:   reviews,
		views:     views,
		products:  products,
		projector: projector,
		logger:    log,
		now:       time.Now,
	}
}

func (s *Service) window(days int) (time.Time, time.Time) {
	end := s.now()
	return end.AddDate(0, 0, -days), end
}

func (s *Service) requireProduct(ctx context.Context, productID int64) error {
	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to check product existence", err)
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// ReviewStatsByRating returns the rating distribution with derived
// percentages, preferring the precomputed projection and computing it
// lazily when absent.
func (s *Service) ReviewStatsByRating(ctx context.Context, productID int64) (*RatingBreakdown, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	ratingStats, err := s.projector.GetStats(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &RatingBreakdown{
		ProductID:              productID,
		TotalReviews:           ratingStats.TotalReviews,
		AverageRating:          ratingStats.AverageRating,
		RatingDistribution:     ratingStats.RatingDistribution,
		PercentageDistribution: PercentageDistribution(ratingStats.RatingDistribution, ratingStats.TotalReviews),
		LastUpdated:            ratingStats.UpdatedAt,
	}, nil
}

// ReviewTrendsByDay buckets a product's reviews by calendar day over the
// last windowDays days, with one entry per day even when empty.
func (s *Service) ReviewTrendsByDay(ctx context.Context, productID int64, windowDays int) (*ReviewTrends, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	start, end := s.window(windowDays)

	buckets, err := s.reviews.ReviewTrends(ctx, productID, start, end)
	if err != nil {
		s.logger.Error("Failed to aggregate review trends", err)
		return nil, err
	}

	return &ReviewTrends{
		ProductID: productID,
		Period:    fmt.Sprintf("%d days", windowDays),
		StartDate: start.UTC().Format("2006-01-02"),
		EndDate:   end.UTC().Format("2006-01-02"),
		Trends:    FillDailyGaps(buckets, start, end),
	}, nil
}

// ViewStatsForWindow summarizes a product's page views over the window and
// derives the conversion rate.
func (s *Service) ViewStatsForWindow(ctx context.Context, productID int64, windowDays int) (*ViewSummary, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	start, end := s.window(windowDays)

	viewStats, err := s.views.Stats(ctx, productID, start, end)
	if err != nil {
		s.logger.Error("Failed to aggregate view stats", err)
		return nil, err
	}

	conversionRate := 0.0
	if viewStats.TotalViews > 0 {
		conversionRate = round2(float64(viewStats.UniqueUsers) / float64(viewStats.TotalViews) * 100)
	}

	return &ViewSummary{
		ProductID:       productID,
		Period:          fmt.Sprintf("%d days", windowDays),
		TotalViews:      viewStats.TotalViews,
		UniqueUsers:     viewStats.UniqueUsers,
		AverageDuration: round2(viewStats.AverageDuration),
		Sources:         viewStats.Sources,
		ConversionRate:  conversionRate,
	}, nil
}

// ViewTrendsForWindow groups a product's page views into the requested
// granularity over the window.
func (s *Service) ViewTrendsForWindow(ctx context.Context, productID int64, windowDays int, groupBy domain.ViewGranularity) (*ViewTrends, error) {
	if !groupBy.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	start, end := s.window(windowDays)

	buckets, err := s.views.Trends(ctx, productID, start, end, groupBy)
	if err != nil {
		s.logger.Error("Failed to aggregate view trends", err)
		return nil, err
	}

	points := make([]ViewTrendPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, ViewTrendPoint{
			TimeGroup:       BucketLabel(b, groupBy),
			Views:           b.Count,
			UniqueUsers:     b.UniqueUsers,
			AverageDuration: round2(b.AverageDuration),
		})
	}

	return &ViewTrends{
		ProductID: productID,
		Period:    fmt.Sprintf("%d days", windowDays),
		GroupBy:   string(groupBy),
		Trends:    points,
	}, nil
}

// recommendationStrategy produces candidates for one tier of the fallback
// chain. Returning an empty set passes control to the next tier.
type recommendationStrategy struct {
	name  string
	fetch func(ctx context.Context) ([]Recommendation, error)
}

// Recommend returns up to limit recommended products for a user. Strategies
// are tried strictly in order: users with overlapping viewing history,
// then products sharing a category with recently viewed ones, then the
// globally most viewed products.
func (s *Service) Recommend(ctx context.Context, userID int64, limit int) (*Recommendations, error) {
	since := s.now().AddDate(0, 0, -recommendationWindowDays)

	viewed, err := s.views.RecentlyViewed(ctx, userID, since, maxRecentProducts)
	if err != nil {
		s.logger.Error("Failed to load viewing history", err)
		return nil, err
	}

	viewedIDs := make([]int64, 0, len(viewed))
	for _, v := range viewed {
		viewedIDs = append(viewedIDs, v.ProductID)
	}

	var strategies []recommendationStrategy
	if len(viewedIDs) > 0 {
		strategies = append(strategies,
			recommendationStrategy{name: "collaborative", fetch: func(ctx context.Context) ([]Recommendation, error) {
				return s.collaborative(ctx, userID, viewedIDs, limit)
			}},
			recommendationStrategy{name: "category", fetch: func(ctx context.Context) ([]Recommendation, error) {
				return s.sameCategory(ctx, viewedIDs, limit)
			}},
		)
	}
	strategies = append(strategies,
		recommendationStrategy{name: "popular", fetch: func(ctx context.Context) ([]Recommendation, error) {
			return s.popular(ctx, since, limit)
		}},
	)

	for _, strategy := range strategies {
		recs, err := strategy.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return &Recommendations{Type: strategy.name, Recommendations: recs}, nil
		}
	}

	return &Recommendations{Type: strategies[len(strategies)-1].name, Recommendations: []Recommendation{}}, nil
}

func (s *Service) collaborative(ctx context.Context, userID int64, viewedIDs []int64, limit int) ([]Recommendation, error) {
	similar, err := s.views.SimilarUsers(ctx, userID, viewedIDs, minCommonProducts, maxSimilarUsers)
	if err != nil {
		s.logger.Error("Failed to find similar users", err)
		return nil, err
	}
	if len(similar) == 0 {
		return nil, nil
	}

	scored, err := s.views.ViewedBySimilarUsers(ctx, similar, viewedIDs, limit)
	if err != nil {
		s.logger.Error("Failed to rank similar-user products", err)
		return nil, err
	}

	return s.resolveScored(ctx, scored, "Based on similar users' interests")
}

func (s *Service) sameCategory(ctx context.Context, viewedIDs []int64, limit int) ([]Recommendation, error) {
	categoryIDs, err := s.products.CategoryIDs(ctx, viewedIDs)
	if err != nil {
		s.logger.Error("Failed to resolve viewed categories", err)
		return nil, err
	}

	products, err := s.products.ListByCategories(ctx, categoryIDs, viewedIDs, limit)
	if err != nil {
		s.logger.Error("Failed to list category products", err)
		return nil, err
	}

	recs := make([]Recommendation, 0, len(products))
	for _, p := range products {
		recs = append(recs, Recommendation{
			Product: p,
			Reason:  "Based on categories you've viewed",
		})
	}
	return recs, nil
}

func (s *Service) popular(ctx context.Context, since time.Time, limit int) ([]Recommendation, error) {
	scored, err := s.views.Popular(ctx, since, limit)
	if err != nil {
		s.logger.Error("Failed to load popular products", err)
		return nil, err
	}

	return s.resolveScored(ctx, scored, "Popular product")
}

// resolveScored joins scored candidates with their primary-store rows,
// preserving score order and dropping candidates whose product vanished.
func (s *Service) resolveScored(ctx context.Context, scored []domain.ScoredProduct, reason string) ([]Recommendation, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(scored))
	for _, c := range scored {
		ids = append(ids, c.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load recommended products", err)
		return nil, err
	}

	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	recs := make([]Recommendation, 0, len(scored))
	for _, c := range scored {
		product, ok := byID[c.ProductID]
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{
			Product:       product,
			Score:         c.Score,
			ViewedByUsers: c.UserCount,
			Reason:        reason,
		})
	}
	return recs, nil
}

// PercentageDistribution derives percentage buckets from raw counts.
// Every bucket stays present; an empty set yields all zeros.
func PercentageDistribution(distribution map[string]int, total int) map[string]float64 {
	percentages := make(map[string]float64, len(distribution))
	for rating, count := range distribution {
		if total > 0 {
			percentages[rating] = float64(count) / float64(total) * 100
		} else {
			percentages[rating] = 0
		}
	}
	return percentages
}

// FillDailyGaps expands sparse daily buckets into one point per calendar
// day in [start, end], zero-count with nil average for missing days.
func FillDailyGaps(buckets []domain.DailyReviewBucket, start, end time.Time) []TrendPoint {
	byDay := make(map[string]domain.DailyReviewBucket, len(buckets))
	for _, b := range buckets {
		byDay[b.Date().Format("2006-01-02")] = b
	}

	points := []TrendPoint{}
	for day := start.UTC(); !day.After(end.UTC()); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		point := TrendPoint{Date: key}
		if b, ok := byDay[key]; ok {
			avg := round2(b.AverageRating)
			point.Count = b.Count
			point.AverageRating = &avg
		}
		points = append(points, point)
	}
	return points
}

// BucketLabel formats a view bucket label for its granularity:
// day "2006-01-02", hour "2006-01-02 15:00", month "2006-01",
// week "Week N, YYYY".
func BucketLabel(b domain.ViewBucket, groupBy domain.ViewGranularity) string {
	switch groupBy {
	case domain.GroupByHour:
		return fmt.Sprintf("%04d-%02d-%02d %02d:00", b.Year, b.Month, b.Day, b.Hour)
	case domain.GroupByWeek:
		return fmt.Sprintf("Week %d, %d", b.Week, b.Year)
	case domain.GroupByMonth:
		return fmt.Sprintf("%04d-%02d", b.Year, b.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", b.Year, b.Month, b.Day)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
