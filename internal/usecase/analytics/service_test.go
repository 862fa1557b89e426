package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) GetByProductAndUser(ctx context.Context, productID, userID int64) (*domain.Review, error) {
	args := m.Called(ctx, productID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewRepository) ListAllByProduct(ctx context.Context, productID int64) ([]*domain.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, id primitive.ObjectID, upd domain.ReviewUpdate) (*domain.Review, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) IncrementHelpful(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) ReviewTrends(ctx context.Context, productID int64, start, end time.Time) ([]domain.DailyReviewBucket, error) {
	args := m.Called(ctx, productID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyReviewBucket), args.Error(1)
}

// MockRatingStatsRepository is a mock implementation of domain.RatingStatsRepository
type MockRatingStatsRepository struct {
	mock.Mock
}

func (m *MockRatingStatsRepository) Get(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingStats), args.Error(1)
}

func (m *MockRatingStatsRepository) Upsert(ctx context.Context, stats *domain.RatingStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

// MockProductViewRepository is a mock implementation of domain.ProductViewRepository
type MockProductViewRepository struct {
	mock.Mock
}

func (m *MockProductViewRepository) Insert(ctx context.Context, view *domain.ProductView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *MockProductViewRepository) Stats(ctx context.Context, productID int64, start, end time.Time) (*domain.ViewStats, error) {
	args := m.Called(ctx, productID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ViewStats), args.Error(1)
}

func (m *MockProductViewRepository) Trends(ctx context.Context, productID int64, start, end time.Time, groupBy domain.ViewGranularity) ([]domain.ViewBucket, error) {
	args := m.Called(ctx, productID, start, end, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ViewBucket), args.Error(1)
}

func (m *MockProductViewRepository) RecentlyViewed(ctx context.Context, userID int64, since time.Time, limit int) ([]domain.ViewedProduct, error) {
	args := m.Called(ctx, userID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ViewedProduct), args.Error(1)
}

func (m *MockProductViewRepository) SimilarUsers(ctx context.Context, userID int64, productIDs []int64, minCommon, limit int) ([]int64, error) {
	args := m.Called(ctx, userID, productIDs, minCommon, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockProductViewRepository) ViewedBySimilarUsers(ctx context.Context, userIDs []int64, excludeIDs []int64, limit int) ([]domain.ScoredProduct, error) {
	args := m.Called(ctx, userIDs, excludeIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredProduct), args.Error(1)
}

func (m *MockProductViewRepository) Popular(ctx context.Context, since time.Time, limit int) ([]domain.ScoredProduct, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredProduct), args.Error(1)
}

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, categoryID int64, limit, offset int) ([]*domain.Product, error) {
	args := m.Called(ctx, categoryID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, categoryID int64) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) CategoryIDs(ctx context.Context, productIDs []int64) ([]int64, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockProductRepository) ListByCategories(ctx context.Context, categoryIDs, excludeIDs []int64, limit int) ([]*domain.Product, error) {
	args := m.Called(ctx, categoryIDs, excludeIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type analyticsFixture struct {
	reviews   *MockReviewRepository
	statsRepo *MockRatingStatsRepository
	views     *MockProductViewRepository
	products  *MockProductRepository
	service   *Service
}

func newFixture() *analyticsFixture {
	f := &analyticsFixture{
		reviews:   new(MockReviewRepository),
		statsRepo: new(MockRatingStatsRepository),
		views:     new(MockProductViewRepository),
		products:  new(MockProductRepository),
	}
	log := logger.New("test")
	projector := stats.NewProjector(f.reviews, f.statsRepo, log)
	f.service = NewService(f.reviews, f.views, f.products, projector, log)
	f.service.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func TestPercentageDistribution(t *testing.T) {
	distribution := map[string]int{"1": 1, "2": 0, "3": 1, "4": 0, "5": 2}

	percentages := PercentageDistribution(distribution, 4)

	assert.Equal(t, 25.0, percentages["1"])
	assert.Equal(t, 0.0, percentages["2"])
	assert.Equal(t, 25.0, percentages["3"])
	assert.Equal(t, 0.0, percentages["4"])
	assert.Equal(t, 50.0, percentages["5"])
}

func TestPercentageDistribution_NoReviews(t *testing.T) {
	distribution := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}

	percentages := PercentageDistribution(distribution, 0)

	assert.Len(t, percentages, 5)
	for rating, pct := range percentages {
		assert.Equal(t, 0.0, pct, "rating %s", rating)
	}
}

func TestFillDailyGaps(t *testing.T) {
	start := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	buckets := []domain.DailyReviewBucket{
		{Year: 2024, Month: 6, Day: 10, Count: 1, AverageRating: 4.0},
	}

	points := FillDailyGaps(buckets, start, end)

	assert.Len(t, points, 8)
	for _, p := range points {
		if p.Date == "2024-06-10" {
			assert.Equal(t, 1, p.Count)
			if assert.NotNil(t, p.AverageRating) {
				assert.Equal(t, 4.0, *p.AverageRating)
			}
			continue
		}
		assert.Equal(t, 0, p.Count)
		assert.Nil(t, p.AverageRating)
	}
	assert.Equal(t, "2024-06-08", points[0].Date)
	assert.Equal(t, "2024-06-15", points[len(points)-1].Date)
}

func TestBucketLabel(t *testing.T) {
	bucket := domain.ViewBucket{Year: 2024, Month: 6, Day: 3, Hour: 9, Week: 23}

	assert.Equal(t, "2024-06-03", BucketLabel(bucket, domain.GroupByDay))
	assert.Equal(t, "2024-06-03 09:00", BucketLabel(bucket, domain.GroupByHour))
	assert.Equal(t, "Week 23, 2024", BucketLabel(bucket, domain.GroupByWeek))
	assert.Equal(t, "2024-06", BucketLabel(bucket, domain.GroupByMonth))
}

func TestService_ReviewStatsByRating(t *testing.T) {
	f := newFixture()

	stored := &domain.RatingStats{
		ProductID:          1,
		AverageRating:      4.5,
		TotalReviews:       4,
		RatingDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 2, "5": 2},
	}

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.statsRepo.On("Get", mock.Anything, int64(1)).Return(stored, nil)

	breakdown, err := f.service.ReviewStatsByRating(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, 4, breakdown.TotalReviews)
	assert.Equal(t, 4.5, breakdown.AverageRating)
	assert.Equal(t, 50.0, breakdown.PercentageDistribution["4"])
	assert.Equal(t, 50.0, breakdown.PercentageDistribution["5"])
	// Stored projection is authoritative, no recompute
	f.reviews.AssertNotCalled(t, "ListAllByProduct")
}

func TestService_ReviewStatsByRating_ProductNotFound(t *testing.T) {
	f := newFixture()

	f.products.On("Exists", mock.Anything, int64(404)).Return(false, nil)

	_, err := f.service.ReviewStatsByRating(context.Background(), 404)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.statsRepo.AssertNotCalled(t, "Get")
}

func TestService_ReviewTrendsByDay(t *testing.T) {
	f := newFixture()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.reviews.On("ReviewTrends", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return([]domain.DailyReviewBucket{
			{Year: 2024, Month: 6, Day: 14, Count: 2, AverageRating: 3.5},
		}, nil)

	trends, err := f.service.ReviewTrendsByDay(context.Background(), 1, 7)

	assert.NoError(t, err)
	assert.Equal(t, "7 days", trends.Period)
	assert.Equal(t, "2024-06-08", trends.StartDate)
	assert.Equal(t, "2024-06-15", trends.EndDate)
	assert.Len(t, trends.Trends, 8)
}

func TestService_ViewStatsForWindow(t *testing.T) {
	f := newFixture()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.views.On("Stats", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(&domain.ViewStats{
			TotalViews:      3,
			UniqueUsers:     2,
			AverageDuration: 41.666666,
			Sources:         []domain.ViewSourceCount{{Source: "search", Count: 3}},
		}, nil)

	summary, err := f.service.ViewStatsForWindow(context.Background(), 1, 30)

	assert.NoError(t, err)
	assert.Equal(t, 3, summary.TotalViews)
	assert.Equal(t, 66.67, summary.ConversionRate)
	assert.Equal(t, 41.67, summary.AverageDuration)
	assert.Equal(t, "30 days", summary.Period)
}

func TestService_ViewStatsForWindow_NoViews(t *testing.T) {
	f := newFixture()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.views.On("Stats", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(&domain.ViewStats{Sources: []domain.ViewSourceCount{}}, nil)

	summary, err := f.service.ViewStatsForWindow(context.Background(), 1, 30)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.ConversionRate)
}

func TestService_ViewTrendsForWindow_InvalidGroupBy(t *testing.T) {
	f := newFixture()

	_, err := f.service.ViewTrendsForWindow(context.Background(), 1, 30, domain.ViewGranularity("minute"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	f.views.AssertNotCalled(t, "Trends")
}

func TestService_ViewTrendsForWindow(t *testing.T) {
	f := newFixture()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.views.On("Trends", mock.Anything, int64(1), mock.Anything, mock.Anything, domain.GroupByWeek).
		Return([]domain.ViewBucket{
			{Year: 2024, Week: 23, Count: 12, UniqueUsers: 5, AverageDuration: 30.125},
		}, nil)

	trends, err := f.service.ViewTrendsForWindow(context.Background(), 1, 30, domain.GroupByWeek)

	assert.NoError(t, err)
	assert.Equal(t, "week", trends.GroupBy)
	assert.Len(t, trends.Trends, 1)
	assert.Equal(t, "Week 23, 2024", trends.Trends[0].TimeGroup)
	assert.Equal(t, 30.13, trends.Trends[0].AverageDuration)
}

func TestService_Recommend_PopularForNewUser(t *testing.T) {
	f := newFixture()

	// User with no viewing history goes straight to the popular tier
	f.views.On("RecentlyViewed", mock.Anything, int64(7), mock.Anything, 10).
		Return([]domain.ViewedProduct{}, nil)
	f.views.On("Popular", mock.Anything, mock.Anything, 5).
		Return([]domain.ScoredProduct{{ProductID: 3, Score: 9}}, nil)
	f.products.On("GetByIDs", mock.Anything, []int64{3}).
		Return([]*domain.Product{{ID: 3, Name: "Keyboard"}}, nil)

	recs, err := f.service.Recommend(context.Background(), 7, 5)

	assert.NoError(t, err)
	assert.Equal(t, "popular", recs.Type)
	assert.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "Popular product", recs.Recommendations[0].Reason)
	f.views.AssertNotCalled(t, "SimilarUsers")
}

func TestService_Recommend_Collaborative(t *testing.T) {
	f := newFixture()

	f.views.On("RecentlyViewed", mock.Anything, int64(7), mock.Anything, 10).
		Return([]domain.ViewedProduct{{ProductID: 1}, {ProductID: 2}}, nil)
	f.views.On("SimilarUsers", mock.Anything, int64(7), []int64{1, 2}, 2, 20).
		Return([]int64{11, 12}, nil)
	f.views.On("ViewedBySimilarUsers", mock.Anything, []int64{11, 12}, []int64{1, 2}, 5).
		Return([]domain.ScoredProduct{
			{ProductID: 5, UserCount: 2, Score: 8},
			{ProductID: 4, UserCount: 1, Score: 3},
		}, nil)
	f.products.On("GetByIDs", mock.Anything, []int64{5, 4}).
		Return([]*domain.Product{{ID: 4, Name: "Mouse"}, {ID: 5, Name: "Monitor"}}, nil)

	recs, err := f.service.Recommend(context.Background(), 7, 5)

	assert.NoError(t, err)
	assert.Equal(t, "collaborative", recs.Type)
	assert.Len(t, recs.Recommendations, 2)
	// Score order survives the join with the product store
	assert.Equal(t, int64(5), recs.Recommendations[0].Product.ID)
	assert.Equal(t, int64(4), recs.Recommendations[1].Product.ID)
	assert.Equal(t, "Based on similar users' interests", recs.Recommendations[0].Reason)
	assert.Equal(t, 2, recs.Recommendations[0].ViewedByUsers)
}

func TestService_Recommend_CategoryFallback(t *testing.T) {
	f := newFixture()

	f.views.On("RecentlyViewed", mock.Anything, int64(7), mock.Anything, 10).
		Return([]domain.ViewedProduct{{ProductID: 1}}, nil)
	// Nobody shares enough viewing history, fall through to categories
	f.views.On("SimilarUsers", mock.Anything, int64(7), []int64{1}, 2, 20).
		Return([]int64{}, nil)
	f.products.On("CategoryIDs", mock.Anything, []int64{1}).Return([]int64{9}, nil)
	f.products.On("ListByCategories", mock.Anything, []int64{9}, []int64{1}, 5).
		Return([]*domain.Product{{ID: 6, Name: "Webcam"}}, nil)

	recs, err := f.service.Recommend(context.Background(), 7, 5)

	assert.NoError(t, err)
	assert.Equal(t, "category", recs.Type)
	assert.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "Based on categories you've viewed", recs.Recommendations[0].Reason)
	f.views.AssertNotCalled(t, "Popular")
}

func TestService_Recommend_DropsVanishedProducts(t *testing.T) {
	f := newFixture()

	f.views.On("RecentlyViewed", mock.Anything, int64(7), mock.Anything, 10).
		Return([]domain.ViewedProduct{}, nil)
	f.views.On("Popular", mock.Anything, mock.Anything, 5).
		Return([]domain.ScoredProduct{
			{ProductID: 2, Score: 10},
			{ProductID: 3, Score: 4},
		}, nil)
	// Product 2 was deleted since the views were recorded
	f.products.On("GetByIDs", mock.Anything, []int64{2, 3}).
		Return([]*domain.Product{{ID: 3, Name: "Keyboard"}}, nil)

	recs, err := f.service.Recommend(context.Background(), 7, 5)

	assert.NoError(t, err)
	assert.Equal(t, "popular", recs.Type)
	assert.Len(t, recs.Recommendations, 1)
	assert.Equal(t, int64(3), recs.Recommendations[0].Product.ID)
}
