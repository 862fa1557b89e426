package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
)

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

func TestViewIngestor_HandleEvent_Success(t *testing.T) {
	views := new(MockProductViewRepository)
	ingestor := NewViewIngestor(views, logger.New("test"))

	views.On("Insert", mock.Anything, mock.MatchedBy(func(v *domain.ProductView) bool {
		return v.ProductID == 1 && v.UserID == 2 && v.Source == "search" && v.Duration == 30
	})).Return(nil)

	data, _ := json.Marshal(domain.ProductView{
		ProductID: 1,
		UserID:    2,
		Duration:  30,
		Source:    "search",
		ViewDate:  time.Now(),
	})

	err := ingestor.HandleEvent(context.Background(), data)

	assert.NoError(t, err)
	views.AssertExpectations(t)
}

func TestViewIngestor_HandleEvent_Defaults(t *testing.T) {
	views := new(MockProductViewRepository)
	ingestor := NewViewIngestor(views, logger.New("test"))

	views.On("Insert", mock.Anything, mock.MatchedBy(func(v *domain.ProductView) bool {
		return v.Source == "direct" && !v.ViewDate.IsZero()
	})).Return(nil)

	data := []byte(`{"productId":1,"userId":2}`)

	err := ingestor.HandleEvent(context.Background(), data)

	assert.NoError(t, err)
	views.AssertExpectations(t)
}

func TestViewIngestor_HandleEvent_MalformedJSON(t *testing.T) {
	views := new(MockProductViewRepository)
	ingestor := NewViewIngestor(views, logger.New("test"))

	// Malformed payloads are dropped without error so they are never redelivered
	err := ingestor.HandleEvent(context.Background(), []byte(`{not json`))

	assert.NoError(t, err)
	views.AssertNotCalled(t, "Insert")
}

func TestViewIngestor_HandleEvent_InvalidEvent(t *testing.T) {
	views := new(MockProductViewRepository)
	ingestor := NewViewIngestor(views, logger.New("test"))

	// Missing product and user IDs fails validation
	err := ingestor.HandleEvent(context.Background(), []byte(`{"duration":30}`))

	assert.NoError(t, err)
	views.AssertNotCalled(t, "Insert")
}

func TestViewIngestor_HandleEvent_StoreFailure(t *testing.T) {
	views := new(MockProductViewRepository)
	ingestor := NewViewIngestor(views, logger.New("test"))

	views.On("Insert", mock.Anything, mock.Anything).Return(assert.AnError)

	data := []byte(`{"productId":1,"userId":2,"source":"search"}`)

	// Store failures propagate so the message is redelivered
	err := ingestor.HandleEvent(context.Background(), data)

	assert.Error(t, err)
}
