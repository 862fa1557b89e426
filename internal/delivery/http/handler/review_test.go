package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/review"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, r *domain.Review) error {
	args := m.Called(ctx, r)
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

func (m *MockRatingStatsRepository) Upsert(ctx context.Context, s *domain.RatingStats) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockGateway is a mock existence check against the primary store
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockReviewCache is a mock implementation of review.ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetRatingStats(ctx context.Context, productID int64) (*domain.RatingStats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingStats), args.Error(1)
}

func (m *MockReviewCache) SetRatingStats(ctx context.Context, s *domain.RatingStats) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockReviewCache) GetReviewsList(ctx context.Context, filter domain.ReviewFilter) ([]*domain.Review, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewCache) SetReviewsList(ctx context.Context, filter domain.ReviewFilter, reviews []*domain.Review, total int) error {
	args := m.Called(ctx, filter, reviews, total)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateProduct(ctx context.Context, productID int64) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of review.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type reviewHandlerFixture struct {
	repo      *MockReviewRepository
	statsRepo *MockRatingStatsRepository
	products  *MockGateway
	users     *MockGateway
	cache     *MockReviewCache
	publisher *MockEventPublisher
	handler   *ReviewHandler
}

func newReviewHandlerFixture() *reviewHandlerFixture {
	f := &reviewHandlerFixture{
		repo:      new(MockReviewRepository),
		statsRepo: new(MockRatingStatsRepository),
		products:  new(MockGateway),
		users:     new(MockGateway),
		cache:     new(MockReviewCache),
		publisher: new(MockEventPublisher),
	}
	log := logger.New("test")
	projector := stats.NewProjector(f.repo, f.statsRepo, log)
	service := review.NewService(f.repo, f.products, f.users, projector, f.cache, f.publisher, log)
	f.handler = NewReviewHandler(service, log)
	return f
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestReviewHandler_Create_Success(t *testing.T) {
	f := newReviewHandlerFixture()

	requestBody := CreateReviewRequest{
		UserID:  2,
		Rating:  5,
		Title:   "Great product",
		Content: "Solid build quality, works exactly as described.",
	}
	bodyBytes, _ := json.Marshal(requestBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/1", bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.users.On("Exists", mock.Anything, int64(2)).Return(true, nil)
	f.repo.On("GetByProductAndUser", mock.Anything, int64(1), int64(2)).Return(nil, domain.ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == 1 && r.UserID == 2 && r.Rating == 5
	})).Return(nil)
	f.repo.On("ListAllByProduct", mock.Anything, int64(1)).Return([]*domain.Review{}, nil)
	f.statsRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("InvalidateProduct", mock.Anything, int64(1)).Return(nil)
	f.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	f.handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	f.repo.AssertExpectations(t)

	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response, "data")
}

func TestReviewHandler_Create_InvalidProductID(t *testing.T) {
	f := newReviewHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/abc", bytes.NewReader([]byte("{}")))
	req = withURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	f.handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Invalid product ID")
}

func TestReviewHandler_Create_InvalidJSON(t *testing.T) {
	f := newReviewHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/1", bytes.NewReader([]byte("invalid json")))
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	f.handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Invalid request body")
}

func TestReviewHandler_Create_Duplicate(t *testing.T) {
	f := newReviewHandlerFixture()

	requestBody := CreateReviewRequest{
		UserID:  2,
		Rating:  4,
		Title:   "Second thoughts",
		Content: "Trying to sneak in another review here.",
	}
	bodyBytes, _ := json.Marshal(requestBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/1", bytes.NewReader(bodyBytes))
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.users.On("Exists", mock.Anything, int64(2)).Return(true, nil)
	f.repo.On("GetByProductAndUser", mock.Anything, int64(1), int64(2)).
		Return(&domain.Review{ID: primitive.NewObjectID()}, nil)

	f.handler.Create(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "already reviewed")
	f.repo.AssertNotCalled(t, "Create")
}

func TestReviewHandler_Create_UnknownProduct(t *testing.T) {
	f := newReviewHandlerFixture()

	requestBody := CreateReviewRequest{
		UserID:  2,
		Rating:  5,
		Title:   "Great product",
		Content: "Solid build quality, works exactly as described.",
	}
	bodyBytes, _ := json.Marshal(requestBody)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/99", bytes.NewReader(bodyBytes))
	req = withURLParam(req, "id", "99")
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(99)).Return(false, nil)

	f.handler.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_List_Success(t *testing.T) {
	f := newReviewHandlerFixture()

	reviews := []*domain.Review{
		{ID: primitive.NewObjectID(), ProductID: 1, UserID: 2, Rating: 5, Title: "Great"},
		{ID: primitive.NewObjectID(), ProductID: 1, UserID: 3, Rating: 4, Title: "Good"},
	}
	ratingStats := &domain.RatingStats{
		ProductID:          1,
		AverageRating:      4.5,
		TotalReviews:       2,
		RatingDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 1, "5": 1},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?productId=1&page=1&limit=10", nil)
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.cache.On("GetReviewsList", mock.Anything, mock.Anything).Return(nil, 0, fmt.Errorf("cache miss"))
	f.repo.On("List", mock.Anything, mock.Anything).Return(reviews, 2, nil)
	f.cache.On("SetReviewsList", mock.Anything, mock.Anything, reviews, 2).Return(nil)
	f.cache.On("GetRatingStats", mock.Anything, int64(1)).Return(ratingStats, nil)

	f.handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)

	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(2), response["count"])
	assert.Equal(t, float64(2), response["total"])
	assert.Equal(t, float64(1), response["page"])
	assert.Equal(t, float64(1), response["pages"])
	assert.Contains(t, response, "data")
	assert.Contains(t, response, "ratingStats")
}

func TestReviewHandler_List_UnknownProduct(t *testing.T) {
	f := newReviewHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?productId=42", nil)
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(42)).Return(false, nil)

	f.handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewHandler_ListByProduct_RatingFilter(t *testing.T) {
	f := newReviewHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/1/reviews?minRating=4&verifiedOnly=true", nil)
	req = withURLParam(req, "id", "1")
	w := httptest.NewRecorder()

	f.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	f.cache.On("GetReviewsList", mock.Anything, mock.Anything).Return(nil, 0, fmt.Errorf("cache miss"))
	f.repo.On("List", mock.Anything, mock.MatchedBy(func(filter domain.ReviewFilter) bool {
		return filter.ProductID == 1 && filter.MinRating != nil &&
			*filter.MinRating == 4 && filter.VerifiedOnly
	})).Return([]*domain.Review{}, 0, nil)
	f.cache.On("SetReviewsList", mock.Anything, mock.Anything, mock.Anything, 0).Return(nil)
	f.cache.On("GetRatingStats", mock.Anything, int64(1)).
		Return(&domain.RatingStats{ProductID: 1, RatingDistribution: map[string]int{}}, nil)

	f.handler.ListByProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)
}

func TestReviewHandler_Update_Success(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()
	newRating := 3
	updated := &domain.Review{ID: reviewID, ProductID: 1, UserID: 2, Rating: newRating}

	bodyBytes, _ := json.Marshal(map[string]any{"rating": newRating})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/"+reviewID.Hex(), bytes.NewReader(bodyBytes))
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.repo.On("Update", mock.Anything, reviewID, mock.MatchedBy(func(upd domain.ReviewUpdate) bool {
		return upd.Rating != nil && *upd.Rating == newRating
	})).Return(updated, nil)
	f.repo.On("ListAllByProduct", mock.Anything, int64(1)).Return([]*domain.Review{updated}, nil)
	f.statsRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("InvalidateProduct", mock.Anything, int64(1)).Return(nil)
	f.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	f.handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)
}

func TestReviewHandler_Update_InvalidID(t *testing.T) {
	f := newReviewHandlerFixture()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/not-an-oid", bytes.NewReader([]byte("{}")))
	req = withURLParam(req, "id", "not-an-oid")
	w := httptest.NewRecorder()

	f.handler.Update(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Invalid review ID")
}

func TestReviewHandler_Update_NotFound(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()
	bodyBytes, _ := json.Marshal(map[string]any{"rating": 3})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/"+reviewID.Hex(), bytes.NewReader(bodyBytes))
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.repo.On("Update", mock.Anything, reviewID, mock.Anything).Return(nil, domain.ErrNotFound)

	f.handler.Update(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_Update_EmptyBody(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reviews/"+reviewID.Hex(), bytes.NewReader([]byte("{}")))
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.handler.Update(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "No fields to update")
	f.repo.AssertNotCalled(t, "Update")
}

func TestReviewHandler_Delete_Success(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()
	existing := &domain.Review{ID: reviewID, ProductID: 1, UserID: 2, Rating: 5}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+reviewID.Hex(), nil)
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.repo.On("GetByID", mock.Anything, reviewID).Return(existing, nil)
	f.repo.On("Delete", mock.Anything, reviewID).Return(nil)
	f.repo.On("ListAllByProduct", mock.Anything, int64(1)).Return([]*domain.Review{}, nil)
	f.statsRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("InvalidateProduct", mock.Anything, int64(1)).Return(nil)
	f.publisher.On("Publish", mock.Anything, "reviews.events", mock.Anything).Return(nil).Maybe()

	f.handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)

	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]any)
	assert.Equal(t, "Review deleted", data["message"])
}

func TestReviewHandler_Delete_NotFound(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+reviewID.Hex(), nil)
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.repo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	f.handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	f.repo.AssertNotCalled(t, "Delete")
}

func TestReviewHandler_Upvote_Success(t *testing.T) {
	f := newReviewHandlerFixture()

	reviewID := primitive.NewObjectID()
	upvoted := &domain.Review{ID: reviewID, ProductID: 1, UserID: 2, Rating: 5, HelpfulCount: 7}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+reviewID.Hex()+"/upvote", nil)
	req = withURLParam(req, "id", reviewID.Hex())
	w := httptest.NewRecorder()

	f.repo.On("IncrementHelpful", mock.Anything, reviewID).Return(upvoted, nil)
	f.cache.On("InvalidateProduct", mock.Anything, int64(1)).Return(nil)

	f.handler.Upvote(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	f.repo.AssertExpectations(t)
	f.statsRepo.AssertNotCalled(t, "Upsert")

	var response map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]any)
	assert.Equal(t, float64(7), data["helpfulCount"])
}
