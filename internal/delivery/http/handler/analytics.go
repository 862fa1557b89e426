package handler

import (
	"errors"
	"net/http"

	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/request"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/response"
	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/analytics"
)

const defaultWindowDays = 30

// AnalyticsHandler handles HTTP requests for analytics queries
type AnalyticsHandler struct {
	service *analytics.Service
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *analytics.Service, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  log,
	}
}

// ReviewStats handles GET /api/v1/analytics/reviews/stats
// @Summary Rating distribution for a product
// @Description Get the product's review count, average rating, and per-star distribution with derived percentages.
// @Tags Analytics
// @Accept json
// @Produce json
// @Param productId query int true "Product ID"
// @Success 200 {object} map[string]interface{} "Rating breakdown"
// @Failure 400 {object} map[string]string "Missing or invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/reviews/stats [get]
func (h *AnalyticsHandler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	productID := request.GetInt64Query(r, "productId", 0)
	if productID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	breakdown, err := h.service.ReviewStatsByRating(r.Context(), productID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, breakdown)
}

// ReviewTrends handles GET /api/v1/analytics/reviews/trends
// @Summary Daily review trend for a product
// @Description Get per-day review counts and averages for the window, including empty days.
// @Tags Analytics
// @Accept json
// @Produce json
// @Param productId query int true "Product ID"
// @Param days query int false "Window size in days" default(30)
// @Success 200 {object} map[string]interface{} "Daily trend"
// @Failure 400 {object} map[string]string "Missing or invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/reviews/trends [get]
func (h *AnalyticsHandler) ReviewTrends(w http.ResponseWriter, r *http.Request) {
	productID := request.GetInt64Query(r, "productId", 0)
	if productID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	days := request.GetIntQuery(r, "days", defaultWindowDays)
	if days < 1 || days > 365 {
		days = defaultWindowDays
	}

	trends, err := h.service.ReviewTrendsByDay(r.Context(), productID, days)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, trends)
}

// ViewStats handles GET /api/v1/analytics/views/stats
// @Summary View summary for a product
// @Description Get windowed view totals, unique users, average duration, source breakdown and conversion rate.
// @Tags Analytics
// @Accept json
// @Produce json
// @Param productId query int true "Product ID"
// @Param days query int false "Window size in days" default(30)
// @Success 200 {object} map[string]interface{} "View summary"
// @Failure 400 {object} map[string]string "Missing or invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/views/stats [get]
func (h *AnalyticsHandler) ViewStats(w http.ResponseWriter, r *http.Request) {
	productID := request.GetInt64Query(r, "productId", 0)
	if productID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	days := request.GetIntQuery(r, "days", defaultWindowDays)
	if days < 1 || days > 365 {
		days = defaultWindowDays
	}

	summary, err := h.service.ViewStatsForWindow(r.Context(), productID, days)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, summary)
}

// ViewTrends handles GET /api/v1/analytics/views/trends
// @Summary Bucketed view trend for a product
// @Description Get view counts grouped by hour, day, week or month over the window.
// @Tags Analytics
// @Accept json
// @Produce json
// @Param productId query int true "Product ID"
// @Param days query int false "Window size in days" default(30)
// @Param groupBy query string false "Granularity: hour, day, week or month" default(day)
// @Success 200 {object} map[string]interface{} "Bucketed trend"
// @Failure 400 {object} map[string]string "Missing product ID or unknown granularity"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/views/trends [get]
func (h *AnalyticsHandler) ViewTrends(w http.ResponseWriter, r *http.Request) {
	productID := request.GetInt64Query(r, "productId", 0)
	if productID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	days := request.GetIntQuery(r, "days", defaultWindowDays)
	if days < 1 || days > 365 {
		days = defaultWindowDays
	}

	groupBy := domain.ViewGranularity(r.URL.Query().Get("groupBy"))
	if groupBy == "" {
		groupBy = domain.GroupByDay
	}

	trends, err := h.service.ViewTrendsForWindow(r.Context(), productID, days, groupBy)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, trends)
}

// Recommendations handles GET /api/v1/analytics/recommendations
// @Summary Product recommendations for a user
// @Description Get recommended products: similar-user based when possible, falling back to shared categories, then to globally popular products.
// @Tags Analytics
// @Accept json
// @Produce json
// @Param userId query int true "User ID"
// @Param limit query int false "Maximum recommendations" default(5)
// @Success 200 {object} map[string]interface{} "Recommendations with their strategy"
// @Failure 400 {object} map[string]string "Missing or invalid user ID"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/recommendations [get]
func (h *AnalyticsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := request.GetInt64Query(r, "userId", 0)
	if userID <= 0 {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	limit := request.GetIntQuery(r, "limit", 5)
	if limit < 1 || limit > 50 {
		limit = 5
	}

	recs, err := h.service.Recommend(r.Context(), userID, limit)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"recommendationType": recs.Type,
		"data": map[string]interface{}{
			"recommendations": recs.Recommendations,
		},
	})
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *AnalyticsHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in analytics handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
