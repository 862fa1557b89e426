package handler

import (
	"errors"
	"net/http"

	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/request"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/response"
	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review
type CreateReviewRequest struct {
	UserID           int64    `json:"userId"`
	Rating           int      `json:"rating"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	VerifiedPurchase bool     `json:"verifiedPurchase"`
}

// Create handles POST /api/v1/reviews/:id where :id is the product ID
// @Summary Create a review for a product
// @Description Create a review. Each user may review a product at most once. The product's rating summary is recalculated before the response is sent.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body or referenced product/user missing"
// @Failure 409 {object} map[string]string "User already reviewed this product"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetInt64Param(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rev := &domain.Review{
		ProductID:        productID,
		UserID:           req.UserID,
		Rating:           req.Rating,
		Title:            req.Title,
		Content:          req.Content,
		Pros:             req.Pros,
		Cons:             req.Cons,
		VerifiedPurchase: req.VerifiedPurchase,
	}

	if err := h.service.Create(r.Context(), rev); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, rev)
}

// List handles GET /api/v1/reviews
// @Summary List reviews for a product
// @Description Get a filtered, sorted, paginated list of reviews with the product's rating summary. Results are cached.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param productId query int true "Product ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(10)
// @Param sortBy query string false "Sort field: createdAt, updatedAt, rating, helpfulCount" default(createdAt)
// @Param sortOrder query string false "Sort order: asc or desc" default(desc)
// @Param minRating query int false "Minimum rating filter"
// @Param maxRating query int false "Maximum rating filter"
// @Param verifiedOnly query bool false "Only verified purchases"
// @Param query query string false "Full-text search over title, content, pros and cons"
// @Success 200 {object} map[string]interface{} "Page of reviews with rating stats"
// @Failure 400 {object} map[string]string "Missing or unknown product"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID := request.GetInt64Query(r, "productId", 0)
	h.list(w, r, productID)
}

// ListByProduct handles GET /api/v1/products/:id/reviews
// @Summary List reviews for a product by path
// @Description Same as GET /reviews with the product taken from the path.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(10)
// @Success 200 {object} map[string]interface{} "Page of reviews with rating stats"
// @Failure 400 {object} map[string]string "Missing or unknown product"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetInt64Param(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}
	h.list(w, r, productID)
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, productID int64) {
	page, limit := request.GetPageParams(r)

	filter := domain.ReviewFilter{
		ProductID:    productID,
		Page:         page,
		Limit:        limit,
		SortBy:       r.URL.Query().Get("sortBy"),
		SortOrder:    r.URL.Query().Get("sortOrder"),
		VerifiedOnly: request.GetBoolQuery(r, "verifiedOnly"),
		Query:        r.URL.Query().Get("query"),
	}

	if v := request.GetIntQuery(r, "minRating", 0); v > 0 {
		filter.MinRating = &v
	}
	if v := request.GetIntQuery(r, "maxRating", 0); v > 0 {
		filter.MaxRating = &v
	}

	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       len(result.Reviews),
		"total":       result.Total,
		"page":        result.Page,
		"pages":       result.Pages,
		"data":        result.Reviews,
		"ratingStats": result.Stats,
	})
}

// Update handles PATCH /api/v1/reviews/:id
// @Summary Update a review
// @Description Partially update a review. Only provided fields change. The product's rating summary is recalculated.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (ObjectID hex)"
// @Param review body domain.ReviewUpdate true "Fields to change"
// @Success 200 {object} map[string]interface{} "Updated review"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [patch]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetObjectIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var upd domain.ReviewUpdate
	if err := request.DecodeJSON(r, &upd); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if upd.Empty() {
		response.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}

	rev, err := h.service.Update(r.Context(), id, upd)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Delete a review. The product's rating summary is recalculated.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (ObjectID hex)"
// @Success 200 {object} map[string]interface{} "Deletion confirmation"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetObjectIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Review deleted"})
}

// Upvote handles POST /api/v1/reviews/:id/upvote
// @Summary Mark a review as helpful
// @Description Increment the review's helpful counter. Does not touch the rating summary.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (ObjectID hex)"
// @Success 200 {object} map[string]interface{} "Review with incremented counter"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id}/upvote [post]
func (h *ReviewHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetObjectIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	rev, err := h.service.Upvote(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "User has already reviewed this product")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review, product or user not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
