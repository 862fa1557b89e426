package handler

import (
	"errors"
	"net/http"

	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/request"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/response"
	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/cart"
)

// CartHandler handles HTTP requests for shopping carts
type CartHandler struct {
	service *cart.Service
	logger  *logger.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service *cart.Service, log *logger.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  log,
	}
}

// UpdateCartItemRequest represents the request body for changing a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Get handles GET /api/v1/carts/:userId
// @Summary Get a user's cart
// @Description Get the cart with its items. An empty cart is created on first access.
// @Tags Carts
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]interface{} "Cart with items"
// @Failure 400 {object} map[string]string "Invalid user ID"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /carts/{userId} [get]
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetInt64Param(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	c, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, c)
}

// AddItem handles POST /api/v1/carts/:userId/items
// @Summary Add a product to the cart
// @Description Add a product. Adding a product already in the cart increases its quantity.
// @Tags Carts
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param item body cart.AddRequest true "Product and quantity"
// @Success 200 {object} map[string]interface{} "Updated cart"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "User or product not found"
// @Failure 409 {object} map[string]string "Insufficient stock"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /carts/{userId}/items [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetInt64Param(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req cart.AddRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.AddItem(r.Context(), userID, &req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, c)
}

// UpdateItem handles PUT /api/v1/carts/:userId/items/:itemId
// @Summary Change a cart line's quantity
// @Tags Carts
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param itemId path int true "Cart item ID"
// @Param item body UpdateCartItemRequest true "New quantity"
// @Success 200 {object} map[string]interface{} "Updated cart"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Cart item not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /carts/{userId}/items/{itemId} [put]
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetInt64Param(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	itemID, err := request.GetInt64Param(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	var req UpdateCartItemRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.service.UpdateItemQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, c)
}

// RemoveItem handles DELETE /api/v1/carts/:userId/items/:itemId
// @Summary Remove a cart line
// @Tags Carts
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param itemId path int true "Cart item ID"
// @Success 200 {object} map[string]interface{} "Updated cart"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Cart item not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /carts/{userId}/items/{itemId} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetInt64Param(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	itemID, err := request.GetInt64Param(r, "itemId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	c, err := h.service.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, c)
}

// Clear handles DELETE /api/v1/carts/:userId
// @Summary Empty a user's cart
// @Tags Carts
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Success 204 "Cart emptied"
// @Failure 400 {object} map[string]string "Invalid user ID"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /carts/{userId} [delete]
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetInt64Param(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *CartHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Not enough stock for the requested quantity")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in cart handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
