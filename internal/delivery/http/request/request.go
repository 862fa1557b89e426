package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	// Limit request body size to prevent DoS attacks
	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetObjectIDParam extracts a Mongo ObjectID parameter from the URL
func GetObjectIDParam(r *http.Request, key string) (primitive.ObjectID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return primitive.NilObjectID, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := primitive.ObjectIDFromHex(param)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid object ID: %w", err)
	}

	return id, nil
}

// GetInt64Param extracts a positive integer parameter from the URL
func GetInt64Param(r *http.Request, key string) (int64, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return 0, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID: %s", param)
	}

	return id, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetInt64Query extracts an int64 query parameter with a default value
func GetInt64Query(r *http.Request, key string, defaultValue int64) int64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetBoolQuery extracts a boolean query parameter, false when absent or
// malformed
func GetBoolQuery(r *http.Request, key string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return false
	}
	return value
}

// GetPageParams extracts and validates page/limit pagination parameters
func GetPageParams(r *http.Request) (page, limit int) {
	page = GetIntQuery(r, "page", 1)
	limit = GetIntQuery(r, "limit", 10)

	// Validate and clamp values
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	return page, limit
}
