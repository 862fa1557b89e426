package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/techmarket-labs/techmarket-api/internal/domain"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	appvalidator "github.com/techmarket-labs/techmarket-api/internal/pkg/validator"
)

// ViewIngestor consumes product view events and writes them into the
// productViews collection for the analytics queries.
type ViewIngestor struct {
	views    domain.ProductViewRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewViewIngestor creates a new view ingestor
func NewViewIngestor(views domain.ProductViewRepository, log *logger.Logger) *ViewIngestor {
	return &ViewIngestor{
		views:    views,
		validate: appvalidator.Get(),
		logger:   log,
	}
}

// HandleEvent decodes and stores one view event. Malformed events are
// dropped with a log entry rather than redelivered; they will never
// become valid.
func (w *ViewIngestor) HandleEvent(ctx context.Context, data []byte) error {
	var view domain.ProductView
	if err := json.Unmarshal(data, &view); err != nil {
		w.logger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Failed to unmarshal view event", err)
		return nil
	}

	if err := w.validate.Struct(&view); err != nil {
		w.logger.WithFields(map[string]any{
			"product_id": view.ProductID,
			"user_id":    view.UserID,
			"error":      err.Error(),
		}).Warn("Dropping invalid view event")
		return nil
	}

	if view.ViewDate.IsZero() {
		view.ViewDate = time.Now()
	}
	if view.Source == "" {
		view.Source = "direct"
	}

	if err := w.views.Insert(ctx, &view); err != nil {
		return fmt.Errorf("failed to store view event: %w", err)
	}

	w.logger.WithFields(map[string]any{
		"product_id": view.ProductID,
		"user_id":    view.UserID,
		"source":     view.Source,
	}).Debug("Stored product view")

	return nil
}
