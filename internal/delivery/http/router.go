package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/techmarket-labs/techmarket-api/internal/config"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/handler"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/middleware"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/response"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	reviewHandler    *handler.ReviewHandler
	analyticsHandler *handler.AnalyticsHandler
	productHandler   *handler.ProductHandler
	categoryHandler  *handler.CategoryHandler
	userHandler      *handler.UserHandler
	cartHandler      *handler.CartHandler
	logger           *logger.Logger
	cfg              *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	reviewHandler *handler.ReviewHandler,
	analyticsHandler *handler.AnalyticsHandler,
	productHandler *handler.ProductHandler,
	categoryHandler *handler.CategoryHandler,
	userHandler *handler.UserHandler,
	cartHandler *handler.CartHandler,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		reviewHandler:    reviewHandler,
		analyticsHandler: analyticsHandler,
		productHandler:   productHandler,
		categoryHandler:  categoryHandler,
		userHandler:      userHandler,
		cartHandler:      cartHandler,
		logger:           log,
		cfg:              cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", rt.productHandler.Create)
			r.Get("/", rt.productHandler.List)
			r.Get("/{id}", rt.productHandler.GetByID)
			r.Put("/{id}", rt.productHandler.Update)
			r.Delete("/{id}", rt.productHandler.Delete)
			r.Get("/{id}/reviews", rt.reviewHandler.ListByProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", rt.categoryHandler.Create)
			r.Get("/", rt.categoryHandler.List)
			r.Get("/{id}", rt.categoryHandler.GetByID)
			r.Put("/{id}", rt.categoryHandler.Update)
			r.Delete("/{id}", rt.categoryHandler.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", rt.userHandler.Register)
			r.Get("/", rt.userHandler.List)
			r.Get("/{id}", rt.userHandler.GetByID)
			r.Put("/{id}", rt.userHandler.Update)
			r.Delete("/{id}", rt.userHandler.Delete)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Get("/{userId}", rt.cartHandler.Get)
			r.Delete("/{userId}", rt.cartHandler.Clear)
			r.Post("/{userId}/items", rt.cartHandler.AddItem)
			r.Put("/{userId}/items/{itemId}", rt.cartHandler.UpdateItem)
			r.Delete("/{userId}/items/{itemId}", rt.cartHandler.RemoveItem)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", rt.reviewHandler.List)
			r.Post("/{id}", rt.reviewHandler.Create)
			r.Patch("/{id}", rt.reviewHandler.Update)
			r.Delete("/{id}", rt.reviewHandler.Delete)
			r.Post("/{id}/upvote", rt.reviewHandler.Upvote)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/reviews/stats", rt.analyticsHandler.ReviewStats)
			r.Get("/reviews/trends", rt.analyticsHandler.ReviewTrends)
			r.Get("/views/stats", rt.analyticsHandler.ViewStats)
			r.Get("/views/trends", rt.analyticsHandler.ViewTrends)
			r.Get("/recommendations", rt.analyticsHandler.Recommendations)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
