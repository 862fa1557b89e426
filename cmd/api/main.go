package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techmarket-labs/techmarket-api/internal/config"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/events"
	httpDelivery "github.com/techmarket-labs/techmarket-api/internal/delivery/http"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/http/handler"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/cache"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/database"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/mongodb"
	cacheRepo "github.com/techmarket-labs/techmarket-api/internal/repository/cache"
	mongoRepo "github.com/techmarket-labs/techmarket-api/internal/repository/mongodb"
	"github.com/techmarket-labs/techmarket-api/internal/repository/postgres"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/analytics"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/cart"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/category"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/product"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/review"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/user"

	_ "github.com/lib/pq"

	_ "github.com/techmarket-labs/techmarket-api/docs"
)

// @title TechMarket API
// @version 1.0
// @description An e-commerce API with product reviews, denormalized rating statistics, and view analytics.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/techmarket-labs/techmarket-api
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Products
// @tag.description Product catalog endpoints

// @tag.name Categories
// @tag.description Category management endpoints

// @tag.name Users
// @tag.description User account endpoints

// @tag.name Carts
// @tag.description Shopping cart endpoints

// @tag.name Reviews
// @tag.description Review management endpoints

// @tag.name Analytics
// @tag.description Review and view analytics endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting TechMarket API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	appLogger.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to MongoDB...")
	mongoClient, err := mongodb.WaitForMongo(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			appLogger.Error("Failed to disconnect from MongoDB", err)
		}
	}()
	mongoDB := mongodb.Database(mongoClient, cfg)
	appLogger.Info("Connected to MongoDB successfully")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	streamConfig := events.NewStreamConfig(publisher.JetStream(), appLogger)
	if err := streamConfig.EnsureReviewPipeline(); err != nil {
		appLogger.Fatal("Failed to provision review event stream", err)
	}

	// Index creation happens inside the Mongo repository constructors
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndex()

	reviewRepo, err := mongoRepo.NewReviewRepository(indexCtx, mongoDB)
	if err != nil {
		appLogger.Fatal("Failed to initialize review repository", err)
	}
	statsRepo, err := mongoRepo.NewRatingStatsRepository(indexCtx, mongoDB)
	if err != nil {
		appLogger.Fatal("Failed to initialize rating stats repository", err)
	}
	viewRepo, err := mongoRepo.NewProductViewRepository(indexCtx, mongoDB)
	if err != nil {
		appLogger.Fatal("Failed to initialize product view repository", err)
	}

	productRepo := postgres.NewProductRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	userRepo := postgres.NewUserRepository(db)
	cartRepo := postgres.NewCartRepository(db)

	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.RatingStatsTTL,
		cfg.Cache.ReviewsListTTL,
	)

	projector := stats.NewProjector(reviewRepo, statsRepo, appLogger)

	reviewService := review.NewService(reviewRepo, productRepo, userRepo, projector, redisCache, publisher, appLogger)
	analyticsService := analytics.NewService(reviewRepo, viewRepo, productRepo, projector, appLogger)
	productService := product.NewService(productRepo, categoryRepo, appLogger)
	categoryService := category.NewService(categoryRepo, appLogger)
	userService := user.NewService(userRepo, appLogger)
	cartService := cart.NewService(cartRepo, productRepo, userRepo, appLogger)

	reviewHandler := handler.NewReviewHandler(reviewService, appLogger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, appLogger)
	productHandler := handler.NewProductHandler(productService, appLogger)
	categoryHandler := handler.NewCategoryHandler(categoryService, appLogger)
	userHandler := handler.NewUserHandler(userService, appLogger)
	cartHandler := handler.NewCartHandler(cartService, appLogger)

	router := httpDelivery.NewRouter(
		reviewHandler,
		analyticsHandler,
		productHandler,
		categoryHandler,
		userHandler,
		cartHandler,
		cfg,
		appLogger,
	)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
