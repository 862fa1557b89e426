package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/techmarket-labs/techmarket-api/internal/config"
	"github.com/techmarket-labs/techmarket-api/internal/delivery/events"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
	"github.com/techmarket-labs/techmarket-api/internal/pkg/mongodb"
	mongoRepo "github.com/techmarket-labs/techmarket-api/internal/repository/mongodb"
	"github.com/techmarket-labs/techmarket-api/internal/usecase/stats"
	"github.com/techmarket-labs/techmarket-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting stats reconciler...")

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

	projector := stats.NewProjector(reviewRepo, statsRepo, appLogger)
	reconciler := worker.NewReconciler(projector, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	appLogger.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	appLogger.Info("Initializing JetStream stream and consumer...")
	streamConfig := worker.NewStreamConfig(js, appLogger)

	if err := streamConfig.EnsureReviewPipeline(); err != nil {
		appLogger.Fatal("Failed to provision review event pipeline", err)
	}

	// Subscribe to review events using the durable consumer
	sub, err := js.PullSubscribe(events.ReviewStreamSubjects, events.ReviewConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.ReviewStreamName,
		"consumer": events.ReviewConsumerName,
	}).Info("Subscribed to JetStream consumer")

	// Process messages in a goroutine
	go func() {
		for {
			msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				appLogger.WithFields(map[string]any{
					"error": err.Error(),
				}).Error("Failed to fetch messages from JetStream", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, msg := range msgs {
				if err := reconciler.HandleEvent(msg.Data); err != nil {
					appLogger.WithFields(map[string]any{
						"error": err.Error(),
					}).Error("Failed to handle event", err)

					// Redelivered with exponential backoff, discarded after
					// MaxDeliver attempts. The next review event triggers a
					// full recomputation anyway.
					if nackErr := msg.Nak(); nackErr != nil {
						appLogger.WithFields(map[string]any{
							"error": nackErr.Error(),
						}).Error("Failed to NACK message", nackErr)
					}
					continue
				}

				if ackErr := msg.Ack(); ackErr != nil {
					appLogger.WithFields(map[string]any{
						"error": ackErr.Error(),
					}).Error("Failed to ACK message", ackErr)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	appLogger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reconciler.Shutdown(shutdownCtx); err != nil {
		appLogger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Error during shutdown", err)
	}

	appLogger.Info("Stats reconciler stopped")
}
