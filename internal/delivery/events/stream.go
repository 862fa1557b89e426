package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/techmarket-labs/techmarket-api/internal/pkg/logger"
)

const (
	// ReviewStreamName is the JetStream stream for review events
	ReviewStreamName = "REVIEWS"

	// ReviewStreamSubjects defines the subjects the review stream listens to
	ReviewStreamSubjects = "reviews.events"

	// ReviewConsumerName is the durable consumer for the stats reconciler
	ReviewConsumerName = "stats-reconciler"

	// ViewStreamName is the JetStream stream for product view events
	ViewStreamName = "VIEWS"

	// ViewStreamSubjects defines the subjects the view stream listens to
	ViewStreamSubjects = "views.events"

	// ViewConsumerName is the durable consumer for the view ingestor
	ViewConsumerName = "view-ingestor"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second
)

// StreamConfig holds the JetStream stream configuration
type StreamConfig struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamContext, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries
// Pattern: 1s, 2s, 4s, 8s, ... (2^n seconds)
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// EnsureStream creates the JetStream stream if it does not exist yet.
// Stream configuration:
// - Retention: Work queue (messages deleted after ack or max deliver)
// - Storage: File (survives restarts)
// - Replicas: 1 (single node)
// - MaxAge: 24 hours (stale events are not useful for reprocessing)
func (s *StreamConfig) EnsureStream(name, subjects, description string) error {
	stream, err := s.js.StreamInfo(name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   name,
			"subjects": subjects,
		}).Info("Creating JetStream stream")

		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:        name,
			Subjects:    []string{subjects},
			Retention:   nats.WorkQueuePolicy,
			Storage:     nats.FileStorage,
			Replicas:    1,
			MaxAge:      24 * time.Hour,
			Discard:     nats.DiscardOld,
			Description: description,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}

		s.logger.Info("JetStream stream created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureConsumer creates the durable consumer if it does not exist yet.
// Consumer configuration:
// - Durable: Survives worker restarts
// - AckExplicit: Worker must explicitly acknowledge messages
// - MaxDeliver: 3 attempts then discard
// - AckWait: 30 seconds to process and ack
// - BackOff: Exponential backoff between retries
//
// Messages that fail every attempt are discarded, not sent to a DLQ. This
// is acceptable because both consumers are idempotent over store state:
// the reconciler recomputes the full projection on the next event, and a
// lost view event only skews analytics marginally.
func (s *StreamConfig) EnsureConsumer(streamName, consumerName, filterSubject, description string) error {
	consumerInfo, err := s.js.ConsumerInfo(streamName, consumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   streamName,
			"consumer": consumerName,
		}).Info("Creating JetStream consumer")

		_, err = s.js.AddConsumer(streamName, &nats.ConsumerConfig{
			Durable:       consumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       AckWait,
			MaxDeliver:    MaxDeliveryAttempts,
			FilterSubject: filterSubject,
			BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
			Description:   description,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}

// EnsureReviewPipeline provisions the review event stream and its
// reconciler consumer.
func (s *StreamConfig) EnsureReviewPipeline() error {
	if err := s.EnsureStream(ReviewStreamName, ReviewStreamSubjects, "Review events stream for rating projection reconciliation"); err != nil {
		return err
	}
	return s.EnsureConsumer(ReviewStreamName, ReviewConsumerName, ReviewStreamSubjects, "Stats reconciler consumer for review events")
}

// EnsureViewPipeline provisions the product view stream and its ingestor
// consumer.
func (s *StreamConfig) EnsureViewPipeline() error {
	if err := s.EnsureStream(ViewStreamName, ViewStreamSubjects, "Product view events stream for analytics ingestion"); err != nil {
		return err
	}
	return s.EnsureConsumer(ViewStreamName, ViewConsumerName, ViewStreamSubjects, "View ingestor consumer for product view events")
}
