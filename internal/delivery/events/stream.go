package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const (
	// ConsumerName is the durable consumer for rating worker
	ConsumerName = "rating-worker"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding
	// After 3 failed attempts, message is discarded - next review event will recalculate
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second
)

// StreamSpec describes a JetStream stream
type StreamSpec struct {
	Name        string
	Subjects    []string
	Retention   nats.RetentionPolicy
	MaxAge      time.Duration
	Description string
}

// ReviewsStream carries catalog API writes. It is a work queue drained by the rating worker.
var ReviewsStream = StreamSpec{
	Name:        "REVIEWS",
	Subjects:    []string{domain.SubjectReviewEvents},
	Retention:   nats.WorkQueuePolicy,
	MaxAge:      24 * time.Hour,
	Description: "Review events stream for rating calculation",
}

// ShelfStream carries shelf session callbacks. It keeps a short history for audit.
var ShelfStream = StreamSpec{
	Name:        "SHELF",
	Subjects:    []string{domain.SubjectShelfEvents},
	Retention:   nats.LimitsPolicy,
	MaxAge:      time.Hour,
	Description: "Shelf session events (saved reviews, status changes)",
}

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

// streamConfig maps a spec onto the JetStream configuration.
// Storage is file backed with a single replica; old messages are discarded at the limits.
func streamConfig(spec StreamSpec) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        spec.Name,
		Subjects:    spec.Subjects,
		Retention:   spec.Retention,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      spec.MaxAge,
		Discard:     nats.DiscardOld,
		Description: spec.Description,
	}
}

// EnsureStream creates the stream described by spec if it does not exist yet
func (s *StreamConfig) EnsureStream(spec StreamSpec) error {
	stream, err := s.js.StreamInfo(spec.Name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   spec.Name,
			"subjects": spec.Subjects,
		}).Info("Creating JetStream stream")

		if _, err = s.js.AddStream(streamConfig(spec)); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", spec.Name, err)
		}

		s.logger.Infof("JetStream stream %s created successfully", spec.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info for %s: %w", spec.Name, err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// consumerConfig is the durable pull consumer of the rating worker.
// Messages that fail MaxDeliveryAttempts times are discarded: the calculation
// reads database state, so the next review event recalculates anyway.
func consumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliveryAttempts,
		FilterSubject: domain.SubjectReviewEvents,
		BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
		Description:   "Rating worker consumer for processing review events",
	}
}

// EnsureConsumer creates the durable rating worker consumer on ReviewsStream
func (s *StreamConfig) EnsureConsumer() error {
	consumerInfo, err := s.js.ConsumerInfo(ReviewsStream.Name, ConsumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   ReviewsStream.Name,
			"consumer": ConsumerName,
		}).Info("Creating JetStream consumer")

		if _, err = s.js.AddConsumer(ReviewsStream.Name, consumerConfig()); err != nil {
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
