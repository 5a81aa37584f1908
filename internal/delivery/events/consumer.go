package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/game_catalog/internal/config"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

// Handler processes one event payload
type Handler func(data []byte) error

// Consumer fans out core NATS subscriptions. Every subscription joins the
// consumer's queue group, so replicas of one service share the load.
type Consumer struct {
	nc     *nats.Conn
	queue  string
	logger *logger.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewConsumer connects to NATS as name. name is also the queue group.
func NewConsumer(cfg *config.Config, name string, log *logger.Logger) (*Consumer, error) {
	log = log.Component("consumer")

	nc, err := Connect(cfg.NATS.URL, name, log)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		nc:     nc,
		queue:  name,
		logger: log,
	}, nil
}

// Subscribe delivers every message on subject to handler. Handler errors are logged.
func (c *Consumer) Subscribe(subject string, handler Handler) error {
	sub, err := c.nc.QueueSubscribe(subject, c.queue, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", msg.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"subject": subject,
		"queue":   c.queue,
	}).Info("Subscribed to NATS subject")
	return nil
}

// Close drops every subscription and closes the NATS connection
func (c *Consumer) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from %s: %v", sub.Subject, err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// LoggingHandler logs every event indented, tagged with its event type
func LoggingHandler(log *logger.Logger) Handler {
	return func(data []byte) error {
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		pretty, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to indent event: %w", err)
		}

		eventType, _ := event["event_type"].(string)
		log.With("event_type", eventType).Infof("Received event:\n%s", pretty)
		return nil
	}
}
