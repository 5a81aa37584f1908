package events

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const reconnectWait = 2 * time.Second

// Connect opens a named NATS connection that reconnects forever and logs
// connection state changes
func Connect(url, name string, log *logger.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS connection %s lost: %v", name, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("NATS connection %s restored to %s", name, c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"url":  url,
		"name": name,
	}).Info("Connected to NATS")

	return nc, nil
}
