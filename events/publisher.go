// Package events publishes telemetry to NATS subjects.
package events

import (
	"context"
	"encoding/json"
	"evroaming/internal"
	"evroaming/telemetry"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultPrefix = "roaming.events"

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url, name string, logger internal.LogHandler) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if logger != nil && err != nil {
				logger.Warn(fmt.Sprintf("nats disconnected: %v", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if logger != nil {
				logger.FeatureEvent("nats", "", "reconnected to "+nc.ConnectedUrl())
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher sends every event it observes to <prefix>.<operation>.<kind>.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{nc: nc, prefix: prefix}
}

func Subject(prefix, operation string, kind telemetry.Kind) string {
	return fmt.Sprintf("%s.%s.%s", prefix, operation, kind)
}

func (p *Publisher) Observe(_ context.Context, event *telemetry.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	subject := Subject(p.prefix, event.Operation, event.Kind)
	if err = p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
