// internal/adapter/events/nats.go

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"legisdash/internal/domain/dataset"
)

// NATSPublisher publishes dataset events as JSON on a subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher creates a publisher on subject
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
	}
}

// Publish sends the event; subscribers filter on the type field
func (p *NATSPublisher) Publish(ctx context.Context, event dataset.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("error publishing event: %w", err)
	}
	return nil
}

// Subject returns the subject events are published on
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Nop drops every event; used when NATS is disabled
type Nop struct{}

func (Nop) Publish(ctx context.Context, event dataset.Event) error {
	return nil
}
