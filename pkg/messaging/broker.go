package messaging

import (
	"context"
	"time"
)

// Broker defines the interface for lifecycle event brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ChannelNotifications carries every pipeline lifecycle event.
const ChannelNotifications = "notifications"

// Lifecycle event types published by the pipeline.
const (
	EventEnqueued = "notification.enqueued"
	EventSent     = "notification.sent"
	EventFailed   = "notification.failed"
)

// Event is the wire form of a notification lifecycle event.
type Event struct {
	Type             string    `json:"type"`
	TrackingCode     string    `json:"tracking_code"`
	NotificationType string    `json:"notification_type"`
	Recipient        string    `json:"recipient,omitempty"`
	Error            string    `json:"error,omitempty"`
	At               time.Time `json:"at"`
}

// NopBroker discards everything. Used when no broker is configured.
type NopBroker struct{}

func (NopBroker) Publish(context.Context, string, interface{}) error { return nil }

func (NopBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (NopBroker) Close() error { return nil }
