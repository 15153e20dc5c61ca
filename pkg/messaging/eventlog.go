package messaging

import (
	"context"
	"encoding/json"

	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
)

// LogEvents consumes lifecycle events from the broker and writes them
// to the structured log, giving operators a tail of delivery activity.
// It blocks until the context is done or the subscription closes, so
// callers run it in its own goroutine.
func LogEvents(ctx context.Context, b Broker, log *logger.Logger) error {
	ch, err := b.Subscribe(ctx, ChannelNotifications)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Warn("discarding malformed lifecycle event", "error", err.Error())
				continue
			}
			log.Info("lifecycle event",
				"type", ev.Type,
				"tracking_code", ev.TrackingCode,
				"notification_type", ev.NotificationType,
				"error", ev.Error)
		}
	}
}
