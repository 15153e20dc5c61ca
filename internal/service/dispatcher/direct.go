package dispatcher

import (
	"context"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
)

// SendDirect renders and synchronously delivers a one-off notification
// outside the scheduled-scan family (e.g. a quote notification fired by
// a user action). The record is written with status sent or failed
// immediately after the attempt; the idempotency tuple still guards
// against duplicates. Only store failures surface as an error.
func (s *Service) SendDirect(ctx context.Context, rec *model.NotificationRecord) (Detail, error) {
	detail := Detail{
		NotificationType: rec.NotificationType,
		Recipient:        rec.RecipientAddress,
	}
	log := s.logger.WithFields(map[string]interface{}{
		"notification_type": rec.NotificationType,
	})

	dc, err := s.loadDomainContext(ctx, rec)
	if err != nil {
		return detail, err
	}

	out, existing, rerr := s.renderer.Render(ctx, rec, dc)
	if rerr != nil && !apperrors.IsRecordError(rerr) {
		// Invalid tuple or store failure, nothing worth persisting.
		return detail, rerr
	}
	if existing != nil {
		rec.Meta = existing.Meta
		if existing.SentAt != nil {
			sentAt := *existing.SentAt
			rec.SentAt = &sentAt
		}
	}

	if rerr != nil {
		if out != nil {
			rec.TrackingCode = out.TrackingCode
		}
		rec.Status = model.NotificationStatusFailed
		rec.Meta.RecordAttempt(s.now(), rerr.Error())
		stored, uerr := s.notifications.Upsert(ctx, rec)
		if uerr != nil {
			return detail, uerr
		}
		detail.TrackingCode = stored.TrackingCode
		detail.Outcome = OutcomeFailed
		detail.Error = rerr.Error()
		s.metrics.NotificationsFailed.WithLabelValues(rec.NotificationType, reasonLabel(rerr)).Inc()
		s.publish(ctx, messaging.EventFailed, stored, rerr.Error())
		log.Warn("direct send failed at render", "error", rerr.Error())
		return detail, nil
	}

	rec.TrackingCode = out.TrackingCode
	detail.TrackingCode = out.TrackingCode

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	res, serr := s.transport.Send(sendCtx, s.buildMessage(rec, out))
	cancel()

	// Once the transport attempt concluded the outcome must be
	// persisted even if the request context expired during the send.
	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancelPersist()

	now := s.now()
	if serr != nil {
		terr := apperrors.Transport(serr)
		rec.Status = model.NotificationStatusFailed
		rec.Meta.RecordAttempt(now, terr.Error())
		stored, uerr := s.notifications.Upsert(persistCtx, rec)
		if uerr != nil {
			return detail, uerr
		}
		detail.Outcome = OutcomeFailed
		detail.Error = terr.Error()
		s.metrics.NotificationsFailed.WithLabelValues(rec.NotificationType, "transport").Inc()
		s.publish(ctx, messaging.EventFailed, stored, terr.Error())
		log.Warn("direct send failed at transport", "error", terr.Error())
		return detail, nil
	}

	rec.Status = model.NotificationStatusSent
	rec.Meta.Merge(model.DeliveryMeta{
		Provider:          res.Provider,
		ProviderMessageID: res.ProviderMessageID,
	})
	rec.Meta.RecordAttempt(now, "")
	subject := out.Subject
	rec.SubjectLine = &subject
	if rec.SentAt == nil {
		rec.SentAt = &now
	}

	stored, uerr := s.notifications.Upsert(persistCtx, rec)
	if uerr != nil {
		return detail, uerr
	}

	s.metrics.NotificationsSent.WithLabelValues(rec.NotificationType).Inc()
	s.publish(ctx, messaging.EventSent, stored, "")
	log.Info("direct notification sent",
		"tracking_code", stored.TrackingCode,
		"provider_message_id", res.ProviderMessageID)

	detail.Outcome = OutcomeSent
	return detail, nil
}
