// Package dispatcher drives batched, partial-failure-tolerant delivery
// of queued notifications through the email transport.
package dispatcher

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superstorecomercio/novoguia-notifier/internal/email"
	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/render"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

// Outcome values reported per record.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Detail is one record's outcome within a batch, in selection order.
type Detail struct {
	TrackingCode     string `json:"tracking_code"`
	NotificationType string `json:"notification_type"`
	Recipient        string `json:"recipient"`
	Outcome          string `json:"outcome"`
	Error            string `json:"error,omitempty"`
}

// Result is the batch's audit trail for one invocation.
type Result struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Details []Detail `json:"details"`
}

type Config struct {
	BatchLimit int
	// MaxAttempts excludes records whose attempt history reached the
	// cap from selection; 0 disables the cap.
	MaxAttempts      int
	OperationTimeout time.Duration
	FromAddress      string
	FromName         string
	ReplyTo          string
}

type Service struct {
	notifications repository.NotificationRepository
	campaigns     repository.CampaignRepository
	companies     repository.CompanyRepository
	quotes        repository.QuoteRequestRepository
	renderer      *render.Renderer
	transport     email.Transport
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
	cfg           Config
	now           func() time.Time
}

func NewService(
	notifications repository.NotificationRepository,
	campaigns repository.CampaignRepository,
	companies repository.CompanyRepository,
	quotes repository.QuoteRequestRepository,
	renderer *render.Renderer,
	transport email.Transport,
	broker messaging.Broker,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 15 * time.Second
	}
	return &Service{
		notifications: notifications,
		campaigns:     campaigns,
		companies:     companies,
		quotes:        quotes,
		renderer:      renderer,
		transport:     transport,
		broker:        broker,
		logger:        log,
		metrics:       m,
		cfg:           cfg,
		now:           time.Now,
	}
}

// AllTypes is the default type restriction for scheduled runs.
var AllTypes = []string{
	model.TypeBudgetToCompany,
	model.TypeBudgetToCustomer,
	model.TypeCampaignExpToday,
	model.TypeCampaignExpTomrrw,
	model.TypeNewsletter,
}

// RunBatch selects up to limit queued or failed records of the given
// types, oldest first, and attempts each one sequentially. A single
// record's failure never aborts the batch; only a store read error
// does, and already-committed per-record updates stand.
func (s *Service) RunBatch(ctx context.Context, types []string, limit int) (*Result, error) {
	timer := prometheus.NewTimer(s.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	if limit <= 0 {
		limit = s.cfg.BatchLimit
	}
	if len(types) == 0 {
		types = AllTypes
	}

	records, err := s.selectBatch(ctx, types, limit)
	if err != nil {
		return nil, err
	}
	s.metrics.BatchSize.Observe(float64(len(records)))

	result := &Result{Details: make([]Detail, 0, len(records))}
	for _, rec := range records {
		if ctx.Err() != nil {
			// Deadline expired: committed updates stand, return what
			// completed.
			return result, nil
		}
		result.add(s.process(ctx, rec))
	}

	s.logger.Info("batch finished",
		"selected", len(records),
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

func (r *Result) add(d Detail) {
	r.Details = append(r.Details, d)
	switch d.Outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}

func (s *Service) selectBatch(ctx context.Context, types []string, limit int) ([]*model.NotificationRecord, error) {
	defer s.observeStore("select_batch", time.Now())
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()
	return s.notifications.SelectBatch(opCtx, types, limit, s.cfg.MaxAttempts)
}

func (s *Service) observeStore(operation string, start time.Time) {
	s.metrics.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// process attempts one record end to end: claim, render, send,
// transition.
func (s *Service) process(ctx context.Context, rec *model.NotificationRecord) Detail {
	detail := Detail{
		TrackingCode:     rec.TrackingCode,
		NotificationType: rec.NotificationType,
		Recipient:        rec.RecipientAddress,
	}
	log := s.logger.WithFields(map[string]interface{}{
		"tracking_code":     rec.TrackingCode,
		"notification_type": rec.NotificationType,
	})

	claimed, err := s.claim(ctx, rec)
	if err != nil {
		log.Error(err, "claim failed")
		detail.Outcome = OutcomeSkipped
		detail.Error = err.Error()
		return detail
	}
	if !claimed {
		// Another run already owns this record; silent skip keeps
		// concurrent invocations from double-sending.
		s.metrics.NotificationsSkipped.Inc()
		log.Debug("record already claimed, skipping")
		detail.Outcome = OutcomeSkipped
		return detail
	}

	dc, err := s.loadDomainContext(ctx, rec)
	if err != nil {
		return s.fail(ctx, rec, detail, err, log)
	}

	out, _, err := s.renderer.Render(ctx, rec, dc)
	if err != nil {
		return s.fail(ctx, rec, detail, err, log)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	res, err := s.transport.Send(sendCtx, s.buildMessage(rec, out))
	cancel()
	if err != nil {
		return s.fail(ctx, rec, detail, apperrors.Transport(err), log)
	}

	now := s.now()
	rec.Meta.Merge(model.DeliveryMeta{
		Provider:          res.Provider,
		ProviderMessageID: res.ProviderMessageID,
	})
	rec.Meta.RecordAttempt(now, "")

	if err := s.markSent(ctx, rec, out.Subject, now); err != nil {
		log.Error(err, "failed to persist sent transition")
		detail.Outcome = OutcomeFailed
		detail.Error = err.Error()
		return detail
	}

	s.metrics.NotificationsSent.WithLabelValues(rec.NotificationType).Inc()
	s.publish(ctx, messaging.EventSent, rec, "")
	log.Info("notification sent", "provider_message_id", res.ProviderMessageID)

	detail.Outcome = OutcomeSent
	return detail
}

func (s *Service) buildMessage(rec *model.NotificationRecord, out *render.Output) *email.Message {
	return &email.Message{
		To:       rec.RecipientAddress,
		Subject:  out.Subject,
		HTML:     out.Body,
		From:     s.cfg.FromAddress,
		FromName: s.cfg.FromName,
		ReplyTo:  s.cfg.ReplyTo,
		Metadata: map[string]string{"Tracking-Code": out.TrackingCode},
	}
}

func (s *Service) claim(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	defer s.observeStore("claim", time.Now())
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()
	return s.notifications.Claim(opCtx, rec.ID)
}

// markSent persists the sent transition. The write runs detached from
// the batch deadline: once a send attempt concluded, the outcome must
// land even if the batch context expired mid-send, or the record would
// stay in sending and never be selected again.
func (s *Service) markSent(ctx context.Context, rec *model.NotificationRecord, subject string, sentAt time.Time) error {
	defer s.observeStore("mark_sent", time.Now())
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancel()
	return s.notifications.MarkSent(opCtx, rec.ID, subject, rec.Meta, sentAt)
}

// fail records one delivery failure and moves on; the caller continues
// with the next record.
func (s *Service) fail(ctx context.Context, rec *model.NotificationRecord, detail Detail, cause error, log *logger.Logger) Detail {
	rec.Meta.RecordAttempt(s.now(), cause.Error())

	// Detached from the batch deadline like markSent; a record claimed
	// as sending must always reach failed to stay retry-eligible.
	defer s.observeStore("mark_failed", time.Now())
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancel()
	if err := s.notifications.MarkFailed(opCtx, rec.ID, rec.Meta); err != nil {
		log.Error(err, "failed to persist failed transition")
	}

	reason := reasonLabel(cause)
	s.metrics.NotificationsFailed.WithLabelValues(rec.NotificationType, reason).Inc()
	s.publish(ctx, messaging.EventFailed, rec, cause.Error())
	log.Warn("notification failed", "reason", reason, "error", cause.Error())

	detail.Outcome = OutcomeFailed
	detail.Error = cause.Error()
	return detail
}

func (s *Service) publish(ctx context.Context, eventType string, rec *model.NotificationRecord, errText string) {
	err := s.broker.Publish(ctx, messaging.ChannelNotifications, messaging.Event{
		Type:             eventType,
		TrackingCode:     rec.TrackingCode,
		NotificationType: rec.NotificationType,
		Recipient:        rec.RecipientAddress,
		Error:            errText,
		At:               s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to publish lifecycle event", "error", err.Error())
	}
}

// loadDomainContext fetches the upstream entities the record refers to.
// A read error fails the record, not the batch.
func (s *Service) loadDomainContext(ctx context.Context, rec *model.NotificationRecord) (*render.DomainContext, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	dc := &render.DomainContext{}

	if rec.CampaignID != nil {
		c, err := s.campaigns.Get(opCtx, *rec.CampaignID)
		if err != nil {
			return nil, err
		}
		dc.Campaign = c
	}
	if rec.QuoteRequestID != nil {
		q, err := s.quotes.Get(opCtx, *rec.QuoteRequestID)
		if err != nil {
			return nil, err
		}
		dc.Quote = q
	}
	if rec.CompanyID != nil {
		c, err := s.companies.Get(opCtx, *rec.CompanyID)
		if err != nil {
			return nil, err
		}
		dc.Company = c
	}
	return dc, nil
}

func reasonLabel(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrTemplateNotFound:
		return "template_not_found"
	case apperrors.ErrTemplateInactive:
		return "template_inactive"
	case apperrors.ErrTemplateInvalid:
		return "template_invalid"
	case apperrors.ErrMissingRecipient:
		return "missing_recipient"
	case apperrors.ErrTransport:
		return "transport"
	default:
		return "internal"
	}
}
