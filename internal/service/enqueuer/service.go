// Package enqueuer scans upstream campaigns on a schedule and turns the
// ones entering their expiry window into queued notification records.
package enqueuer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/render"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

// Result is the structured summary returned to the operator.
type Result struct {
	Enqueued int `json:"enqueued"`
	Skipped  int `json:"skipped"`
}

type Service struct {
	notifications repository.NotificationRepository
	campaigns     repository.CampaignRepository
	companies     repository.CompanyRepository
	tracking      *tracking.Service
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	notifications repository.NotificationRepository,
	campaigns repository.CampaignRepository,
	companies repository.CompanyRepository,
	tr *tracking.Service,
	broker messaging.Broker,
	loc *time.Location,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		notifications: notifications,
		campaigns:     campaigns,
		companies:     companies,
		tracking:      tr,
		broker:        broker,
		logger:        log,
		metrics:       m,
		loc:           loc,
		now:           time.Now,
	}
}

// expiry windows scanned on each run: calendar-day offset from today in
// the business timezone, and the notification type each one produces.
var windows = []struct {
	offsetDays       int
	notificationType string
}{
	{0, model.TypeCampaignExpToday},
	{1, model.TypeCampaignExpTomrrw},
}

// Scan finds campaigns ending today or tomorrow (business-timezone
// calendar days) and enqueues one notification per campaign and window.
// A record already touched today is skipped, so repeated same-day scans
// enqueue nothing new, while a campaign re-entering a window on a later
// day is re-notified.
func (s *Service) Scan(ctx context.Context) (*Result, error) {
	timer := prometheus.NewTimer(s.metrics.ScanDuration)
	defer timer.ObserveDuration()

	now := s.now()
	result := &Result{}

	for _, w := range windows {
		dayStart := midnightOffset(now, s.loc, w.offsetDays)
		dayEnd := dayStart.AddDate(0, 0, 1)

		campaigns, err := s.campaigns.ListEndingOn(ctx, dayStart, dayEnd)
		if err != nil {
			// Store unreachable: abort the whole invocation; partial
			// progress from earlier windows stands.
			return result, err
		}

		for _, c := range campaigns {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if s.enqueueCampaign(ctx, c, w.notificationType, now) {
				result.Enqueued++
			} else {
				result.Skipped++
			}
		}
	}

	s.logger.Info("scan finished",
		"enqueued", result.Enqueued,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Service) enqueueCampaign(ctx context.Context, c *model.Campaign, notificationType string, now time.Time) bool {
	log := s.logger.WithFields(map[string]interface{}{
		"campaign_id":       c.ID.String(),
		"notification_type": notificationType,
	})

	company, err := s.companies.Get(ctx, c.CompanyID)
	if err != nil {
		log.Error(err, "failed to load company")
		return false
	}
	if company == nil || company.Email == "" {
		log.Warn("campaign has no usable recipient, skipping")
		return false
	}

	companyID := c.CompanyID
	campaignID := c.ID
	tuple := model.IdentityTuple{
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		NotificationType: notificationType,
	}

	code, existing, err := s.tracking.Resolve(ctx, tuple)
	if err != nil {
		log.Error(err, "failed to resolve tracking code")
		return false
	}

	// Same-day dedup keys off the last-touched timestamp, not mere
	// existence: a record from an earlier day is legitimately
	// re-enqueued.
	if existing != nil && render.SameCalendarDay(existing.UpdatedAt, now, s.loc) {
		log.Debug("already enqueued today, skipping", "tracking_code", code)
		return false
	}

	rec := &model.NotificationRecord{
		TrackingCode:     code,
		NotificationType: notificationType,
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		RecipientAddress: company.Email,
		Status:           model.NotificationStatusQueued,
	}
	if existing != nil {
		rec.Meta = existing.Meta
	}

	stored, err := s.notifications.Upsert(ctx, rec)
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("upsert", "error").Inc()
		log.Error(err, "failed to enqueue notification")
		return false
	}
	s.metrics.StoreOperations.WithLabelValues("upsert", "success").Inc()
	s.metrics.NotificationsEnqueued.WithLabelValues(notificationType).Inc()

	if err := s.broker.Publish(ctx, messaging.ChannelNotifications, messaging.Event{
		Type:             messaging.EventEnqueued,
		TrackingCode:     stored.TrackingCode,
		NotificationType: notificationType,
		Recipient:        company.Email,
		At:               now,
	}); err != nil {
		log.Warn("failed to publish enqueue event", "error", err.Error())
	}

	log.Info("notification enqueued", "tracking_code", stored.TrackingCode)
	return true
}

func midnightOffset(now time.Time, loc *time.Location, days int) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, days)
}
