package enqueuer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository/memory"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/messaging"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

type captureBroker struct {
	messaging.NopBroker
	mu     sync.Mutex
	events []messaging.Event
}

func (b *captureBroker) Publish(_ context.Context, _ string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev, ok := message.(messaging.Event); ok {
		b.events = append(b.events, ev)
	}
	return nil
}

type fixture struct {
	svc       *Service
	store     *memory.NotificationStore
	campaigns *memory.CampaignStore
	companies *memory.CompanyStore
	broker    *captureBroker
	loc       *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	f := &fixture{
		store:     memory.NewNotificationStore(),
		campaigns: memory.NewCampaignStore(),
		companies: memory.NewCompanyStore(),
		broker:    &captureBroker{},
		loc:       loc,
	}
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	m := metrics.NewUnregistered("enqueuer_test")
	tr := tracking.NewService(f.store, "NG", log, m)
	f.svc = NewService(f.store, f.campaigns, f.companies, tr, f.broker, loc, log, m)
	return f
}

// putCampaign registers a campaign ending at the given local time with a
// reachable company.
func (f *fixture) putCampaign(endsAt time.Time, email string) *model.Campaign {
	companyID := uuid.New()
	f.companies.Put(&model.Company{ID: companyID, Name: "Empresa", Email: email})
	c := &model.Campaign{
		ID:        uuid.New(),
		CompanyID: companyID,
		Title:     "Campanha",
		EndsAt:    endsAt,
		Active:    true,
	}
	f.campaigns.Put(c)
	return c
}

func localDay(t *testing.T, loc *time.Location, offsetDays int, hour int) time.Time {
	t.Helper()
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc).AddDate(0, 0, offsetDays)
}

func TestScanEnqueuesBothWindows(t *testing.T) {
	f := newFixture(t)
	f.putCampaign(localDay(t, f.loc, 0, 18), "hoje@empresa.com.br")
	f.putCampaign(localDay(t, f.loc, 1, 18), "amanha@empresa.com.br")
	// Outside both windows; never selected.
	f.putCampaign(localDay(t, f.loc, 5, 18), "depois@empresa.com.br")

	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enqueued)
	assert.Equal(t, 0, res.Skipped)

	records := f.store.All()
	require.Len(t, records, 2)
	types := make(map[string]string)
	for _, r := range records {
		types[r.NotificationType] = r.RecipientAddress
		assert.Equal(t, model.NotificationStatusQueued, r.Status)
		assert.Regexp(t, `^NG-[0-9A-Z]{8}$`, r.TrackingCode)
	}
	assert.Equal(t, "hoje@empresa.com.br", types[model.TypeCampaignExpToday])
	assert.Equal(t, "amanha@empresa.com.br", types[model.TypeCampaignExpTomrrw])

	require.Len(t, f.broker.events, 2)
	for _, ev := range f.broker.events {
		assert.Equal(t, messaging.EventEnqueued, ev.Type)
	}
}

func TestScanSameDayRerunSkips(t *testing.T) {
	f := newFixture(t)
	f.putCampaign(localDay(t, f.loc, 0, 18), "contato@empresa.com.br")

	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enqueued)

	res, err = f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)
	assert.Equal(t, 1, res.Skipped)

	assert.Len(t, f.store.All(), 1)
	assert.Len(t, f.broker.events, 1)
}

func TestScanReNotifiesOnLaterDay(t *testing.T) {
	f := newFixture(t)
	c := f.putCampaign(localDay(t, f.loc, 0, 18), "contato@empresa.com.br")

	// A record last touched yesterday, already delivered once.
	yesterday := time.Now().In(f.loc).AddDate(0, 0, -1)
	sentAt := yesterday
	campaignID := c.ID
	companyID := c.CompanyID
	f.store.Seed(&model.NotificationRecord{
		TrackingCode:     "NG-YESTERDY",
		NotificationType: model.TypeCampaignExpToday,
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		RecipientAddress: "contato@empresa.com.br",
		Status:           model.NotificationStatusSent,
		SentAt:           &sentAt,
		CreatedAt:        yesterday,
		UpdatedAt:        yesterday,
	})

	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enqueued)

	records := f.store.All()
	require.Len(t, records, 1)
	rec := records[0]
	// Requeued under the same tracking code; the first-send timestamp
	// survives.
	assert.Equal(t, "NG-YESTERDY", rec.TrackingCode)
	assert.Equal(t, model.NotificationStatusQueued, rec.Status)
	require.NotNil(t, rec.SentAt)
	assert.True(t, rec.SentAt.Equal(sentAt))
}

func TestScanCreatesNewRecordWhenWindowChanges(t *testing.T) {
	f := newFixture(t)
	c := f.putCampaign(localDay(t, f.loc, 0, 18), "contato@empresa.com.br")

	// Yesterday the campaign matched the "expiring tomorrow" window.
	yesterday := time.Now().In(f.loc).AddDate(0, 0, -1)
	campaignID := c.ID
	companyID := c.CompanyID
	f.store.Seed(&model.NotificationRecord{
		TrackingCode:     "NG-TOMORROW",
		NotificationType: model.TypeCampaignExpTomrrw,
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		RecipientAddress: "contato@empresa.com.br",
		Status:           model.NotificationStatusSent,
		CreatedAt:        yesterday,
		UpdatedAt:        yesterday,
	})

	// Today it matches "expiring today": a different tuple, so a second
	// record appears instead of reusing yesterday's.
	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enqueued)

	records := f.store.All()
	require.Len(t, records, 2)
	byType := make(map[string]*model.NotificationRecord)
	for _, r := range records {
		byType[r.NotificationType] = r
	}
	assert.Equal(t, "NG-TOMORROW", byType[model.TypeCampaignExpTomrrw].TrackingCode)
	assert.Equal(t, model.NotificationStatusSent, byType[model.TypeCampaignExpTomrrw].Status)

	today := byType[model.TypeCampaignExpToday]
	require.NotNil(t, today)
	assert.NotEqual(t, "NG-TOMORROW", today.TrackingCode)
	assert.Equal(t, model.NotificationStatusQueued, today.Status)
}

func TestScanSkipsCompanyWithoutEmail(t *testing.T) {
	f := newFixture(t)
	f.putCampaign(localDay(t, f.loc, 0, 18), "")

	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, f.store.All())
}

func TestScanIgnoresInactiveCampaigns(t *testing.T) {
	f := newFixture(t)
	c := f.putCampaign(localDay(t, f.loc, 0, 18), "contato@empresa.com.br")
	c.Active = false
	f.campaigns.Put(c)

	res, err := f.svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, f.store.All())
}
