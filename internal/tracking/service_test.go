package tracking

import (
	"context"
	"io"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository/memory"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

func newTestService(store *memory.NotificationStore) *Service {
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	return NewService(store, "NG", log, metrics.NewUnregistered("tracking_test"))
}

func TestMintFormat(t *testing.T) {
	svc := newTestService(memory.NewNotificationStore())

	pattern := regexp.MustCompile(`^NG-[0-9A-Z]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := svc.Mint()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestResolveMintsWhenNoRecordExists(t *testing.T) {
	svc := newTestService(memory.NewNotificationStore())

	campaignID := uuid.New()
	companyID := uuid.New()
	tuple := model.IdentityTuple{
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		NotificationType: model.TypeCampaignExpToday,
	}

	code, existing, err := svc.Resolve(context.Background(), tuple)
	require.NoError(t, err)
	assert.Nil(t, existing)
	assert.Regexp(t, `^NG-[0-9A-Z]{8}$`, code)
}

func TestResolveReusesPersistedCode(t *testing.T) {
	store := memory.NewNotificationStore()
	svc := newTestService(store)
	ctx := context.Background()

	campaignID := uuid.New()
	companyID := uuid.New()
	tuple := model.IdentityTuple{
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		NotificationType: model.TypeCampaignExpToday,
	}

	code, _, err := svc.Resolve(ctx, tuple)
	require.NoError(t, err)

	// Persist the record the way a caller would, then resolve again.
	_, err = store.Upsert(ctx, &model.NotificationRecord{
		TrackingCode:     code,
		NotificationType: tuple.NotificationType,
		CampaignID:       tuple.CampaignID,
		CompanyID:        tuple.CompanyID,
		RecipientAddress: "empresa@example.com",
		Status:           model.NotificationStatusQueued,
	})
	require.NoError(t, err)

	again, existing, err := svc.Resolve(ctx, tuple)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, code, again)
	assert.Len(t, store.All(), 1)
}

func TestResolveDistinguishesNotificationTypes(t *testing.T) {
	store := memory.NewNotificationStore()
	svc := newTestService(store)
	ctx := context.Background()

	campaignID := uuid.New()
	companyID := uuid.New()

	today := model.IdentityTuple{CampaignID: &campaignID, CompanyID: &companyID, NotificationType: model.TypeCampaignExpToday}
	tomorrow := model.IdentityTuple{CampaignID: &campaignID, CompanyID: &companyID, NotificationType: model.TypeCampaignExpTomrrw}

	codeToday, _, err := svc.Resolve(ctx, today)
	require.NoError(t, err)
	_, err = store.Upsert(ctx, &model.NotificationRecord{
		TrackingCode:     codeToday,
		NotificationType: today.NotificationType,
		CampaignID:       today.CampaignID,
		CompanyID:        today.CompanyID,
		Status:           model.NotificationStatusQueued,
	})
	require.NoError(t, err)

	codeTomorrow, existing, err := svc.Resolve(ctx, tomorrow)
	require.NoError(t, err)
	assert.Nil(t, existing)
	assert.NotEqual(t, codeToday, codeTomorrow)
}

func TestResolveRejectsInvalidTuple(t *testing.T) {
	svc := newTestService(memory.NewNotificationStore())

	_, _, err := svc.Resolve(context.Background(), model.IdentityTuple{NotificationType: model.TypeNewsletter})
	assert.Error(t, err)
}
