package render

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository/memory"
	"github.com/superstorecomercio/novoguia-notifier/internal/template"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

type rendererFixture struct {
	renderer  *Renderer
	store     *memory.NotificationStore
	templates *memory.TemplateStore
}

func newRendererFixture(t *testing.T) *rendererFixture {
	t.Helper()
	store := memory.NewNotificationStore()
	templates := memory.NewTemplateStore()
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	tr := tracking.NewService(store, "NG", log, metrics.NewUnregistered("render_test"))

	r := NewRenderer(tr, templates, saoPaulo(t), time.Minute)
	return &rendererFixture{renderer: r, store: store, templates: templates}
}

func campaignRecord(campaignID, companyID uuid.UUID, recipient string) *model.NotificationRecord {
	return &model.NotificationRecord{
		NotificationType: model.TypeCampaignExpToday,
		CampaignID:       &campaignID,
		CompanyID:        &companyID,
		RecipientAddress: recipient,
		Status:           model.NotificationStatusQueued,
	}
}

func TestRenderProducesSubjectBodyAndTrackingCode(t *testing.T) {
	f := newRendererFixture(t)
	loc := saoPaulo(t)

	f.templates.Put(&model.EmailTemplate{
		NotificationType: model.TypeCampaignExpToday,
		SubjectTemplate:  "Sua campanha {{titulo_campanha}} expira hoje",
		BodyTemplate:     "<p>Olá {{nome_empresa}},</p><p>Término: {{data_termino}}. Código: {{codigo_rastreio}}</p>",
		Active:           true,
	})

	campaignID := uuid.New()
	companyID := uuid.New()
	rec := campaignRecord(campaignID, companyID, "contato@empresa.com.br")

	endsAt := time.Date(2026, 7, 15, 18, 0, 0, 0, loc)
	f.renderer.now = func() time.Time { return time.Date(2026, 7, 15, 9, 0, 0, 0, loc) }

	out, existing, err := f.renderer.Render(context.Background(), rec, &DomainContext{
		Campaign: &model.Campaign{ID: campaignID, CompanyID: companyID, Title: "Verão 2026", EndsAt: endsAt},
		Company:  &model.Company{ID: companyID, Name: "Padaria Central", Email: "contato@empresa.com.br"},
	})
	require.NoError(t, err)
	assert.Nil(t, existing)

	assert.Equal(t, "Sua campanha Verão 2026 expira hoje", out.Subject)
	assert.Contains(t, out.Body, "Olá Padaria Central")
	assert.Contains(t, out.Body, "15/07/2026")
	assert.Contains(t, out.Body, out.TrackingCode)
	assert.Regexp(t, `^NG-[0-9A-Z]{8}$`, out.TrackingCode)
}

func TestRenderMissingRecipient(t *testing.T) {
	f := newRendererFixture(t)

	rec := campaignRecord(uuid.New(), uuid.New(), "")
	_, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{})
	assert.Equal(t, apperrors.ErrMissingRecipient, apperrors.CodeOf(err))

	rec.RecipientAddress = "not-an-email"
	_, _, err = f.renderer.Render(context.Background(), rec, &DomainContext{})
	assert.Equal(t, apperrors.ErrMissingRecipient, apperrors.CodeOf(err))
}

func TestRenderTemplateNotFound(t *testing.T) {
	f := newRendererFixture(t)

	rec := campaignRecord(uuid.New(), uuid.New(), "contato@empresa.com.br")
	_, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{})
	assert.Equal(t, apperrors.ErrTemplateNotFound, apperrors.CodeOf(err))
}

func TestRenderTemplateInactive(t *testing.T) {
	f := newRendererFixture(t)
	f.templates.Put(&model.EmailTemplate{
		NotificationType: model.TypeCampaignExpToday,
		SubjectTemplate:  "s",
		BodyTemplate:     "b",
		Active:           false,
	})

	rec := campaignRecord(uuid.New(), uuid.New(), "contato@empresa.com.br")
	_, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{})
	assert.Equal(t, apperrors.ErrTemplateInactive, apperrors.CodeOf(err))
}

func TestRenderInvalidTemplate(t *testing.T) {
	f := newRendererFixture(t)
	f.templates.Put(&model.EmailTemplate{
		NotificationType: model.TypeCampaignExpToday,
		SubjectTemplate:  "s",
		BodyTemplate:     "{{#if a}}{{#if b}}x{{/if}}{{/if}}",
		Active:           true,
	})

	rec := campaignRecord(uuid.New(), uuid.New(), "contato@empresa.com.br")
	_, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{})
	assert.Equal(t, apperrors.ErrTemplateInvalid, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, template.ErrNestedConditional)
}

func TestRenderCachesActiveTemplates(t *testing.T) {
	f := newRendererFixture(t)
	f.templates.Put(&model.EmailTemplate{
		NotificationType: model.TypeCampaignExpToday,
		SubjectTemplate:  "s",
		BodyTemplate:     "b",
		Active:           true,
	})

	rec := campaignRecord(uuid.New(), uuid.New(), "contato@empresa.com.br")
	_, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{})
	require.NoError(t, err)

	rec2 := campaignRecord(uuid.New(), uuid.New(), "outra@empresa.com.br")
	_, _, err = f.renderer.Render(context.Background(), rec2, &DomainContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.templates.Lookups())
}

func TestRenderQuoteVariables(t *testing.T) {
	f := newRendererFixture(t)
	f.templates.Put(&model.EmailTemplate{
		NotificationType: model.TypeBudgetToCompany,
		SubjectTemplate:  "Novo orçamento de {{nome_cliente}}",
		BodyTemplate:     "Valor: {{valor}}{{#if telefone_cliente}} / Tel: {{telefone_cliente}}{{/if}}",
		Active:           true,
	})

	quoteID := uuid.New()
	companyID := uuid.New()
	rec := &model.NotificationRecord{
		NotificationType: model.TypeBudgetToCompany,
		QuoteRequestID:   &quoteID,
		CompanyID:        &companyID,
		RecipientAddress: "contato@empresa.com.br",
		Status:           model.NotificationStatusQueued,
	}

	out, _, err := f.renderer.Render(context.Background(), rec, &DomainContext{
		Quote: &model.QuoteRequest{
			ID:            quoteID,
			CustomerName:  "João",
			CustomerPhone: "11987654321",
			AmountCents:   250000,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Novo orçamento de João", out.Subject)
	assert.Equal(t, "Valor: R$ 2.500,00 / Tel: (11) 98765-4321", out.Body)
}
