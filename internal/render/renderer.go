// Package render turns a notification record plus its upstream domain
// entities into a finished subject/body pair.
package render

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	"github.com/superstorecomercio/novoguia-notifier/internal/template"
	"github.com/superstorecomercio/novoguia-notifier/internal/tracking"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
	"github.com/superstorecomercio/novoguia-notifier/pkg/validator"
)

// DomainContext carries the upstream entities a notification refers to.
// Only the fields matching the record's references need to be set.
type DomainContext struct {
	Campaign *model.Campaign
	Company  *model.Company
	Quote    *model.QuoteRequest
}

// Output is the finished rendering of one notification.
type Output struct {
	Subject      string
	Body         string
	TrackingCode string
}

// Renderer composes the template engine with the per-type variable
// builders. Apart from tracking-code resolution it has no side effects;
// the record write happens at send time in the dispatcher.
type Renderer struct {
	tracking  *tracking.Service
	templates repository.TemplateRepository

	// cache holds active templates for a bounded TTL; a template
	// repository write becomes visible at most one TTL later.
	cache    *gocache.Cache
	cacheTTL time.Duration

	loc      *time.Location
	validate validator.Validator
	now      func() time.Time
}

func NewRenderer(tr *tracking.Service, templates repository.TemplateRepository, loc *time.Location, cacheTTL time.Duration) *Renderer {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Renderer{
		tracking:  tr,
		templates: templates,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		cacheTTL:  cacheTTL,
		loc:       loc,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Render resolves the record's tracking code, builds the variable map
// from the domain context and expands the type's subject and body
// templates. The returned existing record (nil when none) lets the
// caller merge prior delivery meta. On errors past tuple resolution the
// Output still carries the tracking code, so a failed attempt can be
// persisted under it; Subject and Body are only set on success.
func (r *Renderer) Render(ctx context.Context, rec *model.NotificationRecord, dc *DomainContext) (*Output, *model.NotificationRecord, error) {
	code, existing, err := r.tracking.Resolve(ctx, rec.Tuple())
	if err != nil {
		return nil, nil, err
	}
	out := &Output{TrackingCode: code}

	if err := r.validate.ValidateEmail("recipient address", rec.RecipientAddress); err != nil {
		return out, existing, apperrors.MissingRecipient(code)
	}

	tpl, err := r.activeTemplate(ctx, rec.NotificationType)
	if err != nil {
		return out, existing, err
	}

	vars := r.buildVariables(rec, dc, code)

	out.Subject, err = template.Render(tpl.SubjectTemplate, vars)
	if err != nil {
		return out, existing, apperrors.TemplateInvalid(rec.NotificationType, err)
	}
	out.Body, err = template.Render(tpl.BodyTemplate, vars)
	if err != nil {
		return out, existing, apperrors.TemplateInvalid(rec.NotificationType, err)
	}
	return out, existing, nil
}

func (r *Renderer) activeTemplate(ctx context.Context, notificationType string) (*model.EmailTemplate, error) {
	if cached, ok := r.cache.Get(notificationType); ok {
		return cached.(*model.EmailTemplate), nil
	}
	tpl, err := r.templates.GetActive(ctx, notificationType)
	if err != nil {
		// Misses and inactive templates are not cached so an operator
		// fix takes effect on the next attempt.
		return nil, err
	}
	r.cache.Set(notificationType, tpl, r.cacheTTL)
	return tpl, nil
}

func (r *Renderer) buildVariables(rec *model.NotificationRecord, dc *DomainContext, code string) map[string]interface{} {
	vars := map[string]interface{}{
		"codigo_rastreio": code,
	}

	if dc == nil {
		return vars
	}

	if c := dc.Company; c != nil {
		vars["nome_empresa"] = c.Name
		vars["email_empresa"] = c.Email
		vars["telefone_empresa"] = NormalizePhone(c.Phone)
		vars["cidade"] = c.City
	}

	if q := dc.Quote; q != nil {
		vars["nome_cliente"] = q.CustomerName
		vars["email_cliente"] = q.CustomerEmail
		vars["telefone_cliente"] = NormalizePhone(q.CustomerPhone)
		vars["descricao"] = q.Description
		if q.AmountCents > 0 {
			vars["valor"] = FormatCurrency(q.AmountCents)
		}
		vars["data_pedido"] = FormatDate(q.CreatedAt, r.loc)
	}

	if c := dc.Campaign; c != nil {
		vars["titulo_campanha"] = c.Title
		vars["data_inicio"] = FormatDate(c.StartsAt, r.loc)
		vars["data_termino"] = FormatDate(c.EndsAt, r.loc)
		vars["dias_restantes"] = DaysUntil(r.now(), c.EndsAt, r.loc)
	}

	return vars
}
