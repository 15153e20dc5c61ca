package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
)

// NotificationRepository is the single write-coordinated store of the
// pipeline. All writes are keyed by the idempotency tuple, never blind
// inserts.
type NotificationRepository interface {
	// Upsert inserts the record or, if a record already exists for the
	// same idempotency tuple, updates its subject line, recipient
	// address, status and meta while preserving id, tracking code and
	// the first sent_at. Returns the stored row.
	Upsert(ctx context.Context, rec *model.NotificationRecord) (*model.NotificationRecord, error)

	FindByTuple(ctx context.Context, tuple model.IdentityTuple) (*model.NotificationRecord, error)
	FindByTrackingCode(ctx context.Context, code string) (*model.NotificationRecord, error)

	// SelectBatch returns up to limit records with status queued or
	// failed, restricted to the given notification types, oldest first.
	// maxAttempts > 0 excludes records whose attempt history has
	// reached the cap.
	SelectBatch(ctx context.Context, types []string, limit, maxAttempts int) ([]*model.NotificationRecord, error)

	// Claim conditionally transitions a record to sending. It returns
	// false when the record was already claimed or completed by a
	// concurrent run.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	MarkSent(ctx context.Context, id uuid.UUID, subjectLine string, meta model.DeliveryMeta, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, meta model.DeliveryMeta) error
}

// TemplateRepository reads the external template store. The pipeline
// never writes templates.
type TemplateRepository interface {
	GetActive(ctx context.Context, notificationType string) (*model.EmailTemplate, error)
}

// CampaignRepository reads upstream campaign entities.
type CampaignRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	// ListEndingOn returns active campaigns whose end date falls on the
	// given calendar day. The day boundaries are computed by the caller
	// in the business timezone.
	ListEndingOn(ctx context.Context, dayStart, dayEnd time.Time) ([]*model.Campaign, error)
}

// CompanyRepository reads upstream company entities.
type CompanyRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Company, error)
}

// QuoteRequestRepository reads upstream quote requests.
type QuoteRequestRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error)
}
