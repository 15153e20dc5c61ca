package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
)

// zeroUUID stands in for NULL subject refs inside the tuple uniqueness
// index, since postgres treats NULLs as distinct.
const zeroUUID = "00000000-0000-0000-0000-000000000000"

const tupleConflictTarget = `(COALESCE(quote_request_id, '` + zeroUUID + `'::uuid), COALESCE(campaign_id, '` + zeroUUID + `'::uuid), COALESCE(company_id, '` + zeroUUID + `'::uuid), notification_type)`

const trackingCodeConstraint = "notifications_tracking_code_key"

const notificationColumns = `id, tracking_code, notification_type, quote_request_id, campaign_id,
		company_id, recipient_address, subject_line, status, meta, sent_at, created_at, updated_at`

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Upsert(ctx context.Context, rec *model.NotificationRecord) (*model.NotificationRecord, error) {
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("invalid notification status %q", rec.Status)
	}
	if err := rec.Tuple().Validate(); err != nil {
		return nil, fmt.Errorf("invalid notification record: %w", err)
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT ` + tupleConflictTarget + ` DO UPDATE SET
			recipient_address = EXCLUDED.recipient_address,
			subject_line = COALESCE(EXCLUDED.subject_line, notifications.subject_line),
			status = EXCLUDED.status,
			meta = EXCLUDED.meta,
			sent_at = COALESCE(notifications.sent_at, EXCLUDED.sent_at),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + notificationColumns

	var stored model.NotificationRecord
	err := r.db.GetContext(ctx, &stored, query,
		rec.ID,
		rec.TrackingCode,
		rec.NotificationType,
		rec.QuoteRequestID,
		rec.CampaignID,
		rec.CompanyID,
		rec.RecipientAddress,
		rec.SubjectLine,
		rec.Status,
		rec.Meta,
		rec.SentAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		// A clash on the tracking code itself means another writer beat
		// us to this logical notification: re-read and treat the write
		// as already satisfied.
		if isUniqueViolation(err, trackingCodeConstraint) {
			existing, findErr := r.FindByTrackingCode(ctx, rec.TrackingCode)
			if findErr != nil {
				return nil, fmt.Errorf("tracking code collision re-read failed: %w", findErr)
			}
			if existing != nil {
				return existing, nil
			}
			return nil, apperrors.StoreConflict(rec.TrackingCode)
		}
		return nil, fmt.Errorf("failed to upsert notification: %w", err)
	}
	return &stored, nil
}

func (r *notificationRepository) FindByTuple(ctx context.Context, tuple model.IdentityTuple) (*model.NotificationRecord, error) {
	if err := tuple.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE COALESCE(quote_request_id, '` + zeroUUID + `'::uuid) = COALESCE($1, '` + zeroUUID + `'::uuid)
		  AND COALESCE(campaign_id, '` + zeroUUID + `'::uuid) = COALESCE($2, '` + zeroUUID + `'::uuid)
		  AND COALESCE(company_id, '` + zeroUUID + `'::uuid) = COALESCE($3, '` + zeroUUID + `'::uuid)
		  AND notification_type = $4
	`

	var rec model.NotificationRecord
	err := r.db.GetContext(ctx, &rec, query,
		tuple.QuoteRequestID, tuple.CampaignID, tuple.CompanyID, tuple.NotificationType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification by tuple: %w", err)
	}
	return &rec, nil
}

func (r *notificationRepository) FindByTrackingCode(ctx context.Context, code string) (*model.NotificationRecord, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE tracking_code = $1
	`

	var rec model.NotificationRecord
	err := r.db.GetContext(ctx, &rec, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification by tracking code: %w", err)
	}
	return &rec, nil
}

func (r *notificationRepository) SelectBatch(ctx context.Context, types []string, limit, maxAttempts int) ([]*model.NotificationRecord, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status IN ('queued', 'failed')
		  AND notification_type = ANY($1)
		  AND ($2 = 0 OR jsonb_array_length(COALESCE(meta->'attempts', '[]'::jsonb)) < $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	var recs []*model.NotificationRecord
	err := r.db.SelectContext(ctx, &recs, query, pq.StringArray(types), maxAttempts, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select notification batch: %w", err)
	}
	return recs, nil
}

func (r *notificationRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notifications
		SET status = 'sending', updated_at = $2
		WHERE id = $1 AND status IN ('queued', 'failed')
	`

	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID, subjectLine string, meta model.DeliveryMeta, sentAt time.Time) error {
	// sent_at keeps the first successful delivery timestamp.
	query := `
		UPDATE notifications
		SET status = 'sent',
			subject_line = $2,
			meta = $3,
			sent_at = COALESCE(sent_at, $4),
			updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, subjectLine, meta, sentAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, meta model.DeliveryMeta) error {
	query := `
		UPDATE notifications
		SET status = 'failed', meta = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, meta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}
