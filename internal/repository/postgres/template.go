package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
)

type templateRepository struct {
	BaseRepository
}

func NewTemplateRepository(base BaseRepository) repository.TemplateRepository {
	return &templateRepository{base}
}

// GetActive returns the active template for a notification type.
// A row that exists but is inactive yields ErrTemplateInactive so the
// operator can tell the two apart.
func (r *templateRepository) GetActive(ctx context.Context, notificationType string) (*model.EmailTemplate, error) {
	query := `
		SELECT id, notification_type, subject_template, body_template, active, updated_at
		FROM email_templates
		WHERE notification_type = $1
		ORDER BY active DESC, updated_at DESC
		LIMIT 1
	`

	var tpl model.EmailTemplate
	err := r.db.GetContext(ctx, &tpl, query, notificationType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.TemplateNotFound(notificationType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if !tpl.Active {
		return nil, apperrors.TemplateInactive(notificationType)
	}
	return &tpl, nil
}
