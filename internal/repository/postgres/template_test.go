package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
)

func newMockTemplateRepo(t *testing.T) (*templateRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &templateRepository{NewBaseRepository(sqlx.NewDb(db, "sqlmock"))}, mock
}

func templateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "notification_type", "subject_template", "body_template", "active", "updated_at",
	})
}

func TestGetActive(t *testing.T) {
	repo, mock := newMockTemplateRepo(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM email_templates\s+WHERE notification_type = \$1`).
		WithArgs(model.TypeNewsletter).
		WillReturnRows(templateRows().AddRow(
			uuid.New().String(), model.TypeNewsletter, "Assunto", "<p>Corpo</p>", true, time.Now(),
		))

	tpl, err := repo.GetActive(context.Background(), model.TypeNewsletter)
	require.NoError(t, err)
	assert.Equal(t, "Assunto", tpl.SubjectTemplate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveNotFound(t *testing.T) {
	repo, mock := newMockTemplateRepo(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM email_templates`).
		WithArgs(model.TypeNewsletter).
		WillReturnRows(templateRows())

	_, err := repo.GetActive(context.Background(), model.TypeNewsletter)
	assert.Equal(t, apperrors.ErrTemplateNotFound, apperrors.CodeOf(err))
}

func TestGetActiveInactiveTemplate(t *testing.T) {
	repo, mock := newMockTemplateRepo(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM email_templates`).
		WithArgs(model.TypeNewsletter).
		WillReturnRows(templateRows().AddRow(
			uuid.New().String(), model.TypeNewsletter, "Assunto", "<p>Corpo</p>", false, time.Now(),
		))

	_, err := repo.GetActive(context.Background(), model.TypeNewsletter)
	assert.Equal(t, apperrors.ErrTemplateInactive, apperrors.CodeOf(err))
}
