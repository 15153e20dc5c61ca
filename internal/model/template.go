package model

import (
	"time"

	"github.com/google/uuid"
)

// EmailTemplate is one entry of the template repository, keyed by
// notification type. The pipeline only reads these.
type EmailTemplate struct {
	ID               uuid.UUID `db:"id"`
	NotificationType string    `db:"notification_type"`
	SubjectTemplate  string    `db:"subject_template"`
	BodyTemplate     string    `db:"body_template"`
	Active           bool      `db:"active"`
	UpdatedAt        time.Time `db:"updated_at"`
}
