package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusQueued  NotificationStatus = "queued"
	NotificationStatusSending NotificationStatus = "sending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Valid reports whether s is one of the closed set of statuses. Unknown
// values are rejected at the store boundary.
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusQueued, NotificationStatusSending,
		NotificationStatusSent, NotificationStatusFailed:
		return true
	}
	return false
}

// Notification types handled by the pipeline.
const (
	TypeBudgetToCompany   = "budget-to-company"
	TypeBudgetToCustomer  = "budget-to-customer"
	TypeCampaignExpToday  = "campaign-expiring-today"
	TypeCampaignExpTomrrw = "campaign-expiring-tomorrow"
	TypeNewsletter        = "newsletter"
)

// Attempt is one delivery attempt recorded in the meta history.
type Attempt struct {
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// DeliveryMeta is the typed replacement for the source system's untyped
// JSON metadata column. Merges are additive: later writes append to
// Attempts and only overwrite scalar fields that the writer sets.
type DeliveryMeta struct {
	Provider          string    `json:"provider,omitempty"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	LastError         string    `json:"last_error,omitempty"`
	Attempts          []Attempt `json:"attempts,omitempty"`
}

// Merge folds other into m without dropping history.
func (m *DeliveryMeta) Merge(other DeliveryMeta) {
	if other.Provider != "" {
		m.Provider = other.Provider
	}
	if other.ProviderMessageID != "" {
		m.ProviderMessageID = other.ProviderMessageID
	}
	if other.LastError != "" {
		m.LastError = other.LastError
	}
	m.Attempts = append(m.Attempts, other.Attempts...)
}

// RecordAttempt appends one attempt to the history; errText is empty on
// success.
func (m *DeliveryMeta) RecordAttempt(at time.Time, errText string) {
	m.Attempts = append(m.Attempts, Attempt{At: at, Error: errText})
	if errText != "" {
		m.LastError = errText
	}
}

// Value implements driver.Valuer so the meta persists as JSONB.
func (m DeliveryMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *DeliveryMeta) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = DeliveryMeta{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported meta column type %T", src)
	}
}

// IdentityTuple uniquely identifies one logical notification. Exactly
// one of QuoteRequestID or CampaignID is set.
type IdentityTuple struct {
	QuoteRequestID   *uuid.UUID
	CampaignID       *uuid.UUID
	CompanyID        *uuid.UUID
	NotificationType string
}

func (t IdentityTuple) Validate() error {
	if t.NotificationType == "" {
		return fmt.Errorf("notification type is required")
	}
	if t.QuoteRequestID == nil && t.CampaignID == nil {
		return fmt.Errorf("a subject reference is required")
	}
	if t.QuoteRequestID != nil && t.CampaignID != nil {
		return fmt.Errorf("only one subject reference may be set")
	}
	return nil
}

// NotificationRecord is the unit of work: one logical notification and
// its delivery state. Records are never hard-deleted; they double as
// the idempotency and audit log.
type NotificationRecord struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	TrackingCode     string             `db:"tracking_code" json:"tracking_code"`
	NotificationType string             `db:"notification_type" json:"notification_type"`
	QuoteRequestID   *uuid.UUID         `db:"quote_request_id" json:"quote_request_id,omitempty"`
	CampaignID       *uuid.UUID         `db:"campaign_id" json:"campaign_id,omitempty"`
	CompanyID        *uuid.UUID         `db:"company_id" json:"company_id,omitempty"`
	RecipientAddress string             `db:"recipient_address" json:"recipient_address"`
	SubjectLine      *string            `db:"subject_line" json:"subject_line,omitempty"`
	Status           NotificationStatus `db:"status" json:"status"`
	Meta             DeliveryMeta       `db:"meta" json:"meta"`
	SentAt           *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// Tuple returns the record's idempotency tuple.
func (n *NotificationRecord) Tuple() IdentityTuple {
	return IdentityTuple{
		QuoteRequestID:   n.QuoteRequestID,
		CampaignID:       n.CampaignID,
		CompanyID:        n.CompanyID,
		NotificationType: n.NotificationType,
	}
}

// AttemptCount returns the length of the per-attempt history. Callers
// wanting a retry cap filter on this.
func (n *NotificationRecord) AttemptCount() int {
	return len(n.Meta.Attempts)
}
