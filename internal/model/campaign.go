package model

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is a time-bounded ad campaign bought by a company. Read-only
// from the pipeline's perspective.
type Campaign struct {
	ID        uuid.UUID `db:"id"`
	CompanyID uuid.UUID `db:"company_id"`
	Title     string    `db:"title"`
	StartsAt  time.Time `db:"starts_at"`
	EndsAt    time.Time `db:"ends_at"`
	Active    bool      `db:"active"`
}

// Company is a listing that receives notifications.
type Company struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Email string    `db:"email"`
	Phone string    `db:"phone"`
	City  string    `db:"city"`
}

// QuoteRequest is a customer's request for a quote from a company.
type QuoteRequest struct {
	ID            uuid.UUID `db:"id"`
	CompanyID     uuid.UUID `db:"company_id"`
	CustomerName  string    `db:"customer_name"`
	CustomerEmail string    `db:"customer_email"`
	CustomerPhone string    `db:"customer_phone"`
	Description   string    `db:"description"`
	AmountCents   int64     `db:"amount_cents"`
	CreatedAt     time.Time `db:"created_at"`
}
