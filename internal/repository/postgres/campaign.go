package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
)

type campaignRepository struct {
	BaseRepository
}

func NewCampaignRepository(base BaseRepository) repository.CampaignRepository {
	return &campaignRepository{base}
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `
		SELECT id, company_id, title, starts_at, ends_at, active
		FROM campaigns
		WHERE id = $1
	`

	var c model.Campaign
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return &c, nil
}

func (r *campaignRepository) ListEndingOn(ctx context.Context, dayStart, dayEnd time.Time) ([]*model.Campaign, error) {
	query := `
		SELECT id, company_id, title, starts_at, ends_at, active
		FROM campaigns
		WHERE active = true
		  AND ends_at >= $1 AND ends_at < $2
		ORDER BY ends_at ASC
	`

	var campaigns []*model.Campaign
	err := r.db.SelectContext(ctx, &campaigns, query, dayStart, dayEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list ending campaigns: %w", err)
	}
	return campaigns, nil
}

type companyRepository struct {
	BaseRepository
}

func NewCompanyRepository(base BaseRepository) repository.CompanyRepository {
	return &companyRepository{base}
}

func (r *companyRepository) Get(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	query := `
		SELECT id, name, email, phone, city
		FROM companies
		WHERE id = $1
	`

	var c model.Company
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	return &c, nil
}

type quoteRequestRepository struct {
	BaseRepository
}

func NewQuoteRequestRepository(base BaseRepository) repository.QuoteRequestRepository {
	return &quoteRequestRepository{base}
}

func (r *quoteRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.QuoteRequest, error) {
	query := `
		SELECT id, company_id, customer_name, customer_email, customer_phone,
			description, amount_cents, created_at
		FROM quote_requests
		WHERE id = $1
	`

	var q model.QuoteRequest
	err := r.db.GetContext(ctx, &q, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quote request: %w", err)
	}
	return &q, nil
}
