// Package memory holds in-memory repository implementations mirroring
// the postgres semantics: tuple-keyed upserts, conditional claims and
// oldest-first batch selection. Used by unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	apperrors "github.com/superstorecomercio/novoguia-notifier/pkg/errors"
)

type NotificationStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.NotificationRecord
	seq     int
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{records: make(map[uuid.UUID]*model.NotificationRecord)}
}

// All returns a snapshot of every stored record.
func (s *NotificationStore) All() []*model.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.NotificationRecord, 0, len(s.records))
	for _, r := range s.records {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// Seed inserts a record directly, bypassing upsert bookkeeping.
func (s *NotificationStore) Seed(rec *model.NotificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		s.seq++
		rec.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	cp := *rec
	s.records[rec.ID] = &cp
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchesTuple(r *model.NotificationRecord, t model.IdentityTuple) bool {
	return sameRef(r.QuoteRequestID, t.QuoteRequestID) &&
		sameRef(r.CampaignID, t.CampaignID) &&
		sameRef(r.CompanyID, t.CompanyID) &&
		r.NotificationType == t.NotificationType
}

func (s *NotificationStore) findByTupleLocked(t model.IdentityTuple) *model.NotificationRecord {
	for _, r := range s.records {
		if matchesTuple(r, t) {
			return r
		}
	}
	return nil
}

func (s *NotificationStore) Upsert(_ context.Context, rec *model.NotificationRecord) (*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := rec.Tuple().Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	if existing := s.findByTupleLocked(rec.Tuple()); existing != nil {
		existing.RecipientAddress = rec.RecipientAddress
		if rec.SubjectLine != nil {
			existing.SubjectLine = rec.SubjectLine
		}
		existing.Status = rec.Status
		existing.Meta = rec.Meta
		if existing.SentAt == nil {
			existing.SentAt = rec.SentAt
		}
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}

	for _, r := range s.records {
		if r.TrackingCode == rec.TrackingCode {
			cp := *r
			return &cp, nil
		}
	}

	cp := *rec
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.seq++
	cp.CreatedAt = now.Add(time.Duration(s.seq) * time.Millisecond)
	cp.UpdatedAt = now
	s.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *NotificationStore) FindByTuple(_ context.Context, t model.IdentityTuple) (*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findByTupleLocked(t); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *NotificationStore) FindByTrackingCode(_ context.Context, code string) (*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.TrackingCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *NotificationStore) SelectBatch(_ context.Context, types []string, limit, maxAttempts int) ([]*model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var out []*model.NotificationRecord
	for _, r := range s.records {
		if r.Status != model.NotificationStatusQueued && r.Status != model.NotificationStatusFailed {
			continue
		}
		if !typeSet[r.NotificationType] {
			continue
		}
		if maxAttempts > 0 && r.AttemptCount() >= maxAttempts {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *NotificationStore) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return false, nil
	}
	if r.Status != model.NotificationStatusQueued && r.Status != model.NotificationStatusFailed {
		return false, nil
	}
	r.Status = model.NotificationStatusSending
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *NotificationStore) MarkSent(_ context.Context, id uuid.UUID, subjectLine string, meta model.DeliveryMeta, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return apperrors.NotFound("notification", nil)
	}
	r.Status = model.NotificationStatusSent
	r.SubjectLine = &subjectLine
	r.Meta = meta
	if r.SentAt == nil {
		r.SentAt = &sentAt
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (s *NotificationStore) MarkFailed(_ context.Context, id uuid.UUID, meta model.DeliveryMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return apperrors.NotFound("notification", nil)
	}
	r.Status = model.NotificationStatusFailed
	r.Meta = meta
	r.UpdatedAt = time.Now()
	return nil
}

// TemplateStore is a fixed map of active templates.
type TemplateStore struct {
	mu        sync.Mutex
	templates map[string]*model.EmailTemplate
	lookups   int
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[string]*model.EmailTemplate)}
}

func (s *TemplateStore) Put(tpl *model.EmailTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.NotificationType] = tpl
}

// Lookups counts GetActive calls that reached the store.
func (s *TemplateStore) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *TemplateStore) GetActive(_ context.Context, notificationType string) (*model.EmailTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++

	tpl, ok := s.templates[notificationType]
	if !ok {
		return nil, apperrors.TemplateNotFound(notificationType)
	}
	if !tpl.Active {
		return nil, apperrors.TemplateInactive(notificationType)
	}
	return tpl, nil
}

// CampaignStore serves campaigns by id and by end date window.
type CampaignStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*model.Campaign
}

func NewCampaignStore() *CampaignStore {
	return &CampaignStore{campaigns: make(map[uuid.UUID]*model.Campaign)}
}

func (s *CampaignStore) Put(c *model.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

func (s *CampaignStore) Get(_ context.Context, id uuid.UUID) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *CampaignStore) ListEndingOn(_ context.Context, dayStart, dayEnd time.Time) ([]*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Campaign
	for _, c := range s.campaigns {
		if !c.Active {
			continue
		}
		if c.EndsAt.Before(dayStart) || !c.EndsAt.Before(dayEnd) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out, nil
}

// CompanyStore serves companies by id.
type CompanyStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]*model.Company
}

func NewCompanyStore() *CompanyStore {
	return &CompanyStore{companies: make(map[uuid.UUID]*model.Company)}
}

func (s *CompanyStore) Put(c *model.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = c
}

func (s *CompanyStore) Get(_ context.Context, id uuid.UUID) (*model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// QuoteRequestStore serves quote requests by id.
type QuoteRequestStore struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]*model.QuoteRequest
}

func NewQuoteRequestStore() *QuoteRequestStore {
	return &QuoteRequestStore{quotes: make(map[uuid.UUID]*model.QuoteRequest)}
}

func (s *QuoteRequestStore) Put(q *model.QuoteRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.ID] = q
}

func (s *QuoteRequestStore) Get(_ context.Context, id uuid.UUID) (*model.QuoteRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.quotes[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, nil
}
