// Package tracking resolves the stable tracking code that correlates
// one logical notification across renders, retries and external
// click/open tracking.
package tracking

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/superstorecomercio/novoguia-notifier/internal/model"
	"github.com/superstorecomercio/novoguia-notifier/internal/repository"
	"github.com/superstorecomercio/novoguia-notifier/pkg/logger"
	"github.com/superstorecomercio/novoguia-notifier/pkg/metrics"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 8
)

type Service struct {
	repo    repository.NotificationRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	prefix  string
}

func NewService(repo repository.NotificationRepository, prefix string, log *logger.Logger, m *metrics.Metrics) *Service {
	if prefix == "" {
		prefix = "NG"
	}
	return &Service{
		repo:    repo,
		logger:  log,
		metrics: m,
		prefix:  prefix,
	}
}

// FindExisting looks up the record for an idempotency tuple. Returns
// the existing record, or nil when none exists.
func (s *Service) FindExisting(ctx context.Context, tuple model.IdentityTuple) (*model.NotificationRecord, error) {
	return s.repo.FindByTuple(ctx, tuple)
}

// Mint generates a fresh tracking code: PREFIX plus 8 uppercase base36
// characters. Collision handling happens at insert time, not here.
func (s *Service) Mint() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate tracking code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return s.prefix + "-" + string(buf), nil
}

// Resolve returns the tracking code for a tuple, reusing the existing
// record's code when one exists and minting otherwise. It persists
// nothing: the caller combines the code with its record write so that
// two concurrent resolutions cannot mint two codes for one tuple.
// The existing record (nil when freshly minted) is returned alongside
// so callers can merge its delivery meta.
func (s *Service) Resolve(ctx context.Context, tuple model.IdentityTuple) (string, *model.NotificationRecord, error) {
	if err := tuple.Validate(); err != nil {
		return "", nil, err
	}

	existing, err := s.repo.FindByTuple(ctx, tuple)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		s.metrics.TrackingCodesReused.Inc()
		s.logger.Debug("reusing tracking code",
			"tracking_code", existing.TrackingCode,
			"notification_type", tuple.NotificationType)
		return existing.TrackingCode, existing, nil
	}

	code, err := s.Mint()
	if err != nil {
		return "", nil, err
	}
	s.metrics.TrackingCodesMinted.Inc()
	s.logger.Debug("minted tracking code",
		"tracking_code", code,
		"notification_type", tuple.NotificationType)
	return code, nil, nil
}
