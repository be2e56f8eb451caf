package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/repository"
	apperrors "github.com/spec-kit/access-gate/pkg/util/errorutil"
)

// AnalyticsService produces read-only rollups over the admission audit log.
type AnalyticsService struct {
	scanEvents repository.ScanEventRepository
	policy     *authz.Engine
}

// NewAnalyticsService builds the service.
func NewAnalyticsService(scanEvents repository.ScanEventRepository, policy *authz.Engine) *AnalyticsService {
	return &AnalyticsService{scanEvents: scanEvents, policy: policy}
}

// Rollup aggregates accepted scans whose date falls within [start, end],
// inclusive on both ends. Reads see every event committed before the call
// began and never block concurrent writers. Admin only.
func (s *AnalyticsService) Rollup(ctx context.Context, callerID string, start, end time.Time) (*domain.ScanRollup, error) {
	admin, err := s.policy.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, pgx.ErrNoRows
	}

	if end.Before(start) {
		return nil, apperrors.NewValidationError("end date precedes start date", nil)
	}
	return s.scanEvents.Rollup(ctx, start, end)
}
