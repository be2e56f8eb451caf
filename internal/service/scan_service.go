package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/events"
	"github.com/spec-kit/access-gate/internal/observability"
	"github.com/spec-kit/access-gate/internal/repository"
	apperrors "github.com/spec-kit/access-gate/pkg/util/errorutil"
)

// Scan rejection codes returned to the operator.
const (
	ScanErrorInvalidCredential   = "INVALID_CREDENTIAL"
	ScanErrorSubscriptionMissing = "SUBSCRIPTION_MISSING"
	ScanErrorSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
)

// ScanInput carries one presented token plus scan metadata.
type ScanInput struct {
	Credential string
	Kind       string
	Actor      string
	Location   string
	Note       *string
}

// ScanResult is the structured outcome of a scan decision. Rejections are
// results, not errors: callers branch on Success. Identity fields are filled
// on subscription rejections to aid operator diagnosis.
type ScanResult struct {
	Success    bool
	Error      string
	ScanID     string
	IdentityID string
	Name       string
	Kind       domain.ScanKind
	Timestamp  time.Time
}

// ScanService makes the accept/reject decision for presented tokens and owns
// the admission audit log.
type ScanService struct {
	identities  repository.IdentityRepository
	scanEvents  repository.ScanEventRepository
	memberships repository.RoleMembershipRepository
	policy      *authz.Engine
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
}

// ScanDependencies bundles requirements for the scan service.
type ScanDependencies struct {
	IdentityRepo       repository.IdentityRepository
	ScanEventRepo      repository.ScanEventRepository
	RoleMembershipRepo repository.RoleMembershipRepository
	Policy             *authz.Engine
	Dispatcher         events.Dispatcher
	Metrics            *observability.Metrics
}

// NewScanService builds the service.
func NewScanService(deps ScanDependencies) *ScanService {
	return &ScanService{
		identities:  deps.IdentityRepo,
		scanEvents:  deps.ScanEventRepo,
		memberships: deps.RoleMembershipRepo,
		policy:      deps.Policy,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
	}
}

// ValidateScan runs one self-contained admission decision: resolve the token,
// resolve the subscription window, and append an audit event only on
// acceptance. Entry and exit scans are both always accepted for an active
// subscription; no alternation or duplicate suppression is applied. Rejected
// scans leave no audit record (counters only).
func (s *ScanService) ValidateScan(ctx context.Context, callerID string, input ScanInput) (*ScanResult, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityScanEvent, authz.OperationCreate, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}

	kind, err := domain.ParseScanKind(input.Kind)
	if err != nil {
		return nil, apperrors.NewValidationError("scan kind must be ENTRY or EXIT", map[string]any{"kind": input.Kind})
	}

	identity, err := s.identities.GetByCredential(ctx, input.Credential)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.metrics.RecordScan(ScanErrorInvalidCredential)
			return &ScanResult{Success: false, Error: ScanErrorInvalidCredential}, nil
		}
		return nil, err
	}

	switch domain.ResolveSubscription(identity.ValidUntil, time.Now()) {
	case domain.SubscriptionInactive:
		s.metrics.RecordScan(ScanErrorSubscriptionMissing)
		return &ScanResult{
			Success:    false,
			Error:      ScanErrorSubscriptionMissing,
			IdentityID: identity.ID,
			Name:       identity.Name,
		}, nil
	case domain.SubscriptionExpired:
		s.metrics.RecordScan(ScanErrorSubscriptionExpired)
		return &ScanResult{
			Success:    false,
			Error:      ScanErrorSubscriptionExpired,
			IdentityID: identity.ID,
			Name:       identity.Name,
		}, nil
	}

	event := &domain.ScanEvent{
		IdentityID: &identity.ID,
		Kind:       kind,
		Actor:      input.Actor,
		Location:   input.Location,
		Note:       input.Note,
	}
	if err := s.scanEvents.Create(ctx, event); err != nil {
		// The decision must not report success if the audit append failed.
		return nil, err
	}

	s.metrics.RecordScan("ACCEPTED")
	_ = s.memberships.TouchActivity(ctx, callerID)
	s.publishAccepted(ctx, identity.ID, event)

	return &ScanResult{
		Success:    true,
		ScanID:     event.ID,
		IdentityID: identity.ID,
		Name:       identity.Name,
		Kind:       event.Kind,
		Timestamp:  event.OccurredAt,
	}, nil
}

// HistoryFor lists an identity's scan events, newest first. Callers without a
// matching read predicate get the same empty sequence a nonexistent identity
// produces.
func (s *ScanService) HistoryFor(ctx context.Context, callerID, identityID string, limit, offset int) ([]domain.ScanEvent, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityScanEvent, authz.OperationRead, identityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.scanEvents.ListByIdentity(ctx, identityID, limit, offset)
}

func (s *ScanService) publishAccepted(ctx context.Context, identityID string, event *domain.ScanEvent) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventScanAccepted,
		IdentityID: identityID,
		Timestamp:  time.Now().UTC(),
		Payload: events.ScanAcceptedPayload{
			ScanID:   event.ID,
			Kind:     event.Kind,
			Actor:    event.Actor,
			Location: event.Location,
		},
	})
}
