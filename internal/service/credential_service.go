package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/credential"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/events"
	"github.com/spec-kit/access-gate/internal/repository"
)

// CredentialService owns issuance, rotation and lookup of scan credentials.
type CredentialService struct {
	identities repository.IdentityRepository
	policy     *authz.Engine
	dispatcher events.Dispatcher
}

// CredentialDependencies bundles requirements for the credential service.
type CredentialDependencies struct {
	IdentityRepo repository.IdentityRepository
	Policy       *authz.Engine
	Dispatcher   events.Dispatcher
}

// NewCredentialService builds the service.
func NewCredentialService(deps CredentialDependencies) *CredentialService {
	return &CredentialService{
		identities: deps.IdentityRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
	}
}

// Issue assigns a credential to the identity, creating the row if needed. An
// already-live credential is preserved while name and validity are refreshed,
// so repeated issuance is idempotent on the token value.
func (s *CredentialService) Issue(ctx context.Context, callerID, identityID, name string, validUntil *time.Time) (*domain.Identity, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityIdentity, authz.OperationUpdate, identityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}

	identity, err := s.identities.IssueCredential(ctx, identityID, name, validUntil, func() (string, error) {
		return credential.Generate(identityID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCredentialIssued, identityID, nil)
	return identity, nil
}

// Rotate replaces the live credential with a fresh one. The previous value is
// invalid for lookup the moment the swap commits; there is no grace period.
func (s *CredentialService) Rotate(ctx context.Context, callerID, identityID string) (*domain.Identity, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityIdentity, authz.OperationUpdate, identityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}

	identity, err := s.identities.ReplaceCredential(ctx, identityID, func() (string, error) {
		return credential.Generate(identityID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCredentialRotated, identityID, events.CredentialRotatedPayload{RotatedBy: callerID})
	return identity, nil
}

// Resolve maps a presented token back to its identity. A miss is a frequent,
// expected outcome and comes back as pgx.ErrNoRows.
func (s *CredentialService) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	return s.identities.GetByCredential(ctx, token)
}

func (s *CredentialService) publish(ctx context.Context, eventType events.EventType, identityID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		IdentityID: identityID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	})
}
