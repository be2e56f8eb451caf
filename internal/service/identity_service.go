package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/events"
	"github.com/spec-kit/access-gate/internal/repository"
)

// RoleBootstrapHook decides what happens after a brand-new identity row is
// created. The default creates a role membership when the registration flow
// supplied an admin claim; it is a plain synchronous function so the branch
// stays visible and testable rather than hidden behind a storage trigger.
type RoleBootstrapHook func(ctx context.Context, identity *domain.Identity, claim domain.RoleClaim) error

// ProvisionInput describes a registration payload.
type ProvisionInput struct {
	ID         string
	Name       string
	RoleClaim  domain.RoleClaim
	ValidUntil *time.Time
}

// IdentityService coordinates identity provisioning and lifecycle.
type IdentityService struct {
	identities  repository.IdentityRepository
	memberships repository.RoleMembershipRepository
	policy      *authz.Engine
	dispatcher  events.Dispatcher
	bootstrap   RoleBootstrapHook
}

// IdentityDependencies bundles requirements for the identity service.
type IdentityDependencies struct {
	IdentityRepo       repository.IdentityRepository
	RoleMembershipRepo repository.RoleMembershipRepository
	Policy             *authz.Engine
	Dispatcher         events.Dispatcher
	// Bootstrap overrides the default post-creation role hook when set.
	Bootstrap RoleBootstrapHook
}

// NewIdentityService builds the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	s := &IdentityService{
		identities:  deps.IdentityRepo,
		memberships: deps.RoleMembershipRepo,
		policy:      deps.Policy,
		dispatcher:  deps.Dispatcher,
		bootstrap:   deps.Bootstrap,
	}
	if s.bootstrap == nil {
		s.bootstrap = s.defaultRoleBootstrap
	}
	return s
}

func (s *IdentityService) defaultRoleBootstrap(ctx context.Context, identity *domain.Identity, claim domain.RoleClaim) error {
	if claim != domain.RoleClaimAdmin {
		return nil
	}
	return s.memberships.Create(ctx, &domain.RoleMembership{
		IdentityID: identity.ID,
		Name:       identity.Name,
	})
}

// Provision creates or updates an identity. The role-claim branch runs only
// when a new row was created; re-provisioning an existing identity updates
// its mutable fields and never touches memberships. The claim's provenance
// is the responsibility of the registration flow in front of this call.
func (s *IdentityService) Provision(ctx context.Context, input ProvisionInput) (*domain.Identity, error) {
	created := false

	identity, err := s.identities.GetByID(ctx, input.ID)
	switch {
	case err == pgx.ErrNoRows:
		identity = &domain.Identity{
			ID:         input.ID,
			Name:       input.Name,
			ValidUntil: input.ValidUntil,
		}
		if err := s.identities.Create(ctx, identity); err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, err
	default:
		identity.Name = input.Name
		identity.ValidUntil = input.ValidUntil
		if err := s.identities.Update(ctx, identity); err != nil {
			return nil, err
		}
	}

	if created {
		if err := s.bootstrap(ctx, identity, input.RoleClaim); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventIdentityProvisioned, identity.ID, events.IdentityProvisionedPayload{
		Name:      identity.Name,
		RoleClaim: input.RoleClaim,
		Created:   created,
	})
	return identity, nil
}

// Get returns an identity the caller may read. Denials surface exactly like a
// missing row.
func (s *IdentityService) Get(ctx context.Context, callerID, id string) (*domain.Identity, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityIdentity, authz.OperationRead, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.identities.GetByID(ctx, id)
}

// UpdateSubscription moves the validity window of an identity.
func (s *IdentityService) UpdateSubscription(ctx context.Context, callerID, id string, validUntil *time.Time) (*domain.Identity, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityIdentity, authz.OperationUpdate, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}

	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	identity.ValidUntil = validUntil
	if err := s.identities.Update(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// Remove deletes an identity; its scan events go with it. Admin only.
func (s *IdentityService) Remove(ctx context.Context, callerID, id string) error {
	admin, err := s.policy.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !admin {
		return pgx.ErrNoRows
	}

	if err := s.memberships.Delete(ctx, id); err != nil && err != pgx.ErrNoRows {
		return err
	}
	return s.identities.Delete(ctx, id)
}

// GetMembership reads a role membership record, own or any for admins.
func (s *IdentityService) GetMembership(ctx context.Context, callerID, id string) (*domain.RoleMembership, error) {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityRoleMembership, authz.OperationRead, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s.memberships.GetByIdentity(ctx, id)
}

// GrantRole adds an identity to the administrative set.
func (s *IdentityService) GrantRole(ctx context.Context, callerID, id string) error {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityRoleMembership, authz.OperationUpdate, id)
	if err != nil {
		return err
	}
	if !ok {
		return pgx.ErrNoRows
	}

	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.memberships.Create(ctx, &domain.RoleMembership{IdentityID: id, Name: identity.Name}); err != nil {
		return err
	}
	_ = s.memberships.TouchActivity(ctx, callerID)
	return nil
}

// RevokeRole removes an identity from the administrative set.
func (s *IdentityService) RevokeRole(ctx context.Context, callerID, id string) error {
	ok, err := s.policy.Authorize(ctx, callerID, authz.EntityRoleMembership, authz.OperationUpdate, id)
	if err != nil {
		return err
	}
	if !ok {
		return pgx.ErrNoRows
	}
	if err := s.memberships.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.memberships.TouchActivity(ctx, callerID)
	return nil
}

func (s *IdentityService) publish(ctx context.Context, eventType events.EventType, identityID string, payload interface{}) {
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
