package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/domain"
)

// RoleMembershipStore is an in-memory administrative membership set.
type RoleMembershipStore struct {
	mu      sync.Mutex
	members map[string]*domain.RoleMembership
}

// NewRoleMembershipStore builds an empty store.
func NewRoleMembershipStore() *RoleMembershipStore {
	return &RoleMembershipStore{members: make(map[string]*domain.RoleMembership)}
}

func (s *RoleMembershipStore) Create(_ context.Context, membership *domain.RoleMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	membership.LastActivityAt = time.Now().UTC()
	copied := *membership
	s.members[membership.IdentityID] = &copied
	return nil
}

func (s *RoleMembershipStore) Exists(_ context.Context, identityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.members[identityID]
	return ok, nil
}

func (s *RoleMembershipStore) GetByIdentity(_ context.Context, identityID string) (*domain.RoleMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	membership, ok := s.members[identityID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *membership
	return &copied, nil
}

func (s *RoleMembershipStore) TouchActivity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	membership, ok := s.members[identityID]
	if !ok {
		return pgx.ErrNoRows
	}
	membership.LastActivityAt = time.Now().UTC()
	return nil
}

func (s *RoleMembershipStore) Delete(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[identityID]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.members, identityID)
	return nil
}
