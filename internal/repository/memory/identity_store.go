package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/repository"
)

// IdentityStore is an in-memory IdentityRepository. A single mutex guards the
// map, which gives the same serialization the Postgres row locks provide:
// issue, rotate and credential lookup never observe a token mid-replacement.
type IdentityStore struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	onDelete   []func(identityID string)
}

// NewIdentityStore builds an empty store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{identities: make(map[string]*domain.Identity)}
}

func (s *IdentityStore) Create(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	s.identities[identity.ID] = clone(identity)
	return nil
}

func (s *IdentityStore) Update(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.identities[identity.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Name = identity.Name
	existing.ValidUntil = identity.ValidUntil
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *IdentityStore) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return clone(identity), nil
}

func (s *IdentityStore) GetByCredential(_ context.Context, credential string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.identities {
		if identity.Credential != nil && *identity.Credential == credential {
			return clone(identity), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *IdentityStore) IssueCredential(_ context.Context, id, name string, validUntil *time.Time, gen repository.CredentialFunc) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	identity, ok := s.identities[id]
	if !ok {
		identity = &domain.Identity{ID: id, CreatedAt: now}
		s.identities[id] = identity
	}
	identity.Name = name
	identity.ValidUntil = validUntil
	identity.UpdatedAt = now

	if !identity.HasCredential() {
		cred, err := s.generateUnique(id, gen)
		if err != nil {
			return nil, err
		}
		identity.Credential = &cred
	}
	return clone(identity), nil
}

func (s *IdentityStore) ReplaceCredential(_ context.Context, id string, gen repository.CredentialFunc) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	cred, err := s.generateUnique(id, gen)
	if err != nil {
		return nil, err
	}
	identity.Credential = &cred
	identity.UpdatedAt = time.Now().UTC()
	return clone(identity), nil
}

// OnDelete registers a cascade hook invoked after an identity row is removed,
// standing in for the schema's ON DELETE CASCADE across stores.
func (s *IdentityStore) OnDelete(fn func(identityID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func (s *IdentityStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.identities[id]; !ok {
		s.mu.Unlock()
		return pgx.ErrNoRows
	}
	delete(s.identities, id)
	hooks := append([]func(string){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

// generateUnique retries generation until the value collides with no live
// credential, mirroring the unique-constraint retry in the Postgres store.
// Caller must hold the mutex.
func (s *IdentityStore) generateUnique(id string, gen repository.CredentialFunc) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		cred, err := gen()
		if err != nil {
			return "", err
		}
		if !s.credentialTaken(cred) {
			return cred, nil
		}
	}
	return "", repository.ErrCredentialRetriesExhausted
}

func (s *IdentityStore) credentialTaken(cred string) bool {
	for _, identity := range s.identities {
		if identity.Credential != nil && *identity.Credential == cred {
			return true
		}
	}
	return false
}

func clone(identity *domain.Identity) *domain.Identity {
	out := *identity
	if identity.ValidUntil != nil {
		v := *identity.ValidUntil
		out.ValidUntil = &v
	}
	if identity.Credential != nil {
		c := *identity.Credential
		out.Credential = &c
	}
	return &out
}
