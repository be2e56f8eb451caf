package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/access-gate/internal/domain"
)

// CredentialFunc produces a fresh credential value. The repository invokes it
// inside the issuing transaction so a uniqueness collision can be retried with
// a new value instead of failing the call.
type CredentialFunc func() (string, error)

// ErrCredentialRetriesExhausted is returned when repeated generation attempts
// all collided with existing live credentials.
var ErrCredentialRetriesExhausted = errors.New("credential generation retries exhausted")

const maxCredentialAttempts = 3

// IdentityRepository defines persistence access for registered identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	Update(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByCredential(ctx context.Context, credential string) (*domain.Identity, error)
	// IssueCredential upserts the identity and assigns a credential only if
	// none is live, preserving any existing value. Atomic with respect to
	// concurrent issuance for the same identity.
	IssueCredential(ctx context.Context, id, name string, validUntil *time.Time, gen CredentialFunc) (*domain.Identity, error)
	// ReplaceCredential unconditionally swaps the live credential for a fresh
	// one. Serialized against concurrent lookups so a token is never observed
	// mid-replacement.
	ReplaceCredential(ctx context.Context, id string, gen CredentialFunc) (*domain.Identity, error)
	Delete(ctx context.Context, id string) error
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

const identityColumns = `id, name, valid_until, credential, created_at, updated_at`

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.ValidUntil,
		&identity.Credential,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (id, name, valid_until)
        VALUES ($1, $2, $3)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Name,
		identity.ValidUntil,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
}

func (r *identityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	const query = `
        UPDATE identities SET name=$1, valid_until=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query,
		identity.Name,
		identity.ValidUntil,
		identity.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `
        SELECT ` + identityColumns + `
        FROM identities WHERE id=$1`

	return scanIdentity(r.pool.QueryRow(ctx, query, id))
}

func (r *identityRepository) GetByCredential(ctx context.Context, credential string) (*domain.Identity, error) {
	const query = `
        SELECT ` + identityColumns + `
        FROM identities WHERE credential=$1`

	return scanIdentity(r.pool.QueryRow(ctx, query, credential))
}

func (r *identityRepository) IssueCredential(ctx context.Context, id, name string, validUntil *time.Time, gen CredentialFunc) (*domain.Identity, error) {
	for attempt := 0; attempt < maxCredentialAttempts; attempt++ {
		identity, err := r.issueOnce(ctx, id, name, validUntil, gen)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return identity, nil
	}
	return nil, ErrCredentialRetriesExhausted
}

// issueOnce performs one transactional read-check-write pass. The row lock
// taken by FOR UPDATE serializes concurrent issuance for the same identity,
// so the preserve-if-existing merge cannot produce two live credentials.
func (r *identityRepository) issueOnce(ctx context.Context, id, name string, validUntil *time.Time, gen CredentialFunc) (*domain.Identity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	existing, err := scanIdentity(tx.QueryRow(ctx, `
        SELECT `+identityColumns+`
        FROM identities WHERE id=$1 FOR UPDATE`, id))

	var identity *domain.Identity
	switch {
	case err == pgx.ErrNoRows:
		cred, genErr := gen()
		if genErr != nil {
			return nil, genErr
		}
		identity, err = scanIdentity(tx.QueryRow(ctx, `
            INSERT INTO identities (id, name, valid_until, credential)
            VALUES ($1, $2, $3, $4)
            RETURNING `+identityColumns, id, name, validUntil, cred))
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case existing.HasCredential():
		// Preserve the live credential, refresh the mutable fields.
		identity, err = scanIdentity(tx.QueryRow(ctx, `
            UPDATE identities SET name=$1, valid_until=$2, updated_at=NOW()
            WHERE id=$3
            RETURNING `+identityColumns, name, validUntil, id))
		if err != nil {
			return nil, err
		}
	default:
		cred, genErr := gen()
		if genErr != nil {
			return nil, genErr
		}
		identity, err = scanIdentity(tx.QueryRow(ctx, `
            UPDATE identities SET name=$1, valid_until=$2, credential=$3, updated_at=NOW()
            WHERE id=$4
            RETURNING `+identityColumns, name, validUntil, cred, id))
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *identityRepository) ReplaceCredential(ctx context.Context, id string, gen CredentialFunc) (*domain.Identity, error) {
	for attempt := 0; attempt < maxCredentialAttempts; attempt++ {
		identity, err := r.replaceOnce(ctx, id, gen)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return identity, nil
	}
	return nil, ErrCredentialRetriesExhausted
}

func (r *identityRepository) replaceOnce(ctx context.Context, id string, gen CredentialFunc) (*domain.Identity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := scanIdentity(tx.QueryRow(ctx, `
        SELECT `+identityColumns+`
        FROM identities WHERE id=$1 FOR UPDATE`, id)); err != nil {
		return nil, err
	}

	cred, err := gen()
	if err != nil {
		return nil, err
	}

	identity, err := scanIdentity(tx.QueryRow(ctx, `
        UPDATE identities SET credential=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING `+identityColumns, cred, id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
