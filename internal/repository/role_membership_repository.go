package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/access-gate/internal/domain"
)

// RoleMembershipRepository handles persistence for the administrative
// membership set. Existence of a row is what confers privilege.
type RoleMembershipRepository interface {
	Create(ctx context.Context, membership *domain.RoleMembership) error
	Exists(ctx context.Context, identityID string) (bool, error)
	GetByIdentity(ctx context.Context, identityID string) (*domain.RoleMembership, error)
	TouchActivity(ctx context.Context, identityID string) error
	Delete(ctx context.Context, identityID string) error
}

type roleMembershipRepository struct {
	pool *pgxpool.Pool
}

// NewRoleMembershipRepository instantiates the repository.
func NewRoleMembershipRepository(pool *pgxpool.Pool) RoleMembershipRepository {
	return &roleMembershipRepository{pool: pool}
}

func (r *roleMembershipRepository) Create(ctx context.Context, membership *domain.RoleMembership) error {
	const query = `
        INSERT INTO role_memberships (identity_id, name)
        VALUES ($1,$2)
        ON CONFLICT (identity_id) DO UPDATE SET name=EXCLUDED.name
        RETURNING last_activity_at`
	return r.pool.QueryRow(ctx, query,
		membership.IdentityID,
		membership.Name,
	).Scan(&membership.LastActivityAt)
}

func (r *roleMembershipRepository) Exists(ctx context.Context, identityID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM role_memberships WHERE identity_id=$1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, identityID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *roleMembershipRepository) GetByIdentity(ctx context.Context, identityID string) (*domain.RoleMembership, error) {
	const query = `
        SELECT identity_id, name, last_activity_at
        FROM role_memberships WHERE identity_id=$1`

	var membership domain.RoleMembership
	if err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&membership.IdentityID,
		&membership.Name,
		&membership.LastActivityAt,
	); err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *roleMembershipRepository) TouchActivity(ctx context.Context, identityID string) error {
	const query = `UPDATE role_memberships SET last_activity_at=NOW() WHERE identity_id=$1`

	cmd, err := r.pool.Exec(ctx, query, identityID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roleMembershipRepository) Delete(ctx context.Context, identityID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM role_memberships WHERE identity_id=$1`, identityID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
