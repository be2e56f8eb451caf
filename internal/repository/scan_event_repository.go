package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/access-gate/internal/domain"
)

// ScanEventRepository persists the append-only admission audit log. No update
// or delete path is exposed; rows exist until their identity is removed.
type ScanEventRepository interface {
	Create(ctx context.Context, event *domain.ScanEvent) error
	ListByIdentity(ctx context.Context, identityID string, limit, offset int) ([]domain.ScanEvent, error)
	Rollup(ctx context.Context, start, end time.Time) (*domain.ScanRollup, error)
}

type scanEventRepository struct {
	pool *pgxpool.Pool
}

// NewScanEventRepository builds repository.
func NewScanEventRepository(pool *pgxpool.Pool) ScanEventRepository {
	return &scanEventRepository{pool: pool}
}

func (r *scanEventRepository) Create(ctx context.Context, event *domain.ScanEvent) error {
	const query = `
        INSERT INTO scan_events (identity_id, scan_kind, actor, location, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, occurred_at`
	return r.pool.QueryRow(ctx, query,
		event.IdentityID,
		event.Kind,
		event.Actor,
		event.Location,
		event.Note,
	).Scan(&event.ID, &event.OccurredAt)
}

func (r *scanEventRepository) ListByIdentity(ctx context.Context, identityID string, limit, offset int) ([]domain.ScanEvent, error) {
	const query = `
        SELECT id, identity_id, scan_kind, actor, location, note, occurred_at
        FROM scan_events WHERE identity_id=$1
        ORDER BY occurred_at DESC
        LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, query, identityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScanEvent
	for rows.Next() {
		var event domain.ScanEvent
		if err := rows.Scan(
			&event.ID,
			&event.IdentityID,
			&event.Kind,
			&event.Actor,
			&event.Location,
			&event.Note,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// Rollup aggregates by calendar date, inclusive on both ends. A single
// statement sees a consistent snapshot without locking out concurrent writers.
func (r *scanEventRepository) Rollup(ctx context.Context, start, end time.Time) (*domain.ScanRollup, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(DISTINCT identity_id),
               COUNT(*) FILTER (WHERE scan_kind=$3),
               COUNT(*) FILTER (WHERE scan_kind=$4)
        FROM scan_events
        WHERE occurred_at::date BETWEEN $1::date AND $2::date`

	var rollup domain.ScanRollup
	if err := r.pool.QueryRow(ctx, query, start, end, domain.ScanKindEntry, domain.ScanKindExit).Scan(
		&rollup.TotalScans,
		&rollup.UniqueIdentities,
		&rollup.EntryScans,
		&rollup.ExitScans,
	); err != nil {
		return nil, err
	}
	return &rollup, nil
}
