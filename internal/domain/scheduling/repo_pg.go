package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed provider/slot repository.
func NewRepoPG(pool *pgxpool.Pool) ProviderRepository { return &repoPG{pool: pool} }

const providerCols = `id, name, specialties, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Specialties, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) CreateProvider(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider (id, name, specialties)
		VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.Specialties)
	return err
}

func (r *repoPG) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
}

func (r *repoPG) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+providerCols+` FROM provider ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	return err
}

func (r *repoPG) CreateSlot(ctx context.Context, s *TimeSlot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_slot (id, provider_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.ProviderID, s.StartTime, s.EndTime)
	return err
}

const slotCols = `id, provider_id, start_time, end_time`

func (r *repoPG) ListSlots(ctx context.Context, from, to time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+` FROM provider_slot
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *repoPG) ListSlotsByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotCols+` FROM provider_slot
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *repoPG) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider_slot WHERE id = $1`, id)
	return err
}

func collectSlots(rows pgx.Rows) ([]TimeSlot, error) {
	var slots []TimeSlot
	for rows.Next() {
		var s TimeSlot
		if err := rows.Scan(&s.ID, &s.ProviderID, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
