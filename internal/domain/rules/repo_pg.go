package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a Postgres-backed rule repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const ruleCols = `id, version, name, description, clinical_categories, severity,
	evidence_level, condition, exceptions, outcome, effective_date,
	expiration_date, last_review_date, reviewers, weight, confidence_threshold`

func scanRule(row pgx.Row) (*Rule, error) {
	var (
		r              Rule
		conditionJSON  []byte
		exceptionsJSON []byte
		outcomeJSON    []byte
	)
	err := row.Scan(&r.ID, &r.Version, &r.Name, &r.Description, &r.ClinicalCategories,
		&r.Severity, &r.EvidenceLevel, &conditionJSON, &exceptionsJSON, &outcomeJSON,
		&r.EffectiveDate, &r.ExpirationDate, &r.LastReviewDate, &r.Reviewers,
		&r.Weight, &r.ConfidenceThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(conditionJSON, &r.Condition); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}
	if len(exceptionsJSON) > 0 {
		if err := json.Unmarshal(exceptionsJSON, &r.Exceptions); err != nil {
			return nil, fmt.Errorf("decode exceptions: %w", err)
		}
	}
	if err := json.Unmarshal(outcomeJSON, &r.Outcome); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	return &r, nil
}

func (p *repoPG) Create(ctx context.Context, r *Rule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	conditionJSON, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("encode condition: %w", err)
	}
	exceptionsJSON, err := json.Marshal(r.Exceptions)
	if err != nil {
		return fmt.Errorf("encode exceptions: %w", err)
	}
	outcomeJSON, err := json.Marshal(r.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO triage_rule (id, version, name, description, clinical_categories,
			severity, evidence_level, condition, exceptions, outcome, effective_date,
			expiration_date, last_review_date, reviewers, weight, confidence_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.Version, r.Name, r.Description, r.ClinicalCategories,
		r.Severity, r.EvidenceLevel, conditionJSON, exceptionsJSON, outcomeJSON,
		r.EffectiveDate, r.ExpirationDate, r.LastReviewDate, r.Reviewers,
		r.Weight, r.ConfidenceThreshold)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrVersionPublished
		}
		return err
	}
	return nil
}

func (p *repoPG) GetVersion(ctx context.Context, id uuid.UUID, version int) (*Rule, error) {
	return scanRule(p.pool.QueryRow(ctx,
		`SELECT `+ruleCols+` FROM triage_rule WHERE id = $1 AND version = $2`, id, version))
}

func (p *repoPG) GetLatest(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return scanRule(p.pool.QueryRow(ctx,
		`SELECT `+ruleCols+` FROM triage_rule WHERE id = $1 ORDER BY version DESC LIMIT 1`, id))
}

func (p *repoPG) ListVersions(ctx context.Context, id uuid.UUID) ([]*Rule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+ruleCols+` FROM triage_rule WHERE id = $1 ORDER BY version ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (p *repoPG) List(ctx context.Context, limit, offset int) ([]*Rule, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM triage_rule`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx,
		`SELECT `+ruleCols+` FROM triage_rule ORDER BY name ASC, version DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectRules(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActive returns the highest active version of each rule as of the given
// time. This is the persistent implementation of the rule source contract.
func (p *repoPG) ListActive(ctx context.Context, asOf time.Time) ([]*Rule, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (id) `+ruleCols+`
		FROM triage_rule
		WHERE effective_date <= $1 AND (expiration_date IS NULL OR expiration_date > $1)
		ORDER BY id, version DESC`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

// ListActiveRules implements Source.
func (p *repoPG) ListActiveRules(ctx context.Context, asOf time.Time) ([]*Rule, error) {
	return p.ListActive(ctx, asOf)
}

func collectRules(rows pgx.Rows) ([]*Rule, error) {
	var items []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
