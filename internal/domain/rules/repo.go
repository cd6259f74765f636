package rules

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists published rule versions.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetVersion(ctx context.Context, id uuid.UUID, version int) (*Rule, error)
	GetLatest(ctx context.Context, id uuid.UUID) (*Rule, error)
	ListVersions(ctx context.Context, id uuid.UUID) ([]*Rule, error)
	List(ctx context.Context, limit, offset int) ([]*Rule, int, error)
	ListActive(ctx context.Context, asOf time.Time) ([]*Rule, error)
}
