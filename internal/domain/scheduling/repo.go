package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProviderRepository persists providers and their bookable slots. It is the
// provider/slot source the optimizer consumes snapshots from.
type ProviderRepository interface {
	CreateProvider(ctx context.Context, p *Provider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error)
	DeleteProvider(ctx context.Context, id uuid.UUID) error

	CreateSlot(ctx context.Context, s *TimeSlot) error
	ListSlots(ctx context.Context, from, to time.Time) ([]TimeSlot, error)
	ListSlotsByProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]TimeSlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}
