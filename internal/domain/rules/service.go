package rules

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service coordinates rule publication and lookup. Persisted rules are also
// mirrored into the in-memory store so evaluations read from a lock-free
// snapshot rather than hitting the database per encounter.
type Service struct {
	repo  Repository
	store *Store
}

// NewService creates a rule service. repo may be nil for a purely in-memory
// deployment (tests, sandboxes).
func NewService(repo Repository, store *Store) *Service {
	return &Service{repo: repo, store: store}
}

// Publish validates and publishes a new rule version.
func (s *Service) Publish(ctx context.Context, r *Rule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version == 0 {
		r.Version = 1
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
	}
	return s.store.Publish(r)
}

// Get returns the latest published version of a rule.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	if s.repo != nil {
		return s.repo.GetLatest(ctx, id)
	}
	for _, r := range s.store.Snapshot().Rules() {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRuleNotFound
}

// GetVersion returns one specific published version of a rule.
func (s *Service) GetVersion(ctx context.Context, id uuid.UUID, version int) (*Rule, error) {
	if s.repo != nil {
		return s.repo.GetVersion(ctx, id, version)
	}
	for _, r := range s.store.Snapshot().Rules() {
		if r.ID == id && r.Version == version {
			return r, nil
		}
	}
	return nil, ErrRuleNotFound
}

// Versions returns every published version of a rule, oldest first.
func (s *Service) Versions(ctx context.Context, id uuid.UUID) ([]*Rule, error) {
	if s.repo != nil {
		return s.repo.ListVersions(ctx, id)
	}
	var out []*Rule
	for _, r := range s.store.Snapshot().Rules() {
		if r.ID == id {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrRuleNotFound
	}
	return out, nil
}

// List returns a page of published rule versions.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Rule, int, error) {
	if s.repo != nil {
		return s.repo.List(ctx, limit, offset)
	}
	all := s.store.Snapshot().Rules()
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Active returns the rules in force at asOf.
func (s *Service) Active(ctx context.Context, asOf time.Time) ([]*Rule, error) {
	return s.store.ListActiveRules(ctx, asOf)
}

// WarmStore loads every persisted rule version into the in-memory store.
// Called once at startup before the server begins evaluating encounters.
func (s *Service) WarmStore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	const page = 200
	for offset := 0; ; offset += page {
		items, total, err := s.repo.List(ctx, page, offset)
		if err != nil {
			return err
		}
		for _, r := range items {
			if err := s.store.Publish(r); err != nil && err != ErrVersionPublished {
				return err
			}
		}
		if offset+page >= total || len(items) == 0 {
			return nil
		}
	}
}
