package rules

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Source provides the active rule set for a given evaluation time. It is the
// read-only interface the triage core consumes; both the in-memory Store and
// the Postgres repository implement it.
type Source interface {
	ListActiveRules(ctx context.Context, asOf time.Time) ([]*Rule, error)
}

// Snapshot is an immutable view of the published rule arena, captured at a
// point in time. Evaluations that started on an older snapshot keep seeing
// it; publication never mutates a snapshot in place.
type Snapshot struct {
	rules   []*Rule
	TakenAt time.Time
}

// Rules returns every published rule version in the snapshot.
func (s *Snapshot) Rules() []*Rule {
	return s.rules
}

// Active returns the rule versions in force at asOf. When several versions
// of the same rule are active, the highest version wins.
func (s *Snapshot) Active(asOf time.Time) []*Rule {
	latest := make(map[string]*Rule)
	for _, r := range s.rules {
		if !r.ActiveAt(asOf) {
			continue
		}
		key := r.ID.String()
		if cur, ok := latest[key]; !ok || r.Version > cur.Version {
			latest[key] = r
		}
	}
	active := make([]*Rule, 0, len(latest))
	for _, r := range latest {
		active = append(active, r)
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].ID != active[j].ID {
			return active[i].ID.String() < active[j].ID.String()
		}
		return active[i].Version < active[j].Version
	})
	return active
}

// Store is an in-memory, copy-on-write rule arena. Publishing appends a new
// immutable version and swaps in a fresh snapshot; readers holding the
// previous snapshot are unaffected.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	versions map[string]map[int]struct{} // rule ID -> published versions
	now      func() time.Time
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		snapshot: &Snapshot{TakenAt: time.Now().UTC()},
		versions: make(map[string]map[int]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish validates and appends a new rule version. Republishing an existing
// (ID, Version) pair is rejected: published rules are immutable.
func (s *Store) Publish(r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.ID.String()
	if _, dup := s.versions[key][r.Version]; dup {
		return ErrVersionPublished
	}

	next := make([]*Rule, len(s.snapshot.rules), len(s.snapshot.rules)+1)
	copy(next, s.snapshot.rules)
	next = append(next, r.Clone())

	if s.versions[key] == nil {
		s.versions[key] = make(map[int]struct{})
	}
	s.versions[key][r.Version] = struct{}{}
	s.snapshot = &Snapshot{rules: next, TakenAt: s.now()}
	return nil
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// ListActiveRules implements Source.
func (s *Store) ListActiveRules(_ context.Context, asOf time.Time) ([]*Rule, error) {
	return s.Snapshot().Active(asOf), nil
}
