package scheduling

import (
	"context"
	"fmt"
	"time"
)

// Service wires the pure optimizer to a provider/slot source. When a request
// carries its own provider/slot snapshot the repository is not consulted.
type Service struct {
	repo ProviderRepository
	now  func() time.Time
}

// NewService creates a scheduling service. repo may be nil when every call
// supplies inline snapshots.
func NewService(repo ProviderRepository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// OptimizeSchedule ranks candidate slots for the preferences. An empty
// candidate set yields an empty result, not an error.
func (s *Service) OptimizeSchedule(ctx context.Context, prefs SchedulingPreferences, providers []Provider, slots []TimeSlot) ([]ScoredSlot, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	providers, slots, err := s.resolveSnapshot(ctx, prefs, providers, slots)
	if err != nil {
		return nil, err
	}
	return FindOptimalSlots(prefs, providers, slots, s.now()), nil
}

// RecommendProviders returns the top providers for the preferences.
func (s *Service) RecommendProviders(ctx context.Context, prefs SchedulingPreferences, providers []Provider) ([]Provider, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	providers, slots, err := s.resolveSnapshot(ctx, prefs, providers, nil)
	if err != nil {
		return nil, err
	}
	return RecommendProviders(prefs, providers, slots, s.now()), nil
}

// IsSlotWithinUrgencyWindow applies the hard wait-time ceiling.
func (s *Service) IsSlotWithinUrgencyWindow(slot TimeSlot, urgency string, now time.Time) (bool, error) {
	switch urgency {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
	default:
		return false, ErrUnknownUrgency
	}
	if now.IsZero() {
		now = s.now()
	}
	return ValidateSlotUrgency(slot, urgency, now), nil
}

// resolveSnapshot loads providers and slots from the repository when the
// caller did not supply them inline.
func (s *Service) resolveSnapshot(ctx context.Context, prefs SchedulingPreferences, providers []Provider, slots []TimeSlot) ([]Provider, []TimeSlot, error) {
	if len(providers) > 0 {
		return providers, slots, nil
	}
	if s.repo == nil {
		return providers, slots, nil
	}

	stored, _, err := s.repo.ListProviders(ctx, 500, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("list providers: %w", err)
	}
	loaded := make([]Provider, 0, len(stored))
	for _, p := range stored {
		loaded = append(loaded, *p)
	}

	if len(slots) == 0 {
		horizon := float64(prefs.MaxWaitTimeMinutes)
		if horizon <= 0 {
			horizon = defaultMaxWaitMinutes
		}
		from := s.now()
		to := from.Add(time.Duration(horizon) * time.Minute)
		slots, err = s.repo.ListSlots(ctx, from, to)
		if err != nil {
			return nil, nil, fmt.Errorf("list slots: %w", err)
		}
	}
	return loaded, slots, nil
}
