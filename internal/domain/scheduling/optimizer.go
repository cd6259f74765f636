package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Scoring weights and limits. Provider score is a weighted blend of
// specialization fit, wait time and explicit provider preference.
const (
	weightSpecialization = 0.4
	weightWaitTime       = 0.3
	weightPreference     = 0.3

	// defaultMaxWaitMinutes is one week, applied when preferences set no cap.
	defaultMaxWaitMinutes = 10080

	// waitNormalizationMinutes scales a provider's best wait into [0,1].
	waitNormalizationMinutes = 100

	maxOptimalSlots    = 5
	maxRecommendations = 3
)

// urgencyWeights discount slot scores for less urgent requests.
var urgencyWeights = map[string]float64{
	UrgencyHigh:   1.0,
	UrgencyMedium: 0.7,
	UrgencyLow:    0.4,
}

// urgencyCeilingMinutes are the hard wait-time ceilings enforced by
// ValidateSlotUrgency, independent of optimizer scoring.
var urgencyCeilingMinutes = map[string]float64{
	UrgencyHigh:   1440,  // 24h
	UrgencyMedium: 4320,  // 72h
	UrgencyLow:    10080, // 168h
}

// FindOptimalSlots scores every candidate slot against the preferences and
// returns the top five, descending by score. It never mutates providers or
// slots and is safe to call concurrently for independent requests.
func FindOptimalSlots(prefs SchedulingPreferences, providers []Provider, slots []TimeSlot, now time.Time) []ScoredSlot {
	if len(providers) == 0 || len(slots) == 0 {
		return []ScoredSlot{}
	}

	urgencyWeight, ok := urgencyWeights[prefs.Urgency]
	if !ok {
		urgencyWeight = urgencyWeights[UrgencyLow]
	}
	maxWait := float64(prefs.MaxWaitTimeMinutes)
	if maxWait <= 0 {
		maxWait = defaultMaxWaitMinutes
	}

	slotsByProvider := groupSlots(slots)
	providerScores := make(map[uuid.UUID]float64, len(providers))
	for _, p := range providers {
		providerScores[p.ID] = providerScore(p, prefs, slotsByProvider[p.ID], now)
	}

	scored := make([]ScoredSlot, 0, len(slots))
	for _, slot := range slots {
		ps, known := providerScores[slot.ProviderID]
		if !known {
			continue
		}
		wait := slot.StartTime.Sub(now).Minutes()
		if wait < 0 {
			wait = 0
		}
		score := ps * urgencyWeight * (1 - wait/maxWait)
		if score < 0 {
			score = 0
		}
		scored = append(scored, ScoredSlot{Slot: slot, Score: score, ProviderID: slot.ProviderID})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Slot.StartTime.Before(scored[j].Slot.StartTime)
	})

	if len(scored) > maxOptimalSlots {
		scored = scored[:maxOptimalSlots]
	}
	return scored
}

// RecommendProviders ranks providers by provider score alone and returns the
// top three, stripped of the internal score.
func RecommendProviders(prefs SchedulingPreferences, providers []Provider, slots []TimeSlot, now time.Time) []Provider {
	if len(providers) == 0 {
		return []Provider{}
	}

	slotsByProvider := groupSlots(slots)

	type ranked struct {
		provider Provider
		score    float64
	}
	rankedProviders := make([]ranked, 0, len(providers))
	for _, p := range providers {
		rankedProviders = append(rankedProviders, ranked{
			provider: p,
			score:    providerScore(p, prefs, slotsByProvider[p.ID], now),
		})
	}

	sort.SliceStable(rankedProviders, func(i, j int) bool {
		if rankedProviders[i].score != rankedProviders[j].score {
			return rankedProviders[i].score > rankedProviders[j].score
		}
		return rankedProviders[i].provider.ID.String() < rankedProviders[j].provider.ID.String()
	})

	n := len(rankedProviders)
	if n > maxRecommendations {
		n = maxRecommendations
	}
	out := make([]Provider, 0, n)
	for _, r := range rankedProviders[:n] {
		out = append(out, r.provider)
	}
	return out
}

// ValidateSlotUrgency enforces the hard wait-time ceiling for the urgency
// tier. It is an independent gate applied before committing a booking, not
// folded into optimizer scoring. The boundary is inclusive.
func ValidateSlotUrgency(slot TimeSlot, urgency string, now time.Time) bool {
	ceiling, ok := urgencyCeilingMinutes[urgency]
	if !ok {
		return false
	}
	wait := slot.StartTime.Sub(now).Minutes()
	return wait <= ceiling
}

// providerScore blends specialization fit, best available wait and explicit
// provider preference into [0,1].
func providerScore(p Provider, prefs SchedulingPreferences, providerSlots []TimeSlot, now time.Time) float64 {
	specialization := specializationMatch(p.Specialties, prefs.PreferredSpecialties)

	// A provider with no slots has an infinite wait; its wait term
	// contributes nothing.
	waitTerm := 0.0
	if best := bestWaitMinutes(providerSlots, now); !math.IsInf(best, 1) {
		normalized := best / waitNormalizationMinutes
		if normalized > 1 {
			normalized = 1
		}
		if normalized < 0 {
			normalized = 0
		}
		waitTerm = 1 - normalized
	}

	preference := 0.0
	for _, id := range prefs.PreferredProviders {
		if id == p.ID {
			preference = 1
			break
		}
	}

	return weightSpecialization*specialization + weightWaitTime*waitTerm + weightPreference*preference
}

// specializationMatch is the fraction of preferred specialties the provider
// covers; 1 when no preference is given.
func specializationMatch(specialties, preferred []string) float64 {
	if len(preferred) == 0 {
		return 1
	}
	matched := 0
	for _, want := range preferred {
		for _, have := range specialties {
			if have == want {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(preferred))
}

// bestWaitMinutes is the provider's minimum wait across its own slots.
func bestWaitMinutes(slots []TimeSlot, now time.Time) float64 {
	best := math.Inf(1)
	for _, s := range slots {
		wait := s.StartTime.Sub(now).Minutes()
		if wait < 0 {
			wait = 0
		}
		if wait < best {
			best = wait
		}
	}
	return best
}

func groupSlots(slots []TimeSlot) map[uuid.UUID][]TimeSlot {
	grouped := make(map[uuid.UUID][]TimeSlot)
	for _, s := range slots {
		grouped[s.ProviderID] = append(grouped[s.ProviderID], s)
	}
	return grouped
}
