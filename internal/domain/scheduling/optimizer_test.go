package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var schedNow = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func slotAt(provider uuid.UUID, offset time.Duration) TimeSlot {
	start := schedNow.Add(offset)
	return TimeSlot{
		ID:         uuid.New(),
		ProviderID: provider,
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
	}
}

func seedProviders() ([]Provider, []TimeSlot) {
	cardio := Provider{ID: uuid.New(), Name: "Dr. Osei", Specialties: []string{"cardiology"}}
	general := Provider{ID: uuid.New(), Name: "Dr. Lindqvist", Specialties: []string{"general"}}
	ortho := Provider{ID: uuid.New(), Name: "Dr. Moreau", Specialties: []string{"orthopedics"}}

	slots := []TimeSlot{
		slotAt(cardio.ID, 30*time.Minute),
		slotAt(cardio.ID, 4*time.Hour),
		slotAt(general.ID, time.Hour),
		slotAt(general.ID, 24*time.Hour),
		slotAt(ortho.ID, 2*time.Hour),
		slotAt(ortho.ID, 48*time.Hour),
	}
	return []Provider{cardio, general, ortho}, slots
}

// ---------- FindOptimalSlots ----------

func TestFindOptimalSlots_EmptyInputs(t *testing.T) {
	providers, slots := seedProviders()

	if got := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, nil, slots, schedNow); len(got) != 0 {
		t.Errorf("no providers should yield empty result, got %d", len(got))
	}
	if got := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, providers, nil, schedNow); len(got) != 0 {
		t.Errorf("no slots should yield empty result, got %d", len(got))
	}
	if got := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, nil, nil, schedNow); got == nil {
		t.Error("empty result should be an empty slice, not nil")
	}
}

func TestFindOptimalSlots_ScoresBoundedAndSorted(t *testing.T) {
	providers, slots := seedProviders()
	prefs := SchedulingPreferences{Urgency: UrgencyHigh, PreferredSpecialties: []string{"cardiology"}}

	ranked := FindOptimalSlots(prefs, providers, slots, schedNow)
	if len(ranked) == 0 {
		t.Fatal("expected ranked slots")
	}
	if len(ranked) > 5 {
		t.Errorf("got %d slots, want at most 5", len(ranked))
	}
	for i, s := range ranked {
		if s.Score < 0 || s.Score > 1 {
			t.Errorf("slot %d score %v out of [0,1]", i, s.Score)
		}
		if i > 0 && ranked[i-1].Score < s.Score {
			t.Errorf("slots not sorted descending at index %d", i)
		}
	}
}

func TestFindOptimalSlots_CapsAtFive(t *testing.T) {
	p := Provider{ID: uuid.New(), Name: "Dr. Busy", Specialties: []string{"general"}}
	var slots []TimeSlot
	for i := 0; i < 12; i++ {
		slots = append(slots, slotAt(p.ID, time.Duration(i+1)*time.Hour))
	}

	ranked := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyMedium}, []Provider{p}, slots, schedNow)
	if len(ranked) != 5 {
		t.Errorf("got %d slots, want 5", len(ranked))
	}
}

func TestFindOptimalSlots_SpecializationPreferenceWins(t *testing.T) {
	providers, slots := seedProviders()
	prefs := SchedulingPreferences{
		Urgency:              UrgencyHigh,
		PreferredSpecialties: []string{"cardiology"},
	}

	ranked := FindOptimalSlots(prefs, providers, slots, schedNow)
	if len(ranked) == 0 {
		t.Fatal("expected ranked slots")
	}
	if ranked[0].ProviderID != providers[0].ID {
		t.Error("top slot should belong to the matching cardiology provider")
	}
}

func TestFindOptimalSlots_PreferredProviderBoost(t *testing.T) {
	a := Provider{ID: uuid.New(), Name: "Dr. A", Specialties: []string{"general"}}
	b := Provider{ID: uuid.New(), Name: "Dr. B", Specialties: []string{"general"}}
	slots := []TimeSlot{
		slotAt(a.ID, time.Hour),
		slotAt(b.ID, time.Hour),
	}
	prefs := SchedulingPreferences{
		Urgency:            UrgencyMedium,
		PreferredProviders: []uuid.UUID{b.ID},
	}

	ranked := FindOptimalSlots(prefs, []Provider{a, b}, slots, schedNow)
	if len(ranked) != 2 {
		t.Fatalf("got %d slots, want 2", len(ranked))
	}
	if ranked[0].ProviderID != b.ID {
		t.Error("explicitly preferred provider should rank first")
	}
}

func TestFindOptimalSlots_UrgencyDiscountsScore(t *testing.T) {
	p := Provider{ID: uuid.New(), Name: "Dr. Solo", Specialties: []string{"general"}}
	slots := []TimeSlot{slotAt(p.ID, time.Hour)}

	high := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, []Provider{p}, slots, schedNow)
	low := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyLow}, []Provider{p}, slots, schedNow)

	if len(high) != 1 || len(low) != 1 {
		t.Fatal("expected one ranked slot per request")
	}
	if high[0].Score <= low[0].Score {
		t.Errorf("high urgency score %v should exceed low urgency score %v", high[0].Score, low[0].Score)
	}
}

func TestFindOptimalSlots_PastSlotWaitClampedToZero(t *testing.T) {
	p := Provider{ID: uuid.New(), Name: "Dr. Now", Specialties: []string{"general"}}
	past := slotAt(p.ID, -time.Hour)
	soon := slotAt(p.ID, 10*time.Minute)

	ranked := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, []Provider{p}, []TimeSlot{soon, past}, schedNow)
	if len(ranked) != 2 {
		t.Fatalf("got %d slots, want 2", len(ranked))
	}
	// The past slot's wait clamps to zero, so it scores like an immediate
	// slot and outranks the later one.
	if ranked[0].Slot.StartTime != past.StartTime {
		t.Error("past slot should score as immediately available")
	}
	if ranked[0].Score > 1 {
		t.Errorf("score = %v, must not exceed 1", ranked[0].Score)
	}
}

func TestFindOptimalSlots_FarSlotScoreFloorsAtZero(t *testing.T) {
	p := Provider{ID: uuid.New(), Name: "Dr. Distant", Specialties: []string{"general"}}
	// Two weeks out, beyond the one-week default wait cap.
	far := slotAt(p.ID, 20000*time.Minute)

	ranked := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyLow}, []Provider{p}, []TimeSlot{far}, schedNow)
	if len(ranked) != 1 {
		t.Fatalf("got %d slots, want 1", len(ranked))
	}
	if ranked[0].Score != 0 {
		t.Errorf("score = %v, want clamp at 0 beyond the wait cap", ranked[0].Score)
	}
}

func TestFindOptimalSlots_UnknownProviderSlotSkipped(t *testing.T) {
	p := Provider{ID: uuid.New(), Name: "Dr. Known", Specialties: []string{"general"}}
	stray := slotAt(uuid.New(), time.Hour)

	ranked := FindOptimalSlots(SchedulingPreferences{Urgency: UrgencyHigh}, []Provider{p}, []TimeSlot{stray}, schedNow)
	if len(ranked) != 0 {
		t.Errorf("slots of unknown providers should be skipped, got %d", len(ranked))
	}
}

// ---------- RecommendProviders ----------

func TestRecommendProviders_TopThree(t *testing.T) {
	var providers []Provider
	var slots []TimeSlot
	for i := 0; i < 6; i++ {
		p := Provider{ID: uuid.New(), Name: "Dr.", Specialties: []string{"general"}}
		providers = append(providers, p)
		slots = append(slots, slotAt(p.ID, time.Duration(i+1)*time.Hour))
	}

	recommended := RecommendProviders(SchedulingPreferences{Urgency: UrgencyMedium}, providers, slots, schedNow)
	if len(recommended) != 3 {
		t.Errorf("got %d recommendations, want 3", len(recommended))
	}
}

func TestRecommendProviders_NoSlotsRanksLower(t *testing.T) {
	withSlots := Provider{ID: uuid.New(), Name: "Dr. Available", Specialties: []string{"general"}}
	without := Provider{ID: uuid.New(), Name: "Dr. Booked", Specialties: []string{"general"}}
	slots := []TimeSlot{slotAt(withSlots.ID, time.Hour)}

	recommended := RecommendProviders(SchedulingPreferences{Urgency: UrgencyHigh}, []Provider{without, withSlots}, slots, schedNow)
	if len(recommended) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recommended))
	}
	if recommended[0].ID != withSlots.ID {
		t.Error("provider with availability should outrank one with no slots")
	}
}

func TestRecommendProviders_Empty(t *testing.T) {
	recommended := RecommendProviders(SchedulingPreferences{Urgency: UrgencyLow}, nil, nil, schedNow)
	if recommended == nil || len(recommended) != 0 {
		t.Errorf("empty input should yield an empty slice, got %v", recommended)
	}
}

// ---------- ValidateSlotUrgency ----------

func TestValidateSlotUrgency(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration
		urgency string
		want    bool
	}{
		{"high within ceiling", 12 * time.Hour, UrgencyHigh, true},
		{"high exactly at ceiling", 1440 * time.Minute, UrgencyHigh, true},
		{"high one minute over", 1441 * time.Minute, UrgencyHigh, false},
		{"medium within ceiling", 48 * time.Hour, UrgencyMedium, true},
		{"medium exactly at ceiling", 4320 * time.Minute, UrgencyMedium, true},
		{"medium over ceiling", 4321 * time.Minute, UrgencyMedium, false},
		{"low within ceiling", 6 * 24 * time.Hour, UrgencyLow, true},
		{"low exactly at ceiling", 10080 * time.Minute, UrgencyLow, true},
		{"low over ceiling", 10081 * time.Minute, UrgencyLow, false},
		{"past slot always within", -time.Hour, UrgencyHigh, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := TimeSlot{StartTime: schedNow.Add(tt.offset)}
			if got := ValidateSlotUrgency(slot, tt.urgency, schedNow); got != tt.want {
				t.Errorf("ValidateSlotUrgency(%s, %s) = %v, want %v", tt.offset, tt.urgency, got, tt.want)
			}
		})
	}
}

func TestValidateSlotUrgency_UnknownTier(t *testing.T) {
	slot := TimeSlot{StartTime: schedNow.Add(time.Hour)}
	if ValidateSlotUrgency(slot, "critical", schedNow) {
		t.Error("unknown urgency tier must not validate")
	}
}
