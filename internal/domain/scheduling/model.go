package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the scheduling domain.
var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrUnknownUrgency   = errors.New("unknown urgency tier")
)

// Urgency tiers recognized by the optimizer and the slot validator.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Provider is a clinician that slots can be booked against. Providers are
// supplied per request; the optimizer holds no provider state of its own.
type Provider struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialties []string  `json:"specialties,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// TimeSlot is a specific bookable provider time window.
type TimeSlot struct {
	ID         uuid.UUID `json:"id,omitempty"`
	ProviderID uuid.UUID `json:"provider_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// SchedulingPreferences steers the optimizer for one request.
type SchedulingPreferences struct {
	Urgency              string      `json:"urgency"` // high|medium|low
	PreferredSpecialties []string    `json:"preferred_specialties,omitempty"`
	PreferredProviders   []uuid.UUID `json:"preferred_providers,omitempty"`
	PreferredTimeSlots   []TimeSlot  `json:"preferred_time_slots,omitempty"`
	MaxWaitTimeMinutes   int         `json:"max_wait_time_minutes,omitempty"` // 0 means the one-week default
}

// Validate rejects malformed preferences.
func (p SchedulingPreferences) Validate() error {
	switch p.Urgency {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
	default:
		return ErrUnknownUrgency
	}
	if p.MaxWaitTimeMinutes < 0 {
		return errors.New("max_wait_time_minutes must not be negative")
	}
	return nil
}

// ScoredSlot is one ranked candidate slot.
type ScoredSlot struct {
	Slot       TimeSlot  `json:"slot"`
	Score      float64   `json:"score"`
	ProviderID uuid.UUID `json:"provider_id"`
}
