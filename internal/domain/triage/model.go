package triage

import (
	"time"

	"github.com/google/uuid"
)

// Symptom is one reported symptom on an encounter.
type Symptom struct {
	Present    bool       `json:"present"`
	Severity   float64    `json:"severity,omitempty"` // 0-10 scale
	Qualifiers []string   `json:"qualifiers,omitempty"`
	Modifiers  []string   `json:"modifiers,omitempty"`
	Onset      *time.Time `json:"onset,omitempty"`
}

// VitalReading is a single historical vital sign measurement.
type VitalReading struct {
	Value   float64   `json:"value"`
	TakenAt time.Time `json:"taken_at"`
}

// Demographics holds the patient attributes rules may test against.
type Demographics struct {
	AgeYears   float64           `json:"age_years,omitempty"`
	Sex        string            `json:"sex,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Encounter is the structured snapshot of one patient's presentation at
// triage time. It is read-only during evaluation; normalization of free-text
// input happens upstream.
type Encounter struct {
	PatientID uuid.UUID `json:"patient_id,omitempty"`
	// Time is the clinical reference time for timeframe and temporal tests.
	Time time.Time `json:"time"`

	Symptoms     map[string]Symptom        `json:"symptoms,omitempty"`
	Vitals       map[string]float64        `json:"vitals,omitempty"`
	VitalHistory map[string][]VitalReading `json:"vital_history,omitempty"`
	RiskFactors  []string                  `json:"risk_factors,omitempty"`
	Demographics Demographics              `json:"demographics"`
	// Temporal markers such as symptom onset, keyed by attribute name.
	Temporal map[string]time.Time `json:"temporal,omitempty"`

	// Intake form fields consumed by the heuristic fallbacks.
	PainLevel          float64  `json:"pain_level,omitempty"` // 0-10
	PainLocation       string   `json:"pain_location,omitempty"`
	ImpactOnActivities string   `json:"impact_on_activities,omitempty"` // none|mild|moderate|severe
	MedicalHistory     []string `json:"medical_history,omitempty"`
}

// HasRiskFactor reports whether the named risk factor is present.
func (e *Encounter) HasRiskFactor(factor string) bool {
	for _, f := range e.RiskFactors {
		if f == factor {
			return true
		}
	}
	return false
}

// TriageScore is the coarse urgency band derived from the triage level.
type TriageScore string

const (
	ScoreHigh   TriageScore = "High"
	ScoreMedium TriageScore = "Medium"
	ScoreLow    TriageScore = "Low"
)

// ScoreForLevel maps a 1-5 triage level onto its urgency band.
func ScoreForLevel(level int) TriageScore {
	switch {
	case level <= 2:
		return ScoreHigh
	case level == 3:
		return ScoreMedium
	default:
		return ScoreLow
	}
}

// Urgency returns the scheduling urgency tier for the score.
func (s TriageScore) Urgency() string {
	switch s {
	case ScoreHigh:
		return "high"
	case ScoreMedium:
		return "medium"
	default:
		return "low"
	}
}

// TriageOutcome is the immutable result of evaluating one encounter.
// A re-evaluation produces a new outcome, never a mutation.
type TriageOutcome struct {
	TriageLevel          int         `json:"triage_level"` // 1 most urgent .. 5
	TriageScore          TriageScore `json:"triage_score"`
	Department           string      `json:"department"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
	PotentialDiagnoses   []string    `json:"potential_diagnoses,omitempty"`
	RecommendedActions   []string    `json:"recommended_actions,omitempty"`
	RiskFactors          []string    `json:"risk_factors,omitempty"`
	FollowUpInstructions string      `json:"follow_up_instructions,omitempty"`
	MatchedRuleID        *uuid.UUID  `json:"matched_rule_id,omitempty"`
	MatchedRuleVersion   int         `json:"matched_rule_version,omitempty"`
	Confidence           float64     `json:"confidence"`
	Warnings             []string    `json:"warnings,omitempty"`
}
