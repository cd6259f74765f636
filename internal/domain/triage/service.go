package triage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/domain/rules"
)

// snapshotter is implemented by rule sources that can report when their
// snapshot was captured; used for the stale-snapshot advisory.
type snapshotter interface {
	Snapshot() *rules.Snapshot
}

// Service evaluates encounters against the active rule set. The evaluation
// itself is pure; the service only adds rule sourcing, validation and the
// advisory staleness check.
type Service struct {
	source    rules.Source
	freshness time.Duration // 0 disables the staleness advisory
	logger    zerolog.Logger
}

// NewService creates a triage service reading rules from source.
func NewService(source rules.Source, freshness time.Duration, logger zerolog.Logger) *Service {
	return &Service{source: source, freshness: freshness, logger: logger}
}

// EvaluateTriage evaluates one encounter against the rules active at asOf
// and returns a fresh TriageOutcome. A no-match is not an error: the
// heuristic fallback chain always produces an outcome.
func (s *Service) EvaluateTriage(ctx context.Context, enc *Encounter, asOf time.Time) (*TriageOutcome, error) {
	if err := ValidateEncounter(enc); err != nil {
		return nil, err
	}
	if enc.Time.IsZero() {
		e := *enc
		e.Time = asOf
		enc = &e
	}

	active, err := s.source.ListActiveRules(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	selection := SelectRule(enc, active)
	outcome := Score(enc, selection)

	if warning := s.stalenessWarning(asOf); warning != "" {
		outcome.Warnings = append(outcome.Warnings, warning)
		s.logger.Warn().Str("warning", warning).Msg("rule snapshot staleness advisory")
	}

	return &outcome, nil
}

// stalenessWarning returns an advisory message when the rule snapshot is
// older than the configured freshness window. Evaluation proceeds either way.
func (s *Service) stalenessWarning(asOf time.Time) string {
	if s.freshness <= 0 {
		return ""
	}
	src, ok := s.source.(snapshotter)
	if !ok {
		return ""
	}
	age := asOf.Sub(src.Snapshot().TakenAt)
	if age <= s.freshness {
		return ""
	}
	return fmt.Sprintf("rule snapshot is %s old, exceeding the %s freshness window", age.Round(time.Second), s.freshness)
}

// ValidateEncounter rejects malformed evaluation input. Malformed data is
// surfaced immediately, never coerced.
func ValidateEncounter(enc *Encounter) error {
	if enc == nil {
		return &rules.ValidationError{Field: "encounter", Reason: "required"}
	}
	if enc.PainLevel < 0 || enc.PainLevel > 10 {
		return &rules.ValidationError{Field: "pain_level", Reason: "must be between 0 and 10"}
	}
	if enc.Demographics.AgeYears < 0 {
		return &rules.ValidationError{Field: "demographics.age_years", Reason: "must not be negative"}
	}
	for name, s := range enc.Symptoms {
		if s.Severity < 0 || s.Severity > 10 {
			return &rules.ValidationError{Field: "symptoms." + name + ".severity", Reason: "must be between 0 and 10"}
		}
	}
	for name, v := range enc.Vitals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &rules.ValidationError{Field: "vitals." + name, Reason: "must be a finite number"}
		}
	}
	return nil
}
