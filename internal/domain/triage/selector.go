package triage

import (
	"sort"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/domain/rules"
)

// Selection is a rule that matched an encounter, with its evaluated
// confidence.
type Selection struct {
	Rule       *rules.Rule
	Confidence float64
}

// SelectRule evaluates every rule in the active set against the encounter
// and picks the winner. A rule whose condition matches is still discarded if
// any of its exceptions matches, or if its confidence falls below the rule's
// own threshold. Returns nil when no rule survives; the caller then falls
// back to heuristic scoring.
//
// Tie-break ordering among surviving candidates: more urgent outcome (lower
// triage level), stronger evidence level, higher confidence, higher rule
// weight, and finally rule ID so selection is deterministic. The ordering is
// inferred design intent and is subject to clinical review.
func SelectRule(enc *Encounter, active []*rules.Rule) *Selection {
	var candidates []Selection

	for _, r := range active {
		matched, confidence := Evaluate(r.Condition, enc)
		if !matched {
			continue
		}
		if suppressed(r, enc) {
			continue
		}
		if confidence < r.ConfidenceThreshold {
			continue
		}
		candidates = append(candidates, Selection{Rule: r, Confidence: confidence})
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Rule.Outcome.TriageLevel != b.Rule.Outcome.TriageLevel {
			return a.Rule.Outcome.TriageLevel < b.Rule.Outcome.TriageLevel
		}
		if ar, br := a.Rule.EvidenceLevel.Rank(), b.Rule.EvidenceLevel.Rank(); ar != br {
			return ar < br
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if aw, bw := a.Rule.EffectiveWeight(), b.Rule.EffectiveWeight(); aw != bw {
			return aw > bw
		}
		return a.Rule.ID.String() < b.Rule.ID.String()
	})

	selected := candidates[0]
	return &selected
}

// suppressed reports whether any exception on the rule matches the
// encounter. Exceptions are OR'd.
func suppressed(r *rules.Rule, enc *Encounter) bool {
	for _, exc := range r.Exceptions {
		if EvaluateException(exc, enc) {
			return true
		}
	}
	return false
}
