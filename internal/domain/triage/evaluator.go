package triage

import (
	"time"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/domain/rules"
)

// Evaluate recursively tests a condition tree against an encounter. It
// returns whether the condition matched and a confidence in [0,1]. The
// function is pure: identical inputs always produce identical output, so
// independent encounters may be evaluated concurrently without locking.
func Evaluate(c rules.Condition, enc *Encounter) (bool, float64) {
	switch c.Type {
	case rules.ConditionComposite:
		return evaluateComposite(c, enc)
	default:
		if evaluateLeaf(c, enc) {
			return true, clampConfidence(c.EffectiveWeight())
		}
		return false, 0
	}
}

func evaluateComposite(c rules.Condition, enc *Encounter) (bool, float64) {
	var (
		matchedCount  int
		weightedSum   float64
		matchedWeight float64
	)
	for _, child := range c.Children {
		matched, conf := Evaluate(child, enc)
		if !matched {
			continue
		}
		matchedCount++
		w := child.EffectiveWeight()
		weightedSum += conf * w
		matchedWeight += w
	}

	if matchedCount < c.EffectiveMinMatches() {
		return false, 0
	}
	if matchedWeight == 0 {
		return true, 0
	}
	avg := weightedSum / matchedWeight
	return true, clampConfidence(avg * c.EffectiveWeight())
}

func evaluateLeaf(c rules.Condition, enc *Encounter) bool {
	switch c.Type {
	case rules.ConditionSymptom:
		return evaluateSymptom(c, enc)
	case rules.ConditionVital:
		v, ok := enc.Vitals[c.VitalID]
		return ok && compareNumeric(v, c.Comparator, c.Value)
	case rules.ConditionRiskFactor:
		return enc.HasRiskFactor(c.Factor) == c.WantsPresence()
	case rules.ConditionDemographic:
		return evaluateDemographic(c, enc)
	case rules.ConditionTemporal:
		return evaluateTemporal(c, enc)
	default:
		return false
	}
}

func evaluateSymptom(c rules.Condition, enc *Encounter) bool {
	s, found := enc.Symptoms[c.SymptomID]
	present := found && s.Present

	if !c.WantsPresence() {
		return !present
	}
	if !present {
		return false
	}
	for _, q := range c.Qualifiers {
		if !containsString(s.Qualifiers, q) {
			return false
		}
	}
	for _, m := range c.Modifiers {
		if !containsString(s.Modifiers, m) {
			return false
		}
	}
	if c.TimeframeHours > 0 {
		if s.Onset == nil {
			return false
		}
		window := time.Duration(c.TimeframeHours * float64(time.Hour))
		if enc.Time.Sub(*s.Onset) > window {
			return false
		}
	}
	return true
}

func evaluateDemographic(c rules.Condition, enc *Encounter) bool {
	if c.TextValue != "" {
		var actual string
		switch c.Attribute {
		case "sex":
			actual = enc.Demographics.Sex
		default:
			actual = enc.Demographics.Attributes[c.Attribute]
		}
		if actual == "" {
			return false
		}
		if c.Comparator == rules.CompNE {
			return actual != c.TextValue
		}
		return actual == c.TextValue
	}

	switch c.Attribute {
	case "age", "age_years":
		return compareNumeric(enc.Demographics.AgeYears, c.Comparator, c.Value)
	default:
		return false
	}
}

func evaluateTemporal(c rules.Condition, enc *Encounter) bool {
	marker, ok := enc.Temporal[c.Attribute]
	if !ok {
		return false
	}
	elapsed := enc.Time.Sub(marker)
	threshold := temporalDuration(c.Value, c.Unit)
	return compareNumeric(elapsed.Minutes(), c.Comparator, threshold.Minutes())
}

func temporalDuration(value float64, unit string) time.Duration {
	switch unit {
	case rules.UnitHours:
		return time.Duration(value * float64(time.Hour))
	case rules.UnitDays:
		return time.Duration(value * 24 * float64(time.Hour))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}

func compareNumeric(actual float64, cmp rules.Comparator, target float64) bool {
	switch cmp {
	case rules.CompLT:
		return actual < target
	case rules.CompLTE:
		return actual <= target
	case rules.CompGT:
		return actual > target
	case rules.CompGTE:
		return actual >= target
	case rules.CompEQ:
		return actual == target
	case rules.CompNE:
		return actual != target
	default:
		return false
	}
}

// EvaluateException tests an exception tree. Presence-style leaves (symptom,
// risk factor) are always evaluated as presence=true tests regardless of the
// condition's own presence flag; other leaves and composite thresholds keep
// their normal semantics.
func EvaluateException(c rules.Condition, enc *Encounter) bool {
	switch c.Type {
	case rules.ConditionComposite:
		matched := 0
		for _, child := range c.Children {
			if EvaluateException(child, enc) {
				matched++
			}
		}
		return matched >= c.EffectiveMinMatches()
	case rules.ConditionSymptom:
		forced := c
		forced.Presence = nil
		return evaluateSymptom(forced, enc)
	case rules.ConditionRiskFactor:
		return enc.HasRiskFactor(c.Factor)
	default:
		return evaluateLeaf(c, enc)
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
