package triage

import (
	"strings"
)

// Departments the scorer routes to.
const (
	DeptGeneralMedicine = "General Medicine"
	DeptCardiology      = "Cardiology"
	DeptEmergency       = "Emergency"
	DeptNeurology       = "Neurology"
	DeptOrthopedics     = "Orthopedics"
	DeptPulmonology     = "Pulmonology"
)

// departmentByCategory maps a rule's clinical category to a department.
var departmentByCategory = map[string]string{
	"cardiac":         DeptCardiology,
	"cardiovascular":  DeptCardiology,
	"respiratory":     DeptPulmonology,
	"pulmonary":       DeptPulmonology,
	"neurological":    DeptNeurology,
	"musculoskeletal": DeptOrthopedics,
	"trauma":          DeptEmergency,
	"emergency":       DeptEmergency,
}

// DepartmentForCategories resolves the first recognized clinical category to
// a department, defaulting to General Medicine.
func DepartmentForCategories(categories []string) string {
	for _, cat := range categories {
		if dept, ok := departmentByCategory[strings.ToLower(cat)]; ok {
			return dept
		}
	}
	return DeptGeneralMedicine
}

// Score maps a rule selection (or its absence) onto a TriageOutcome. The
// returned outcome is a fresh value; re-evaluation builds a new one.
func Score(enc *Encounter, sel *Selection) TriageOutcome {
	if sel != nil {
		return scoreFromRule(sel)
	}
	return scoreHeuristic(enc)
}

func scoreFromRule(sel *Selection) TriageOutcome {
	r := sel.Rule
	id := r.ID
	return TriageOutcome{
		TriageLevel:          r.Outcome.TriageLevel,
		TriageScore:          ScoreForLevel(r.Outcome.TriageLevel),
		Department:           DepartmentForCategories(r.ClinicalCategories),
		EstimatedWaitMinutes: r.Outcome.TimeToProvider.Minutes(),
		PotentialDiagnoses:   dedupe(r.Outcome.PotentialDiagnoses),
		RecommendedActions:   dedupe(r.Outcome.RecommendedActions),
		RiskFactors:          dedupe(r.Outcome.RiskFactors),
		FollowUpInstructions: r.Outcome.FollowUpInstructions,
		MatchedRuleID:        &id,
		MatchedRuleVersion:   r.Version,
		Confidence:           sel.Confidence,
	}
}

// scoreRank orders the urgency bands for the escalate-only fallback chain.
var scoreRank = map[TriageScore]int{ScoreLow: 0, ScoreMedium: 1, ScoreHigh: 2}

// fallbackState accumulates the heuristic outcome. Checks run in a fixed
// order and may only raise urgency, never lower it; a check firing at the
// urgency already reached can fill an unset department but does not change
// the wait estimate.
type fallbackState struct {
	score        TriageScore
	wait         int
	department   string
	diagnoses    []string
	actions      []string
	risks        []string
	highTriggers int
	fired        bool
}

func (st *fallbackState) apply(score TriageScore, department string, wait int) {
	st.fired = true
	if score == ScoreHigh {
		st.highTriggers++
	}
	if scoreRank[score] > scoreRank[st.score] {
		st.score = score
		st.wait = wait
		if department != "" {
			st.department = department
		}
		return
	}
	if scoreRank[score] == scoreRank[st.score] && st.department == "" && department != "" {
		st.department = department
	}
}

func scoreHeuristic(enc *Encounter) TriageOutcome {
	st := &fallbackState{score: ScoreLow, wait: 60}

	if enc.PainLevel >= 8 {
		st.apply(ScoreHigh, "", 15)
		st.diagnoses = append(st.diagnoses, "Severe pain presentation")
		st.risks = append(st.risks, "severe pain")
		st.actions = append(st.actions, "Immediate pain assessment")
	} else if enc.PainLevel >= 5 {
		st.apply(ScoreMedium, "", 30)
		st.diagnoses = append(st.diagnoses, "Moderate pain presentation")
	}

	if mentionsChest(enc) {
		st.apply(ScoreHigh, DeptCardiology, 15)
		st.diagnoses = append(st.diagnoses, "Possible cardiac involvement")
		st.risks = append(st.risks, "chest pain")
		st.actions = append(st.actions, "Obtain 12-lead ECG")
	}

	if s, ok := enc.Symptoms["difficulty_breathing"]; ok && s.Present {
		st.apply(ScoreHigh, DeptEmergency, 10)
		st.diagnoses = append(st.diagnoses, "Respiratory distress")
		st.risks = append(st.risks, "difficulty breathing")
		st.actions = append(st.actions, "Monitor oxygen saturation")
	}

	if strings.EqualFold(enc.ImpactOnActivities, "severe") {
		st.apply(ScoreHigh, "", 20)
		st.risks = append(st.risks, "severe functional impact")
	}

	if historyContains(enc.MedicalHistory, "heart") {
		st.apply(ScoreHigh, DeptCardiology, 15)
		st.risks = append(st.risks, "cardiac history")
	}

	if st.department == "" {
		st.department = DeptGeneralMedicine
	}

	level := levelForHeuristic(st)
	confidence := 0.3
	if st.fired {
		confidence = 0.6
	}

	return TriageOutcome{
		TriageLevel:          level,
		TriageScore:          st.score,
		Department:           st.department,
		EstimatedWaitMinutes: st.wait,
		PotentialDiagnoses:   dedupe(st.diagnoses),
		RecommendedActions:   dedupe(st.actions),
		RiskFactors:          dedupe(st.risks),
		Confidence:           confidence,
	}
}

// levelForHeuristic maps the accumulated band onto a 1-5 level. Multiple
// independent high-urgency triggers push level 2 to 1.
func levelForHeuristic(st *fallbackState) int {
	switch st.score {
	case ScoreHigh:
		if st.highTriggers >= 2 {
			return 1
		}
		return 2
	case ScoreMedium:
		return 3
	default:
		return 4
	}
}

// mentionsChest reports a chest complaint whether it arrives as the pain
// location or as a present symptom entry (name or qualifier).
func mentionsChest(enc *Encounter) bool {
	if strings.Contains(strings.ToLower(enc.PainLocation), "chest") {
		return true
	}
	for name, s := range enc.Symptoms {
		if !s.Present {
			continue
		}
		if strings.Contains(strings.ToLower(name), "chest") {
			return true
		}
		for _, q := range s.Qualifiers {
			if strings.Contains(strings.ToLower(q), "chest") {
				return true
			}
		}
	}
	return false
}

func historyContains(history []string, needle string) bool {
	for _, h := range history {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// dedupe removes duplicate values preserving first-seen order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
