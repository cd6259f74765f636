package triage

import (
	"math"
	"testing"
	"time"

	"github.com/larose23/smartmedi-ai-mvp-sub006/internal/domain/rules"
)

var evalTime = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func baseEncounter() *Encounter {
	onset := evalTime.Add(-2 * time.Hour)
	return &Encounter{
		Time: evalTime,
		Symptoms: map[string]Symptom{
			"chest_pain": {Present: true, Severity: 8, Qualifiers: []string{"crushing"}, Modifiers: []string{"exertional"}, Onset: &onset},
			"nausea":     {Present: true, Severity: 3},
			"cough":      {Present: false},
		},
		Vitals:      map[string]float64{"spo2": 91, "heart_rate": 118},
		RiskFactors: []string{"diabetes", "smoker"},
		Demographics: Demographics{
			AgeYears:   67,
			Sex:        "female",
			Attributes: map[string]string{"pregnancy": "none"},
		},
		Temporal: map[string]time.Time{
			"symptom_onset": evalTime.Add(-90 * time.Minute),
		},
	}
}

// ---------- Leaf conditions ----------

func TestEvaluate_Leaves(t *testing.T) {
	absent := false
	enc := baseEncounter()

	tests := []struct {
		name string
		cond rules.Condition
		want bool
	}{
		{"symptom present", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain"}, true},
		{"symptom recorded absent", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "cough"}, false},
		{"symptom unreported", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "rash"}, false},
		{"symptom absence wanted", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "rash", Presence: &absent}, true},
		{"symptom absence wanted but present", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Presence: &absent}, false},
		{"symptom qualifier match", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Qualifiers: []string{"crushing"}}, true},
		{"symptom qualifier miss", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Qualifiers: []string{"burning"}}, false},
		{"symptom modifier match", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Modifiers: []string{"exertional"}}, true},
		{"symptom within timeframe", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", TimeframeHours: 6}, true},
		{"symptom outside timeframe", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", TimeframeHours: 1}, false},
		{"symptom timeframe without onset", rules.Condition{Type: rules.ConditionSymptom, SymptomID: "nausea", TimeframeHours: 1}, false},
		{"vital below threshold", rules.Condition{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLT, Value: 92}, true},
		{"vital at exclusive threshold", rules.Condition{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLT, Value: 91}, false},
		{"vital at inclusive threshold", rules.Condition{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLTE, Value: 91}, true},
		{"vital unmeasured", rules.Condition{Type: rules.ConditionVital, VitalID: "temperature", Comparator: rules.CompGT, Value: 38}, false},
		{"risk factor present", rules.Condition{Type: rules.ConditionRiskFactor, Factor: "diabetes"}, true},
		{"risk factor absent", rules.Condition{Type: rules.ConditionRiskFactor, Factor: "copd"}, false},
		{"risk factor absence wanted", rules.Condition{Type: rules.ConditionRiskFactor, Factor: "copd", Presence: &absent}, true},
		{"demographic age", rules.Condition{Type: rules.ConditionDemographic, Attribute: "age", Comparator: rules.CompGTE, Value: 65}, true},
		{"demographic age_years alias", rules.Condition{Type: rules.ConditionDemographic, Attribute: "age_years", Comparator: rules.CompLT, Value: 65}, false},
		{"demographic sex eq", rules.Condition{Type: rules.ConditionDemographic, Attribute: "sex", Comparator: rules.CompEQ, TextValue: "female"}, true},
		{"demographic sex ne", rules.Condition{Type: rules.ConditionDemographic, Attribute: "sex", Comparator: rules.CompNE, TextValue: "male"}, true},
		{"demographic custom attribute", rules.Condition{Type: rules.ConditionDemographic, Attribute: "pregnancy", Comparator: rules.CompEQ, TextValue: "none"}, true},
		{"demographic missing attribute", rules.Condition{Type: rules.ConditionDemographic, Attribute: "blood_type", Comparator: rules.CompEQ, TextValue: "O"}, false},
		{"temporal within window", rules.Condition{Type: rules.ConditionTemporal, Attribute: "symptom_onset", Comparator: rules.CompLTE, Value: 2, Unit: rules.UnitHours}, true},
		{"temporal outside window", rules.Condition{Type: rules.ConditionTemporal, Attribute: "symptom_onset", Comparator: rules.CompLTE, Value: 1, Unit: rules.UnitHours}, false},
		{"temporal in minutes", rules.Condition{Type: rules.ConditionTemporal, Attribute: "symptom_onset", Comparator: rules.CompGT, Value: 60, Unit: rules.UnitMinutes}, true},
		{"temporal missing marker", rules.Condition{Type: rules.ConditionTemporal, Attribute: "admission", Comparator: rules.CompLT, Value: 1, Unit: rules.UnitDays}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := Evaluate(tt.cond, enc)
			if got != tt.want {
				t.Errorf("Evaluate() matched = %v, want %v", got, tt.want)
			}
			if got && conf <= 0 {
				t.Errorf("matched condition has confidence %v, want > 0", conf)
			}
			if !got && conf != 0 {
				t.Errorf("unmatched condition has confidence %v, want 0", conf)
			}
		})
	}
}

// ---------- Composite conditions ----------

func TestEvaluate_CompositeAND(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpAND,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "chest_pain"},
			{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLT, Value: 92},
		},
	}
	if matched, _ := Evaluate(cond, enc); !matched {
		t.Error("AND with all children matching should match")
	}

	cond.Children[1].Value = 90 // spo2 91 no longer below threshold
	if matched, _ := Evaluate(cond, enc); matched {
		t.Error("AND with one failing child should not match")
	}
}

func TestEvaluate_CompositeOR(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpOR,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "rash"},
			{Type: rules.ConditionRiskFactor, Factor: "smoker"},
		},
	}
	if matched, _ := Evaluate(cond, enc); !matched {
		t.Error("OR with one matching child should match")
	}

	cond.Children[1].Factor = "copd"
	if matched, _ := Evaluate(cond, enc); matched {
		t.Error("OR with no matching children should not match")
	}
}

func TestEvaluate_CompositeMinMatches(t *testing.T) {
	two := 2
	enc := baseEncounter()
	cond := rules.Condition{
		Type:       rules.ConditionComposite,
		Operator:   rules.OpAND,
		MinMatches: &two,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "chest_pain"},
			{Type: rules.ConditionRiskFactor, Factor: "diabetes"},
			{Type: rules.ConditionSymptom, SymptomID: "rash"},
		},
	}

	// 2 of 3 children match and min_matches is 2.
	if matched, _ := Evaluate(cond, enc); !matched {
		t.Error("2 of 3 matches should satisfy min_matches 2")
	}

	// Drop to 1 of 3.
	cond.Children[1].Factor = "copd"
	if matched, _ := Evaluate(cond, enc); matched {
		t.Error("1 of 3 matches should not satisfy min_matches 2")
	}
}

func TestEvaluate_NestedComposite(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpAND,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "chest_pain"},
			{
				Type:     rules.ConditionComposite,
				Operator: rules.OpOR,
				Children: []rules.Condition{
					{Type: rules.ConditionVital, VitalID: "heart_rate", Comparator: rules.CompGT, Value: 110},
					{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLT, Value: 85},
				},
			},
		},
	}
	if matched, _ := Evaluate(cond, enc); !matched {
		t.Error("nested composite should match via the inner OR")
	}
}

func TestEvaluate_CompositeConfidenceIsWeightedAverage(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpOR,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Weight: 0.5},
			{Type: rules.ConditionRiskFactor, Factor: "diabetes"},
		},
	}

	matched, conf := Evaluate(cond, enc)
	if !matched {
		t.Fatal("expected match")
	}
	// Leaf confidences are their clamped weights: 0.5 and 1.
	// Weighted average: (0.5*0.5 + 1*1) / (0.5 + 1) = 1.25 / 1.5.
	want := 1.25 / 1.5
	if math.Abs(conf-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", conf, want)
	}
}

func TestEvaluate_ConfidenceClamped(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Weight: 3}
	if _, conf := Evaluate(cond, enc); conf != 1 {
		t.Errorf("confidence = %v, want clamp at 1", conf)
	}
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	enc := baseEncounter()
	cond := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpAND,
		Children: []rules.Condition{
			{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Weight: 0.7},
			{Type: rules.ConditionVital, VitalID: "spo2", Comparator: rules.CompLT, Value: 92},
			{Type: rules.ConditionDemographic, Attribute: "age", Comparator: rules.CompGTE, Value: 65},
		},
	}

	firstMatched, firstConf := Evaluate(cond, enc)
	for i := 0; i < 100; i++ {
		matched, conf := Evaluate(cond, enc)
		if matched != firstMatched || conf != firstConf {
			t.Fatalf("evaluation %d diverged: (%v, %v) vs (%v, %v)", i, matched, conf, firstMatched, firstConf)
		}
	}
}

// ---------- Exceptions ----------

func TestEvaluateException_ForcesPresence(t *testing.T) {
	absent := false
	enc := baseEncounter()

	// The exception names chest_pain with presence=false; exception semantics
	// still test for presence, so it matches on this encounter.
	exc := rules.Condition{Type: rules.ConditionSymptom, SymptomID: "chest_pain", Presence: &absent}
	if !EvaluateException(exc, enc) {
		t.Error("exception should test presence regardless of the presence flag")
	}

	missing := rules.Condition{Type: rules.ConditionSymptom, SymptomID: "rash", Presence: &absent}
	if EvaluateException(missing, enc) {
		t.Error("exception on an unreported symptom should not match")
	}
}

func TestEvaluateException_Composite(t *testing.T) {
	enc := baseEncounter()
	exc := rules.Condition{
		Type:     rules.ConditionComposite,
		Operator: rules.OpAND,
		Children: []rules.Condition{
			{Type: rules.ConditionRiskFactor, Factor: "diabetes"},
			{Type: rules.ConditionDemographic, Attribute: "age", Comparator: rules.CompGTE, Value: 65},
		},
	}
	if !EvaluateException(exc, enc) {
		t.Error("composite exception with all children matching should match")
	}

	exc.Children[1].Value = 80
	if EvaluateException(exc, enc) {
		t.Error("composite exception with a failing child should not match")
	}
}
