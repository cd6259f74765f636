package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConditionType discriminates the condition tagged union. Evaluation is a
// single exhaustive switch over this type; adding a new variant means
// extending the switch, not a class hierarchy.
type ConditionType string

const (
	ConditionSymptom     ConditionType = "symptom"
	ConditionVital       ConditionType = "vital"
	ConditionRiskFactor  ConditionType = "risk_factor"
	ConditionDemographic ConditionType = "demographic"
	ConditionTemporal    ConditionType = "temporal"
	ConditionComposite   ConditionType = "composite"
)

// Comparator is the comparison operator used by numeric, temporal and
// demographic conditions.
type Comparator string

const (
	CompLT  Comparator = "<"
	CompLTE Comparator = "<="
	CompGT  Comparator = ">"
	CompGTE Comparator = ">="
	CompEQ  Comparator = "="
	CompNE  Comparator = "!="
)

var validComparators = map[Comparator]bool{
	CompLT: true, CompLTE: true, CompGT: true, CompGTE: true, CompEQ: true, CompNE: true,
}

// Composite operators.
const (
	OpAND = "AND"
	OpOR  = "OR"
)

// Temporal units.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// Condition is a recursive tagged union. Exactly one variant's fields are
// meaningful for a given Type; Validate enforces that.
type Condition struct {
	Type ConditionType `json:"type"`

	// symptom
	SymptomID      string   `json:"symptom_id,omitempty"`
	Presence       *bool    `json:"presence,omitempty"` // nil means true
	Qualifiers     []string `json:"qualifiers,omitempty"`
	Modifiers      []string `json:"modifiers,omitempty"`
	TimeframeHours float64  `json:"timeframe_hours,omitempty"`

	// vital
	VitalID string `json:"vital_id,omitempty"`

	// risk factor
	Factor string `json:"factor,omitempty"`

	// demographic / temporal
	Attribute string `json:"attribute,omitempty"`
	TextValue string `json:"text_value,omitempty"` // demographic string compare, = and != only
	Unit      string `json:"unit,omitempty"`       // temporal: minutes|hours|days

	// shared by vital/demographic/temporal
	Comparator Comparator `json:"comparator,omitempty"`
	Value      float64    `json:"value,omitempty"`

	// composite
	Operator   string      `json:"operator,omitempty"` // AND|OR
	Children   []Condition `json:"children,omitempty"`
	MinMatches *int        `json:"min_matches,omitempty"`

	// Weight contributes to confidence; 0 is treated as the default 1.
	Weight float64 `json:"weight,omitempty"`
}

// clone returns a deep copy of the condition tree.
func (c Condition) clone() Condition {
	cp := c
	cp.Qualifiers = cloneStrings(c.Qualifiers)
	cp.Modifiers = cloneStrings(c.Modifiers)
	if c.Presence != nil {
		v := *c.Presence
		cp.Presence = &v
	}
	if c.MinMatches != nil {
		v := *c.MinMatches
		cp.MinMatches = &v
	}
	if c.Children != nil {
		cp.Children = make([]Condition, len(c.Children))
		for i, child := range c.Children {
			cp.Children[i] = child.clone()
		}
	}
	return cp
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// WantsPresence returns the presence test for symptom and risk-factor
// conditions, defaulting to true when unset.
func (c Condition) WantsPresence() bool {
	if c.Presence == nil {
		return true
	}
	return *c.Presence
}

// EffectiveWeight returns the condition weight, defaulting to 1.
func (c Condition) EffectiveWeight() float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// EffectiveMinMatches returns the match threshold for a composite:
// min_matches when set, otherwise len(children) for AND and 1 for OR.
func (c Condition) EffectiveMinMatches() int {
	if c.MinMatches != nil {
		return *c.MinMatches
	}
	if c.Operator == OpAND {
		return len(c.Children)
	}
	return 1
}

// Validate checks the condition tree recursively.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionSymptom:
		if c.SymptomID == "" {
			return &ValidationError{Field: "symptom_id", Reason: "required for symptom conditions"}
		}
		if c.TimeframeHours < 0 {
			return &ValidationError{Field: "timeframe_hours", Reason: "must not be negative"}
		}
	case ConditionVital:
		if c.VitalID == "" {
			return &ValidationError{Field: "vital_id", Reason: "required for vital conditions"}
		}
		if !validComparators[c.Comparator] {
			return &ValidationError{Field: "comparator", Reason: fmt.Sprintf("unknown comparator %q", c.Comparator)}
		}
	case ConditionRiskFactor:
		if c.Factor == "" {
			return &ValidationError{Field: "factor", Reason: "required for risk factor conditions"}
		}
	case ConditionDemographic:
		if c.Attribute == "" {
			return &ValidationError{Field: "attribute", Reason: "required for demographic conditions"}
		}
		if !validComparators[c.Comparator] {
			return &ValidationError{Field: "comparator", Reason: fmt.Sprintf("unknown comparator %q", c.Comparator)}
		}
		if c.TextValue != "" && c.Comparator != CompEQ && c.Comparator != CompNE {
			return &ValidationError{Field: "comparator", Reason: "text comparisons support = and != only"}
		}
	case ConditionTemporal:
		if c.Attribute == "" {
			return &ValidationError{Field: "attribute", Reason: "required for temporal conditions"}
		}
		if !validComparators[c.Comparator] {
			return &ValidationError{Field: "comparator", Reason: fmt.Sprintf("unknown comparator %q", c.Comparator)}
		}
		switch c.Unit {
		case UnitMinutes, UnitHours, UnitDays:
		default:
			return &ValidationError{Field: "unit", Reason: fmt.Sprintf("unknown temporal unit %q", c.Unit)}
		}
	case ConditionComposite:
		if c.Operator != OpAND && c.Operator != OpOR {
			return &ValidationError{Field: "operator", Reason: fmt.Sprintf("unknown operator %q", c.Operator)}
		}
		if len(c.Children) == 0 {
			return &ValidationError{Field: "children", Reason: "composite conditions need at least one child"}
		}
		if c.MinMatches != nil && (*c.MinMatches < 1 || *c.MinMatches > len(c.Children)) {
			return &ValidationError{Field: "min_matches", Reason: "must be between 1 and the number of children"}
		}
		for i, child := range c.Children {
			if err := child.Validate(); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown condition type %q", c.Type)}
	}
	if c.Weight < 0 {
		return &ValidationError{Field: "weight", Reason: "must not be negative"}
	}
	return nil
}

// Severity is the clinical severity band of a rule.
type Severity string

const (
	SeverityEmergent   Severity = "emergent"
	SeverityUrgent     Severity = "urgent"
	SeveritySemiUrgent Severity = "semi-urgent"
	SeverityNonUrgent  Severity = "non-urgent"
)

var validSeverities = map[Severity]bool{
	SeverityEmergent: true, SeverityUrgent: true, SeveritySemiUrgent: true, SeverityNonUrgent: true,
}

// EvidenceLevel grades the clinical evidence behind a rule. A is strongest.
type EvidenceLevel string

const (
	EvidenceA      EvidenceLevel = "A"
	EvidenceB      EvidenceLevel = "B"
	EvidenceC      EvidenceLevel = "C"
	EvidenceD      EvidenceLevel = "D"
	EvidenceExpert EvidenceLevel = "expert"
)

var evidenceRank = map[EvidenceLevel]int{
	EvidenceA: 0, EvidenceB: 1, EvidenceC: 2, EvidenceD: 3, EvidenceExpert: 4,
}

// Rank returns the ordinal position of the evidence level; lower is
// stronger. Unknown levels rank below expert.
func (e EvidenceLevel) Rank() int {
	if r, ok := evidenceRank[e]; ok {
		return r
	}
	return len(evidenceRank)
}

// TimeToProvider expresses how quickly a matched patient should be seen.
type TimeToProvider struct {
	Min    *int   `json:"min,omitempty"`
	Target int    `json:"target"`
	Unit   string `json:"unit"` // minutes|hours|days
}

// Minutes converts the window to minutes, preferring Min when present.
func (t TimeToProvider) Minutes() int {
	v := t.Target
	if t.Min != nil {
		v = *t.Min
	}
	switch t.Unit {
	case UnitHours:
		return v * 60
	case UnitDays:
		return v * 1440
	default:
		return v
	}
}

// RuleOutcome is what a matched rule prescribes.
type RuleOutcome struct {
	TriageLevel          int            `json:"triage_level"` // 1 most urgent .. 5
	RecommendedActions   []string       `json:"recommended_actions,omitempty"`
	TimeToProvider       TimeToProvider `json:"time_to_provider"`
	FollowUpInstructions string         `json:"follow_up_instructions,omitempty"`
	PotentialDiagnoses   []string       `json:"potential_diagnoses,omitempty"`
	RiskFactors          []string       `json:"risk_factors,omitempty"`
}

// Rule is a published, immutable clinical triage rule. A new revision is a
// new (ID, Version) pair; published rules are never edited in place.
type Rule struct {
	ID                  uuid.UUID     `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description,omitempty"`
	ClinicalCategories  []string      `json:"clinical_categories,omitempty"`
	Severity            Severity      `json:"severity"`
	EvidenceLevel       EvidenceLevel `json:"evidence_level"`
	Condition           Condition     `json:"condition"`
	Exceptions          []Condition   `json:"exceptions,omitempty"`
	Outcome             RuleOutcome   `json:"outcome"`
	Version             int           `json:"version"`
	EffectiveDate       time.Time     `json:"effective_date"`
	ExpirationDate      *time.Time    `json:"expiration_date,omitempty"`
	LastReviewDate      *time.Time    `json:"last_review_date,omitempty"`
	Reviewers           []string      `json:"reviewers,omitempty"`
	Weight              float64       `json:"weight,omitempty"`               // default 1
	ConfidenceThreshold float64       `json:"confidence_threshold,omitempty"` // default 0
}

// Clone returns a deep copy owning none of the receiver's memory. Published
// rules are cloned on entry so later caller mutations cannot reach a snapshot.
func (r *Rule) Clone() *Rule {
	cp := *r
	cp.ClinicalCategories = cloneStrings(r.ClinicalCategories)
	cp.Reviewers = cloneStrings(r.Reviewers)
	cp.Condition = r.Condition.clone()
	if r.Exceptions != nil {
		cp.Exceptions = make([]Condition, len(r.Exceptions))
		for i, exc := range r.Exceptions {
			cp.Exceptions[i] = exc.clone()
		}
	}
	if r.ExpirationDate != nil {
		v := *r.ExpirationDate
		cp.ExpirationDate = &v
	}
	if r.LastReviewDate != nil {
		v := *r.LastReviewDate
		cp.LastReviewDate = &v
	}
	cp.Outcome.RecommendedActions = cloneStrings(r.Outcome.RecommendedActions)
	cp.Outcome.PotentialDiagnoses = cloneStrings(r.Outcome.PotentialDiagnoses)
	cp.Outcome.RiskFactors = cloneStrings(r.Outcome.RiskFactors)
	if r.Outcome.TimeToProvider.Min != nil {
		v := *r.Outcome.TimeToProvider.Min
		cp.Outcome.TimeToProvider.Min = &v
	}
	return &cp
}

// EffectiveWeight returns the rule weight, defaulting to 1.
func (r *Rule) EffectiveWeight() float64 {
	if r.Weight <= 0 {
		return 1
	}
	return r.Weight
}

// ActiveAt reports whether the rule is in force at t.
func (r *Rule) ActiveAt(t time.Time) bool {
	if r.EffectiveDate.After(t) {
		return false
	}
	return r.ExpirationDate == nil || r.ExpirationDate.After(t)
}

// Validate checks a rule before publication.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !validSeverities[r.Severity] {
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", r.Severity)}
	}
	if _, ok := evidenceRank[r.EvidenceLevel]; !ok {
		return &ValidationError{Field: "evidence_level", Reason: fmt.Sprintf("unknown evidence level %q", r.EvidenceLevel)}
	}
	if r.Outcome.TriageLevel < 1 || r.Outcome.TriageLevel > 5 {
		return &ValidationError{Field: "outcome.triage_level", Reason: "must be between 1 and 5"}
	}
	switch r.Outcome.TimeToProvider.Unit {
	case UnitMinutes, UnitHours, UnitDays:
	default:
		return &ValidationError{Field: "outcome.time_to_provider.unit", Reason: fmt.Sprintf("unknown unit %q", r.Outcome.TimeToProvider.Unit)}
	}
	if r.Version < 1 {
		return &ValidationError{Field: "version", Reason: "must be at least 1"}
	}
	if r.EffectiveDate.IsZero() {
		return &ValidationError{Field: "effective_date", Reason: "required"}
	}
	if r.ExpirationDate != nil && !r.ExpirationDate.After(r.EffectiveDate) {
		return &ValidationError{Field: "expiration_date", Reason: "must be after effective_date"}
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return &ValidationError{Field: "confidence_threshold", Reason: "must be between 0 and 1"}
	}
	if r.Weight < 0 {
		return &ValidationError{Field: "weight", Reason: "must not be negative"}
	}
	if err := r.Condition.Validate(); err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	for i, exc := range r.Exceptions {
		if err := exc.Validate(); err != nil {
			return fmt.Errorf("exception %d: %w", i, err)
		}
	}
	return nil
}
