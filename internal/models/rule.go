package models

// Standard groups rules by the regime that mandates them
type Standard string

const (
	StandardITAR   Standard = "ITAR"
	StandardAS9100 Standard = "AS9100"
	StandardFAR    Standard = "FAR"
	StandardCustom Standard = "CUSTOM"
)

// Valid reports whether s is a known standard
func (s Standard) Valid() bool {
	switch s {
	case StandardITAR, StandardAS9100, StandardFAR, StandardCustom:
		return true
	}
	return false
}

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank orders severities, HIGH first
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// CostRange monetary exposure in whole dollars
type CostRange struct {
	Min int64 `yaml:"min" json:"min"`
	Max int64 `yaml:"max" json:"max"`
}

// Add sums two ranges
func (c CostRange) Add(o CostRange) CostRange {
	return CostRange{Min: c.Min + o.Min, Max: c.Max + o.Max}
}

// PredicateKind tags the predicate variant
type PredicateKind string

const (
	PredicatePresence   PredicateKind = "presence"
	PredicatePattern    PredicateKind = "pattern"
	PredicateMembership PredicateKind = "membership"
	PredicateCrossField PredicateKind = "cross_field"
	PredicateCEL        PredicateKind = "cel"
)

// MembershipMode allow or deny list
type MembershipMode string

const (
	MembershipAllow MembershipMode = "allow"
	MembershipDeny  MembershipMode = "deny"
)

// MatchMode for membership comparisons
type MatchMode string

const (
	MatchSubstring MatchMode = "substring"
	MatchExact     MatchMode = "exact"
)

// PredicateSpec is the tagged predicate as written in catalog config.
// Only the parameters relevant to Kind are read.
type PredicateSpec struct {
	Kind PredicateKind `yaml:"kind" json:"kind"`

	// presence, pattern, membership
	Field    string   `yaml:"field,omitempty" json:"field,omitempty"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// presence: every entry must be non-blank (and match, if markers are set)
	RequireAll bool `yaml:"require_all,omitempty" json:"require_all,omitempty"`

	// membership
	Values []string       `yaml:"values,omitempty" json:"values,omitempty"`
	Mode   MembershipMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Match  MatchMode      `yaml:"match,omitempty" json:"match,omitempty"`

	// cross_field
	When    *FieldCondition `yaml:"when,omitempty" json:"when,omitempty"`
	Require *FieldCondition `yaml:"require,omitempty" json:"require,omitempty"`

	// cel
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// FieldCondition one side of a cross-field check
type FieldCondition struct {
	Field    string   `yaml:"field" json:"field"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// RuleSpec is a single rule entry from catalog config
type RuleSpec struct {
	ID          string         `yaml:"id" json:"id"`
	Standard    Standard       `yaml:"standard" json:"standard"`
	AppliesTo   []DocumentType `yaml:"applies_to" json:"applies_to"`
	Severity    Severity       `yaml:"severity" json:"severity"`
	CostRange   CostRange      `yaml:"cost_range" json:"cost_range"`
	Description string         `yaml:"description" json:"description"`
	Fix         string         `yaml:"fix" json:"fix"`
	Reference   string         `yaml:"reference,omitempty" json:"reference,omitempty"`
	Predicate   PredicateSpec  `yaml:"predicate" json:"predicate"`
}

// AppliesToType checks routing
func (r RuleSpec) AppliesToType(t DocumentType) bool {
	for _, a := range r.AppliesTo {
		if a == t {
			return true
		}
	}
	return false
}

// CatalogConfig from yaml
type CatalogConfig struct {
	Name             string     `yaml:"name" json:"name"`
	Version          string     `yaml:"version" json:"version"`
	MinEngineVersion string     `yaml:"min_engine_version,omitempty" json:"min_engine_version,omitempty"`
	Rules            []RuleSpec `yaml:"rules" json:"rules"`
}
