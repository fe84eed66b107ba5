package models

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Violation one rule found violated on one document
type Violation struct {
	RuleID          string    `json:"rule_id"`
	Standard        Standard  `json:"standard"`
	Description     string    `json:"description"`
	Severity        Severity  `json:"severity"`
	CostRange       CostRange `json:"cost_range"`
	Fix             string    `json:"fix"`
	Reference       string    `json:"reference,omitempty"`
	OffendingValues []string  `json:"offending_values"`
}

// SeverityTally counts violations by severity
type SeverityTally struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total across severities
func (t SeverityTally) Total() int {
	return t.High + t.Medium + t.Low
}

// ComplianceReport is the terminal artifact of one validation.
// It carries no timestamps or random ids so identical inputs give identical reports.
type ComplianceReport struct {
	Status        Status        `json:"status"`
	RiskScore     int           `json:"risk_score"`
	Violations    []Violation   `json:"violations"`
	Warnings      []Violation   `json:"warnings"`
	EstimatedRisk CostRange     `json:"estimated_risk"`
	Tally         SeverityTally `json:"tally"`
}

// All returns violations followed by warnings
func (r *ComplianceReport) All() []Violation {
	out := make([]Violation, 0, len(r.Violations)+len(r.Warnings))
	out = append(out, r.Violations...)
	return append(out, r.Warnings...)
}

// RuleIDs of everything reported, in report order
func (r *ComplianceReport) RuleIDs() []string {
	all := r.All()
	ids := make([]string, len(all))
	for i, v := range all {
		ids[i] = v.RuleID
	}
	return ids
}
