package report

import (
	"sort"

	"github.com/aerocheck/aerocheck/internal/models"
)

// Recommendation is one process-level action derived from the findings
type Recommendation struct {
	Priority string          `json:"priority"`
	Standard models.Standard `json:"standard,omitempty"`
	Action   string          `json:"action"`
	Rules    []string        `json:"rules,omitempty"`
	Count    int             `json:"count"`
}

var standardActions = map[models.Standard]string{
	models.StandardITAR:   "Add ITAR/export control review to the document release process and train staff on marking requirements",
	models.StandardAS9100: "Route findings through the quality system: update the approved materials and supplier lists and hold a material review board",
	models.StandardFAR:    "Review procurement records with contracts before delivery to avoid false-claims exposure",
	models.StandardCustom: "Resolve the organization-specific findings with the document owner",
}

const compliantAction = "Document is compliant - maintain current processes"

// Recommendations groups findings by standard, most severe group first
func Recommendations(report models.ComplianceReport) []Recommendation {
	all := report.All()
	if len(all) == 0 {
		return []Recommendation{{Priority: "info", Action: compliantAction}}
	}

	type bucket struct {
		worst models.Severity
		rules []string
		seen  map[string]bool
		count int
	}
	buckets := map[models.Standard]*bucket{}
	for _, v := range all {
		b, ok := buckets[v.Standard]
		if !ok {
			b = &bucket{worst: v.Severity, seen: map[string]bool{}}
			buckets[v.Standard] = b
		}
		if v.Severity.Rank() < b.worst.Rank() {
			b.worst = v.Severity
		}
		if !b.seen[v.RuleID] {
			b.seen[v.RuleID] = true
			b.rules = append(b.rules, v.RuleID)
		}
		b.count++
	}

	out := make([]Recommendation, 0, len(buckets))
	for std, b := range buckets {
		sort.Strings(b.rules)
		action, ok := standardActions[std]
		if !ok {
			action = standardActions[models.StandardCustom]
		}
		out = append(out, Recommendation{
			Priority: priority(b.worst),
			Standard: std,
			Action:   action,
			Rules:    b.rules,
			Count:    b.count,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if ri != rj {
			return ri < rj
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Standard < out[j].Standard
	})
	return out
}

func priority(s models.Severity) string {
	switch s {
	case models.SeverityHigh:
		return "high"
	case models.SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}
