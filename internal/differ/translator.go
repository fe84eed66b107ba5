package differ

import (
	"fmt"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/wI2L/jsondiff"
)

// translate patches to english. A finding touched by several operations
// yields one change.
func translate(patch jsondiff.Patch, oldC, newC snapshot) []Change {
	if len(patch) == 0 {
		return nil
	}

	var changes []Change
	seen := make(map[string]bool)
	add := func(c Change) {
		key := string(c.Type) + "|" + c.Rule
		if seen[key] {
			return
		}
		seen[key] = true
		c.Level = SeverityString(c.Severity)
		changes = append(changes, c)
	}

	for _, op := range patch {
		segments := splitPointer(op.Path)
		if len(segments) == 0 {
			continue
		}

		switch segments[0] {
		case "status":
			add(statusChange(oldC.Status, newC.Status))
		case "risk_score":
			add(scoreChange(oldC.RiskScore, newC.RiskScore))
		case "estimated_risk":
			add(Change{
				Type:     ChangeExposure,
				Severity: exposureSeverity(oldC.EstimatedRisk, newC.EstimatedRisk),
				Message:  fmt.Sprintf("Estimated exposure changed: %s → %s", oldC.EstimatedRisk.Display, newC.EstimatedRisk.Display),
			})
		case "findings":
			if len(segments) < 2 {
				continue
			}
			rule := segments[1]
			switch {
			case len(segments) == 2 && op.Type == jsondiff.OperationAdd:
				add(newFinding(newC.Findings[rule]))
			case len(segments) == 2 && op.Type == jsondiff.OperationRemove:
				add(resolvedFinding(oldC.Findings[rule]))
			default:
				add(changedFinding(oldC.Findings[rule], newC.Findings[rule]))
			}
		}
	}
	return changes
}

// splitPointer decodes an RFC 6901 pointer
func splitPointer(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}

func statusChange(from, to models.Status) Change {
	sev := SeveritySafe
	if to == models.StatusFail {
		sev = SeverityCritical
	}
	return Change{
		Type:     ChangeStatus,
		Severity: sev,
		Message:  fmt.Sprintf("Status changed: %s → %s", from, to),
	}
}

func scoreChange(from, to int) Change {
	sev := SeveritySafe
	verb := "improved"
	if to < from {
		sev = SeverityModerate
		verb = "worsened"
	}
	return Change{
		Type:     ChangeScore,
		Severity: sev,
		Message:  fmt.Sprintf("Risk score %s: %d → %d", verb, from, to),
	}
}

func exposureSeverity(from, to report.Exposure) SeverityLevel {
	if to.Max > from.Max {
		return SeverityModerate
	}
	return SeveritySafe
}

func findingSeverity(s models.Severity) SeverityLevel {
	switch s {
	case models.SeverityHigh, models.SeverityMedium:
		return SeverityCritical
	default:
		return SeverityModerate
	}
}

func newFinding(f report.Finding) Change {
	return Change{
		Type:     ChangeNewFinding,
		Rule:     f.Rule,
		Severity: findingSeverity(f.Severity),
		Message:  fmt.Sprintf("New %s finding %s: %s", f.Severity, f.Rule, f.Description),
	}
}

func resolvedFinding(f report.Finding) Change {
	return Change{
		Type:     ChangeResolvedFinding,
		Rule:     f.Rule,
		Severity: SeveritySafe,
		Message:  fmt.Sprintf("Resolved %s finding %s: %s", f.Severity, f.Rule, f.Description),
	}
}

func changedFinding(from, to report.Finding) Change {
	c := Change{
		Type:     ChangeFindingChanged,
		Rule:     to.Rule,
		Severity: SeverityModerate,
	}
	switch {
	case from.Severity != to.Severity:
		c.Message = fmt.Sprintf("Finding %s severity changed: %s → %s", to.Rule, from.Severity, to.Severity)
		if to.Severity.Rank() > from.Severity.Rank() {
			c.Severity = SeveritySafe
		}
	case strings.Join(from.OffendingValues, "\x00") != strings.Join(to.OffendingValues, "\x00"):
		c.Message = fmt.Sprintf("Finding %s offending values changed: [%s] → [%s]",
			to.Rule, strings.Join(from.OffendingValues, ", "), strings.Join(to.OffendingValues, ", "))
	default:
		c.Severity = SeveritySafe
		c.Message = fmt.Sprintf("Finding %s wording changed.", to.Rule)
	}
	return c
}
