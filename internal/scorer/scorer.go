// Package scorer turns violations into a compliance report.
package scorer

import (
	"fmt"
	"sort"

	"github.com/aerocheck/aerocheck/internal/models"
)

// MaxScore is the score of a clean document
const MaxScore = 100

// Weight is the score penalty for one violation of the given severity.
// It panics on an unknown severity: catalogs never admit one.
func Weight(s models.Severity) int {
	switch s {
	case models.SeverityHigh:
		return 25
	case models.SeverityMedium:
		return 10
	case models.SeverityLow:
		return 3
	default:
		panic(fmt.Sprintf("scorer: unknown severity %q", s))
	}
}

// Score builds the report. HIGH and MEDIUM findings are violations and
// fail the document; LOW findings are warnings and do not.
func Score(violations []models.Violation) models.ComplianceReport {
	report := models.ComplianceReport{
		Status:     models.StatusPass,
		Violations: []models.Violation{},
		Warnings:   []models.Violation{},
	}

	penalty := 0
	for _, v := range violations {
		penalty += Weight(v.Severity)
		report.EstimatedRisk = report.EstimatedRisk.Add(v.CostRange)

		switch v.Severity {
		case models.SeverityHigh:
			report.Tally.High++
			report.Violations = append(report.Violations, v)
		case models.SeverityMedium:
			report.Tally.Medium++
			report.Violations = append(report.Violations, v)
		case models.SeverityLow:
			report.Tally.Low++
			report.Warnings = append(report.Warnings, v)
		}
	}

	if len(report.Violations) > 0 {
		report.Status = models.StatusFail
	}
	report.RiskScore = max(0, MaxScore-penalty)

	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.Severity != b.Severity {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		return a.RuleID < b.RuleID
	})
	sort.SliceStable(report.Warnings, func(i, j int) bool {
		return report.Warnings[i].RuleID < report.Warnings[j].RuleID
	})

	return report
}
