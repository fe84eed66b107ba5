package bundler

import (
	"fmt"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/report"
)

// Readme summarizes the bundled report for a human auditor
func Readme(env *report.Envelope, m *Manifest) string {
	var sb strings.Builder
	md := env.Metadata

	sb.WriteString("aerocheck Compliance Evidence\n")
	sb.WriteString("=============================\n\n")
	if md.Document != "" {
		fmt.Fprintf(&sb, "Document:   %s (%s)\n", md.Document, md.DocumentType)
	}
	fmt.Fprintf(&sb, "Report ID:  %s\n", md.ReportID)
	fmt.Fprintf(&sb, "Generated:  %s\n", md.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&sb, "Catalog:    %s %s\n", md.Catalog, md.CatalogVersion)
	fmt.Fprintf(&sb, "Status:     %s (risk score %d/100)\n", env.Status, env.RiskScore)
	fmt.Fprintf(&sb, "Exposure:   %s\n", env.Summary.EstimatedRisk.Display)
	if m.Signed {
		sb.WriteString("Signature:  report.json.sig (verify with: aerocheck verify report.json --key public.key)\n")
	} else {
		sb.WriteString("Signature:  none\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Findings\n")
	sb.WriteString("--------\n\n")

	groups := map[models.Severity][]report.Finding{}
	for _, f := range append(append([]report.Finding{}, env.Violations...), env.Warnings...) {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	total := 0
	for _, sev := range []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		if len(groups[sev]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n", sev)
		for _, f := range groups[sev] {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.Rule, f.Description)
			total++
		}
		sb.WriteString("\n")
	}
	if total == 0 {
		sb.WriteString("No compliance issues found.\n\n")
	}

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "Total Findings: %d\n", total)
	return sb.String()
}
