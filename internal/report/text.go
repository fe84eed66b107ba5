package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
)

// colors
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// TextOptions control text rendering
type TextOptions struct {
	Color bool
}

func (o TextOptions) paint(color, s string) string {
	if !o.Color || color == "" {
		return s
	}
	return color + s + colorReset
}

// FormatText renders an envelope for humans, findings grouped by severity
func FormatText(env *Envelope, opts TextOptions) string {
	var sb strings.Builder

	header := fmt.Sprintf("aerocheck: %s (risk score %d/100)", env.Status, env.RiskScore)
	if env.Status == models.StatusPass {
		sb.WriteString(opts.paint(colorGreen, header) + "\n")
	} else {
		sb.WriteString(opts.paint(colorRed, header) + "\n")
	}

	md := env.Metadata
	if md.Document != "" {
		fmt.Fprintf(&sb, "Document: %s (%s)\n", md.Document, md.DocumentType)
	}
	fmt.Fprintf(&sb, "Catalog: %s v%s\n", md.Catalog, md.CatalogVersion)
	fmt.Fprintf(&sb, "Estimated exposure: %s\n", env.Summary.EstimatedRisk.Display)
	sb.WriteString("\n")

	if len(env.Violations) == 0 && len(env.Warnings) == 0 {
		sb.WriteString(opts.paint(colorGreen, "✓ No compliance issues found") + "\n\n")
	}

	groups := groupBySeverity(env)
	for _, g := range []struct {
		severity models.Severity
		color    string
	}{
		{models.SeverityHigh, colorRed},
		{models.SeverityMedium, colorYellow},
		{models.SeverityLow, ""},
	} {
		items := groups[g.severity]
		if len(items) == 0 {
			continue
		}
		sb.WriteString(opts.paint(g.color, fmt.Sprintf("%s (%d)", g.severity, len(items))) + "\n")
		for _, f := range items {
			formatFinding(&sb, f, g.color, opts)
		}
		sb.WriteString("\n")
	}

	if len(env.Recommendations) > 0 {
		sb.WriteString(opts.paint(colorBold, "Recommendations") + "\n")
		for _, r := range env.Recommendations {
			fmt.Fprintf(&sb, "- [%s] %s\n", r.Priority, r.Action)
		}
	}

	return sb.String()
}

func groupBySeverity(env *Envelope) map[models.Severity][]Finding {
	groups := map[models.Severity][]Finding{}
	for _, f := range env.Violations {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	for _, f := range env.Warnings {
		groups[f.Severity] = append(groups[f.Severity], f)
	}
	return groups
}

func formatFinding(sb *strings.Builder, f Finding, color string, opts TextOptions) {
	sb.WriteString(opts.paint(color, fmt.Sprintf("- %s [%s]: %s", f.Rule, f.Standard, f.Description)) + "\n")
	if len(f.OffendingValues) > 0 {
		fmt.Fprintf(sb, "    found: %s\n", strings.Join(f.OffendingValues, ", "))
	}
	fmt.Fprintf(sb, "    fix: %s\n", f.Fix)
	if f.Reference != "" {
		fmt.Fprintf(sb, "    ref: %s\n", f.Reference)
	}
	fmt.Fprintf(sb, "    cost impact: %s\n", f.CostImpact)
}

// FormatJSON raw json
func FormatJSON(env *Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}
