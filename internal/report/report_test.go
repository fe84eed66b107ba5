package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() models.ComplianceReport {
	return models.ComplianceReport{
		Status:    models.StatusFail,
		RiskScore: 62,
		Violations: []models.Violation{
			{
				RuleID: "AS9100-SUP-001", Standard: models.StandardAS9100, Severity: models.SeverityHigh,
				Description: "Non-certified supplier", Fix: "Verify certification",
				CostRange: models.CostRange{Min: 10000, Max: 75000}, Reference: "AS9100D 8.4.1",
				OffendingValues: []string{"ACME UNCERTIFIED"},
			},
			{
				RuleID: "AS9100-MAT-002", Standard: models.StandardAS9100, Severity: models.SeverityMedium,
				Description: "Restricted material in BOM", Fix: "Replace with approved material",
				CostRange: models.CostRange{Min: 5000, Max: 50000},
				OffendingValues: []string{"beryllium copper"},
			},
		},
		Warnings: []models.Violation{
			{
				RuleID: "AS9100-PN-001", Standard: models.StandardAS9100, Severity: models.SeverityLow,
				Description: "Part number format", Fix: "Use a standard format",
				CostRange: models.CostRange{Min: 500, Max: 5000},
			},
		},
		EstimatedRisk: models.CostRange{Min: 15500, Max: 130000},
		Tally:         models.SeverityTally{High: 1, Medium: 1, Low: 1},
	}
}

func TestBuild_WireShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	env, err := Build(sampleReport(), Meta{
		ReportID:       "rep-1",
		GeneratedAt:    at,
		Document:       "bom.csv",
		DocumentType:   models.DocumentBOM,
		Catalog:        "Aerospace Baseline",
		CatalogVersion: "1.2.0",
	})
	require.NoError(t, err)

	data, err := FormatJSON(env)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, "FAIL", wire["status"])
	assert.EqualValues(t, 62, wire["risk_score"])

	violations := wire["violations"].([]any)
	require.Len(t, violations, 2)
	first := violations[0].(map[string]any)
	assert.Equal(t, "AS9100-SUP-001", first["rule"])
	assert.Equal(t, "$10,000–$75,000", first["cost_impact"])
	assert.Equal(t, []any{"ACME UNCERTIFIED"}, first["offending_values"])

	warnings := wire["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, []any{}, warnings[0].(map[string]any)["offending_values"])

	summary := wire["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_violations"])
	assert.EqualValues(t, 1, summary["total_warnings"])
	risk := summary["estimated_risk"].(map[string]any)
	assert.Equal(t, "$15,500–$130,000", risk["display"])

	md := wire["metadata"].(map[string]any)
	assert.Equal(t, "rep-1", md["report_id"])
	assert.Equal(t, "2026-03-01T11:00:00Z", md["generated_at"])
	assert.Equal(t, "bom", md["document_type"])
	assert.True(t, strings.HasPrefix(md["digest"].(string), "sha256:"))

	assert.Equal(t, []string{"AS9100-SUP-001", "AS9100-MAT-002", "AS9100-PN-001"}, env.RuleIDs())
	assert.True(t, env.Blocking())
}

func TestBuild_GeneratesIDs(t *testing.T) {
	a, err := Build(sampleReport(), Meta{})
	require.NoError(t, err)
	b, err := Build(sampleReport(), Meta{})
	require.NoError(t, err)

	assert.NotEmpty(t, a.Metadata.ReportID)
	assert.NotEqual(t, a.Metadata.ReportID, b.Metadata.ReportID)
	assert.False(t, a.Metadata.GeneratedAt.IsZero())
	// the digest covers only the core report
	assert.Equal(t, a.Metadata.Digest, b.Metadata.Digest)
}

func TestDigest_StableAndSensitive(t *testing.T) {
	r := sampleReport()
	d1, err := Digest(r)
	require.NoError(t, err)
	d2, err := Digest(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	r.RiskScore = 61
	d3, err := Digest(r)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	canon, err := Canonical(sampleReport())
	require.NoError(t, err)
	// canonical form sorts keys and has no insignificant whitespace
	assert.True(t, strings.HasPrefix(string(canon), `{"estimated_risk":{"max":130000,"min":15500},`))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0", FormatMoney(0))
	assert.Equal(t, "$999", FormatMoney(999))
	assert.Equal(t, "$1,000,000", FormatMoney(1000000))
	assert.Equal(t, "$10,000–$100,000", FormatRange(models.CostRange{Min: 10000, Max: 100000}))
	assert.Equal(t, "$5,500", FormatRange(models.CostRange{Min: 5500, Max: 5500}))
}

func TestRecommendations(t *testing.T) {
	r := sampleReport()
	r.Violations = append(r.Violations, models.Violation{
		RuleID: "ITAR-001", Standard: models.StandardITAR, Severity: models.SeverityHigh,
	})
	r.Warnings = append(r.Warnings, models.Violation{
		RuleID: "FAR-X", Standard: models.StandardFAR, Severity: models.SeverityLow,
	})

	recs := Recommendations(r)
	require.Len(t, recs, 3)

	assert.Equal(t, models.StandardAS9100, recs[0].Standard, "high, three findings")
	assert.Equal(t, "high", recs[0].Priority)
	assert.Equal(t, 3, recs[0].Count)
	assert.Equal(t, []string{"AS9100-MAT-002", "AS9100-PN-001", "AS9100-SUP-001"}, recs[0].Rules)

	assert.Equal(t, models.StandardITAR, recs[1].Standard)
	assert.Equal(t, "high", recs[1].Priority)

	assert.Equal(t, models.StandardFAR, recs[2].Standard)
	assert.Equal(t, "low", recs[2].Priority)
}

func TestRecommendations_Compliant(t *testing.T) {
	recs := Recommendations(models.ComplianceReport{Status: models.StatusPass, RiskScore: 100})
	require.Len(t, recs, 1)
	assert.Equal(t, compliantAction, recs[0].Action)
}

func TestFormatText(t *testing.T) {
	env, err := Build(sampleReport(), Meta{Document: "bom.csv", DocumentType: models.DocumentBOM, Catalog: "c", CatalogVersion: "1.0.0"})
	require.NoError(t, err)

	plain := FormatText(env, TextOptions{})
	assert.Contains(t, plain, "aerocheck: FAIL (risk score 62/100)")
	assert.Contains(t, plain, "Document: bom.csv (bom)")
	assert.Contains(t, plain, "HIGH (1)")
	assert.Contains(t, plain, "MEDIUM (1)")
	assert.Contains(t, plain, "LOW (1)")
	assert.Contains(t, plain, "found: ACME UNCERTIFIED")
	assert.Contains(t, plain, "ref: AS9100D 8.4.1")
	assert.NotContains(t, plain, "\033[")

	assert.Less(t, strings.Index(plain, "HIGH (1)"), strings.Index(plain, "MEDIUM (1)"))

	colored := FormatText(env, TextOptions{Color: true})
	assert.Contains(t, colored, colorRed)

	clean, err := Build(models.ComplianceReport{Status: models.StatusPass, RiskScore: 100}, Meta{})
	require.NoError(t, err)
	assert.Contains(t, FormatText(clean, TextOptions{}), "No compliance issues found")
}
