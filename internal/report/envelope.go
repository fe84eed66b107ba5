// Package report builds the wire form of a compliance report and renders it.
package report

import (
	"time"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/version"
	"github.com/google/uuid"
)

// SchemaVersion of the envelope layout
const SchemaVersion = "1"

// Envelope is the issued report: the deterministic core plus metadata
type Envelope struct {
	Status          models.Status    `json:"status"`
	RiskScore       int              `json:"risk_score"`
	Violations      []Finding        `json:"violations"`
	Warnings        []Finding        `json:"warnings"`
	Summary         Summary          `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        Metadata         `json:"metadata"`
}

// Finding is a violation or warning as shown to readers
type Finding struct {
	Rule            string           `json:"rule"`
	Standard        models.Standard  `json:"standard"`
	Description     string           `json:"description"`
	Severity        models.Severity  `json:"severity"`
	Fix             string           `json:"fix"`
	CostImpact      string           `json:"cost_impact"`
	CostRange       models.CostRange `json:"cost_range"`
	Reference       string           `json:"reference,omitempty"`
	OffendingValues []string         `json:"offending_values"`
}

type Summary struct {
	TotalViolations int      `json:"total_violations"`
	TotalWarnings   int      `json:"total_warnings"`
	High            int      `json:"high"`
	Medium          int      `json:"medium"`
	Low             int      `json:"low"`
	EstimatedRisk   Exposure `json:"estimated_risk"`
}

// Exposure is a cost range with its display string
type Exposure struct {
	Min     int64  `json:"min"`
	Max     int64  `json:"max"`
	Display string `json:"display"`
}

type Metadata struct {
	SchemaVersion   string    `json:"schema_version"`
	ReportID        string    `json:"report_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	Document        string    `json:"document,omitempty"`
	DocumentType    string    `json:"document_type"`
	Catalog         string    `json:"catalog"`
	CatalogVersion  string    `json:"catalog_version"`
	CatalogSource   string    `json:"catalog_source,omitempty"`
	CatalogSHA256   string    `json:"catalog_sha256,omitempty"`
	AnalyzerVersion string    `json:"analyzer_version"`
	EngineVersion   string    `json:"engine_version"`
	Digest          string    `json:"digest"`
}

// Meta describes the run that produced a report
type Meta struct {
	ReportID       string
	GeneratedAt    time.Time
	Document       string
	DocumentType   models.DocumentType
	Catalog        string
	CatalogVersion string
	CatalogSource  string
	CatalogSHA256  string
}

// Build wraps report in an envelope. A missing report id or time is generated.
func Build(report models.ComplianceReport, meta Meta) (*Envelope, error) {
	digest, err := Digest(report)
	if err != nil {
		return nil, err
	}

	if meta.ReportID == "" {
		meta.ReportID = uuid.NewString()
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}

	env := &Envelope{
		Status:          report.Status,
		RiskScore:       report.RiskScore,
		Violations:      findings(report.Violations),
		Warnings:        findings(report.Warnings),
		Recommendations: Recommendations(report),
		Summary: Summary{
			TotalViolations: len(report.Violations),
			TotalWarnings:   len(report.Warnings),
			High:            report.Tally.High,
			Medium:          report.Tally.Medium,
			Low:             report.Tally.Low,
			EstimatedRisk: Exposure{
				Min:     report.EstimatedRisk.Min,
				Max:     report.EstimatedRisk.Max,
				Display: FormatRange(report.EstimatedRisk),
			},
		},
		Metadata: Metadata{
			SchemaVersion:   SchemaVersion,
			ReportID:        meta.ReportID,
			GeneratedAt:     meta.GeneratedAt.UTC(),
			Document:        meta.Document,
			DocumentType:    string(meta.DocumentType),
			Catalog:         meta.Catalog,
			CatalogVersion:  meta.CatalogVersion,
			CatalogSource:   meta.CatalogSource,
			CatalogSHA256:   meta.CatalogSHA256,
			AnalyzerVersion: version.BuildVersion(),
			EngineVersion:   version.EngineVersion,
			Digest:          digest,
		},
	}
	return env, nil
}

func findings(violations []models.Violation) []Finding {
	out := make([]Finding, 0, len(violations))
	for _, v := range violations {
		offending := v.OffendingValues
		if offending == nil {
			offending = []string{}
		}
		out = append(out, Finding{
			Rule:            v.RuleID,
			Standard:        v.Standard,
			Description:     v.Description,
			Severity:        v.Severity,
			Fix:             v.Fix,
			CostImpact:      FormatRange(v.CostRange),
			CostRange:       v.CostRange,
			Reference:       v.Reference,
			OffendingValues: offending,
		})
	}
	return out
}

// Blocking reports whether the envelope fails the document
func (e *Envelope) Blocking() bool {
	return e.Status == models.StatusFail
}

// RuleIDs of all findings in report order
func (e *Envelope) RuleIDs() []string {
	ids := make([]string, 0, len(e.Violations)+len(e.Warnings))
	for _, f := range e.Violations {
		ids = append(ids, f.Rule)
	}
	for _, f := range e.Warnings {
		ids = append(ids, f.Rule)
	}
	return ids
}
