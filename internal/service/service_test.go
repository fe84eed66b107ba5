package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aerocheck/aerocheck/internal/catalog"
	"github.com/aerocheck/aerocheck/internal/engine"
	"github.com/aerocheck/aerocheck/internal/extract"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itarOnly = `
name: "ITAR marking"
version: "1.0.0"
rules:
  - id: ITAR-001
    standard: ITAR
    applies_to: [drawing]
    severity: HIGH
    cost_range: {min: 10000, max: 100000}
    description: "Missing ITAR export control statement"
    fix: "Add standard ITAR warning to title block"
    predicate:
      kind: presence
      field: raw_text
      keywords: ["Export of this data is restricted by ITAR", "22 CFR 120-130"]
`

const materialsAndSuppliers = `
name: "Materials and suppliers"
version: "1.0.0"
rules:
  - id: AS9100-MAT-002
    standard: AS9100
    applies_to: [bom]
    severity: MEDIUM
    cost_range: {min: 5000, max: 50000}
    description: "Restricted material in BOM"
    fix: "Replace with approved material"
    predicate:
      kind: membership
      field: material
      mode: deny
      values: ["beryllium", "cadmium"]
  - id: AS9100-SUP-001
    standard: AS9100
    applies_to: [bom]
    severity: HIGH
    cost_range: {min: 10000, max: 75000}
    description: "Non-certified supplier"
    fix: "Source from an approved supplier"
    predicate:
      kind: membership
      field: supplier
      mode: allow
      values: ["boeing", "parker"]
`

const faultyCEL = `
name: "Faulty"
version: "1.0.0"
rules:
  - id: CUSTOM-1
    standard: CUSTOM
    applies_to: [bom]
    severity: LOW
    cost_range: {min: 0, max: 0}
    description: "d"
    fix: "f"
    predicate:
      kind: cel
      expr: "input.fields.quantity[5] == 'x'"
`

func serviceFor(t *testing.T, doc string) *Service {
	t.Helper()
	c, err := catalog.Build([]byte(doc), "test.yaml")
	require.NoError(t, err)
	return New(c, catalog.SourceRef{Kind: catalog.SourceFile, Ref: "test.yaml"})
}

func presetService(t *testing.T) *Service {
	t.Helper()
	s, err := Open(context.Background(), "preset:aerospace")
	require.NoError(t, err)
	return s
}

func TestScenarioA_MissingITARStatement(t *testing.T) {
	s := serviceFor(t, itarOnly)
	facts := &models.DocumentFacts{
		DocumentType: models.DocumentDrawing,
		RawText:      "Rev C, no ITAR statement",
		Fields:       map[string][]string{models.FieldRevision: {"C"}},
	}

	got, err := s.Check(facts)
	require.NoError(t, err)
	require.Len(t, got.Violations, 1)
	assert.Equal(t, "ITAR-001", got.Violations[0].RuleID)
	assert.Equal(t, models.SeverityHigh, got.Violations[0].Severity)
	assert.Equal(t, 75, got.RiskScore)
	assert.Equal(t, models.StatusFail, got.Status)
}

func TestScenarioB_RestrictedMaterialAndSupplier(t *testing.T) {
	s := serviceFor(t, materialsAndSuppliers)
	facts := &models.DocumentFacts{
		DocumentType: models.DocumentBOM,
		Fields: map[string][]string{
			models.FieldMaterial: {"beryllium copper"},
			models.FieldSupplier: {"ACME UNCERTIFIED"},
		},
	}

	got, err := s.Check(facts)
	require.NoError(t, err)
	assert.Equal(t, []string{"AS9100-SUP-001", "AS9100-MAT-002"}, got.RuleIDs())
	assert.Equal(t, 65, got.RiskScore)
	assert.Equal(t, models.StatusFail, got.Status)
	assert.Equal(t, models.CostRange{Min: 15000, Max: 125000}, got.EstimatedRisk)
}

func TestScenarioC_CompliantDocuments(t *testing.T) {
	s := presetService(t)
	for _, name := range []string{"compliant-drawing.txt", "compliant-bom.csv"} {
		t.Run(name, func(t *testing.T) {
			env, err := s.ValidateFile(context.Background(), filepath.Join("testdata", "batch", name), extract.KindAuto)
			require.NoError(t, err)
			assert.Empty(t, env.Violations)
			assert.Empty(t, env.Warnings)
			assert.Equal(t, 100, env.RiskScore)
			assert.Equal(t, models.StatusPass, env.Status)
			assert.Equal(t, report.Exposure{Min: 0, Max: 0, Display: "$0"}, env.Summary.EstimatedRisk)
			assert.Equal(t, "Aerospace Baseline", env.Metadata.Catalog)
			assert.Equal(t, "preset:aerospace", env.Metadata.CatalogSource)
		})
	}
}

// Each line item is judged on its own row: the classified first row does
// not excuse the others, and a row without a part number is reported.
func TestPresetBOM_PerRowFindings(t *testing.T) {
	s := presetService(t)
	doc := "Part Number,Material,Supplier,ECCN,Country of Origin\n" +
		"MIL-1234,Steel 4130,Boeing,3A001,USA\n" +
		"MIL-9999,Titanium 6Al-4V,Boeing,,\n" +
		",Aluminum 7075,Boeing,,\n"
	facts, err := extract.ReadBOM(strings.NewReader(doc))
	require.NoError(t, err)

	got, err := s.Check(facts)
	require.NoError(t, err)
	byRule := map[string][]string{}
	for _, v := range got.All() {
		byRule[v.RuleID] = v.OffendingValues
	}
	assert.Equal(t, map[string][]string{
		"ITAR-BOM-001":    {"MIL-9999"},
		"AS9100-DATA-001": {"row 3"},
		"FAR-MET-001":     {"Titanium 6Al-4V"},
	}, byRule)
	assert.Equal(t, models.StatusFail, got.Status)
	assert.Equal(t, 40, got.RiskScore)

	facts.Fields[models.FieldCountry][1] = "Iran"
	got, err = s.Check(facts)
	require.NoError(t, err)
	assert.Contains(t, got.RuleIDs(), "ITAR-CTRY-001")
}

func TestValidate_Idempotent(t *testing.T) {
	s := presetService(t)
	facts, err := extract.Load(filepath.Join("testdata", "batch", "failing-bom.csv"), extract.KindAuto)
	require.NoError(t, err)

	first, err := s.Validate(context.Background(), "failing-bom.csv", facts)
	require.NoError(t, err)
	second, err := s.Validate(context.Background(), "failing-bom.csv", facts)
	require.NoError(t, err)

	// ids and timestamps differ per issue; the core report must not
	assert.NotEqual(t, first.Metadata.ReportID, second.Metadata.ReportID)
	assert.Equal(t, first.Metadata.Digest, second.Metadata.Digest)

	a, err := s.Check(facts)
	require.NoError(t, err)
	b, err := s.Check(facts)
	require.NoError(t, err)
	ca, err := report.Canonical(a)
	require.NoError(t, err)
	cb, err := report.Canonical(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestValidate_Errors(t *testing.T) {
	t.Run("malformed facts", func(t *testing.T) {
		s := presetService(t)
		_, err := s.Validate(context.Background(), "x", &models.DocumentFacts{DocumentType: "schematic"})
		var fe *models.FactsError
		assert.ErrorAs(t, err, &fe)
	})

	t.Run("predicate runtime failure", func(t *testing.T) {
		s := serviceFor(t, faultyCEL)
		_, err := s.Validate(context.Background(), "x", &models.DocumentFacts{
			DocumentType: models.DocumentBOM,
			Fields:       map[string][]string{models.FieldQuantity: {"1"}},
		})
		var ie *engine.InternalError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "CUSTOM-1", ie.RuleID)
	})
}

func TestReload(t *testing.T) {
	s := serviceFor(t, itarOnly)
	ctx := context.Background()

	err := s.Reload(ctx, "preset:does-not-exist")
	require.Error(t, err)
	c, _ := s.Catalog()
	assert.Equal(t, "ITAR marking", c.Name(), "failed reload must keep the current catalog")

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(materialsAndSuppliers), 0o644))
	require.NoError(t, s.Reload(ctx, path))

	c, ref := s.Catalog()
	assert.Equal(t, "Materials and suppliers", c.Name())
	assert.Equal(t, catalog.SourceFile, ref.Kind)
	assert.NotEmpty(t, ref.SHA256)
}

func TestReload_ConcurrentWithValidation(t *testing.T) {
	s := serviceFor(t, itarOnly)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(itarOnly), 0o644))

	facts := &models.DocumentFacts{DocumentType: models.DocumentDrawing, RawText: "no marking"}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				env, err := s.Validate(ctx, "d", facts)
				if assert.NoError(t, err) {
					assert.Equal(t, 75, env.RiskScore)
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, s.Reload(ctx, path))
	}
	wg.Wait()
}

func TestValidateBatch(t *testing.T) {
	s := presetService(t)
	paths, err := Expand([]string{filepath.Join("testdata", "batch")})
	require.NoError(t, err)
	require.Len(t, paths, 4, "hidden and unsupported files are skipped")

	outcomes, err := s.ValidateBatch(context.Background(), paths, BatchOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, outcomes, len(paths))

	byName := map[string]Outcome{}
	for i, o := range outcomes {
		assert.Equal(t, paths[i], o.Document, "outcomes keep input order")
		byName[filepath.Base(o.Document)] = o
	}

	var fe *models.FactsError
	assert.ErrorAs(t, byName["broken.json"].Err, &fe)
	assert.Nil(t, byName["broken.json"].Envelope)

	failing := byName["failing-bom.csv"]
	require.NoError(t, failing.Err)
	assert.Equal(t, models.StatusFail, failing.Envelope.Status)
	assert.Contains(t, failing.Envelope.RuleIDs(), "ITAR-BOM-001")
	assert.Contains(t, failing.Envelope.RuleIDs(), "AS9100-SUP-001")

	assert.Equal(t, models.StatusPass, byName["compliant-bom.csv"].Envelope.Status)
	assert.Equal(t, models.StatusPass, byName["compliant-drawing.txt"].Envelope.Status)
}

func TestValidateBatch_Cancelled(t *testing.T) {
	s := presetService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ValidateBatch(ctx, []string{filepath.Join("testdata", "batch", "compliant-bom.csv")}, BatchOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestValidate_UsesClock(t *testing.T) {
	s := serviceFor(t, itarOnly)
	fixed := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	env, err := s.Validate(context.Background(), "d", &models.DocumentFacts{DocumentType: models.DocumentDrawing})
	require.NoError(t, err)
	assert.Equal(t, fixed, env.Metadata.GeneratedAt)
}

func TestExpand_MissingPath(t *testing.T) {
	_, err := Expand([]string{filepath.Join("testdata", "nope")})
	assert.Error(t, err)
}
