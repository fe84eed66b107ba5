package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aerocheck/aerocheck/internal/differ"
	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/observability/receipt"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func fixture(name string) string {
	return filepath.Join("testdata", filepath.FromSlash(name))
}

func TestValidateExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"compliant drawing", []string{"validate", fixture("docs/compliant-drawing.txt")}, ExitPass, "aerocheck: PASS (risk score 100/100)"},
		{"compliant bom", []string{"validate", fixture("docs/compliant-bom.csv")}, ExitPass, "✓ No compliance issues found"},
		{"failing bom", []string{"validate", fixture("docs/failing-bom.csv")}, ExitFail, "aerocheck: FAIL"},
		{"failing bom with itar only", []string{"validate", fixture("docs/failing-bom.csv"), "--preset", "itar-only"}, ExitFail, "ITAR-BOM-001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := run(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stdout, tt.out)
		})
	}
}

func TestValidateJSON(t *testing.T) {
	code, stdout, _ := run(t, "validate", fixture("docs/failing-bom.csv"), "--format", "json")
	require.Equal(t, ExitFail, code)

	var env report.Envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, models.StatusFail, env.Status)
	assert.Contains(t, env.RuleIDs(), "ITAR-BOM-001")
	assert.Contains(t, env.RuleIDs(), "AS9100-SUP-001")
	assert.Equal(t, "bom", env.Metadata.DocumentType)
	assert.NotEmpty(t, env.Metadata.ReportID)
	assert.NotEmpty(t, env.Metadata.Digest)
}

func TestValidateFailures(t *testing.T) {
	t.Run("malformed facts", func(t *testing.T) {
		code, stdout, _ := run(t, "validate", fixture("docs/broken.json"), "--format", "json")
		require.Equal(t, ExitUsage, code)

		var out FailureOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, KindFacts, out.Error.Kind)
	})

	t.Run("invalid catalog lists every problem", func(t *testing.T) {
		code, stdout, _ := run(t, "validate", fixture("docs/compliant-bom.csv"), "--catalog", fixture("catalogs/bad-catalog.yaml"), "--format", "json")
		require.Equal(t, ExitUsage, code)

		var out FailureOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, KindCatalog, out.Error.Kind)
		assert.GreaterOrEqual(t, len(out.Error.Problems), 2)
	})

	t.Run("missing document", func(t *testing.T) {
		code, _, stderr := run(t, "validate", fixture("docs/nope.csv"))
		assert.Equal(t, ExitUsage, code)
		assert.Contains(t, stderr, "Error:")
	})

	t.Run("catalog and preset together", func(t *testing.T) {
		code, _, stderr := run(t, "validate", fixture("docs/compliant-bom.csv"), "--catalog", fixture("catalogs/bad-catalog.yaml"), "--preset", "aerospace")
		assert.Equal(t, ExitUsage, code)
		assert.Contains(t, stderr, "mutually exclusive")
	})

	t.Run("bad format", func(t *testing.T) {
		code, _, stderr := run(t, "validate", fixture("docs/compliant-bom.csv"), "--format", "xml")
		assert.Equal(t, ExitUsage, code)
		assert.Contains(t, stderr, "invalid format")
	})

	t.Run("unknown flag", func(t *testing.T) {
		code, _, _ := run(t, "validate", "--bogus")
		assert.Equal(t, ExitUsage, code)
	})
}

func TestValidateWritesReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	code, _, _ := run(t, "validate", fixture("docs/compliant-drawing.txt"), "--out", out)
	require.Equal(t, ExitPass, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	env, err := differ.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPass, env.Status)
}

func TestValidateReceipt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	code, _, _ := run(t, "--receipt", path, "validate", fixture("docs/failing-bom.csv"))
	require.Equal(t, ExitFail, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var r receipt.Receipt
	require.NoError(t, json.Unmarshal(data, &r))

	assert.Equal(t, "aerocheck validate", r.Command)
	assert.Equal(t, "success", r.Result.Status)
	require.NotNil(t, r.Catalog)
	assert.Equal(t, "preset:aerospace", r.Catalog.Source)
	require.NotNil(t, r.Document)
	assert.Equal(t, "bom", r.Document.Type)
	assert.NotEmpty(t, r.Document.SHA256)
	require.NotNil(t, r.Validation)
	assert.Equal(t, "FAIL", r.Validation.Status)
	assert.Contains(t, r.Validation.Violations, "ITAR-BOM-001")
}

func TestBatch(t *testing.T) {
	t.Run("pass and fail", func(t *testing.T) {
		code, stdout, _ := run(t, "batch", fixture("docs/compliant-drawing.txt"), fixture("docs/failing-bom.csv"), "--format", "json")
		require.Equal(t, ExitFail, code)

		var out BatchOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, BatchSummary{Documents: 2, Passed: 1, Failed: 1}, out.Summary)
		require.Len(t, out.Results, 2)
	})

	t.Run("directory with a broken document", func(t *testing.T) {
		code, stdout, _ := run(t, "batch", fixture("docs"), "-j", "2")
		require.Equal(t, ExitUsage, code)
		assert.Contains(t, stdout, "ERROR")
		assert.Contains(t, stdout, "documents: 2 passed, 1 failed, 1 errored")
	})

	t.Run("nothing to validate", func(t *testing.T) {
		code, _, stderr := run(t, "batch", t.TempDir())
		assert.Equal(t, ExitUsage, code)
		assert.Contains(t, stderr, "no supported documents")
	})

	t.Run("bad concurrency", func(t *testing.T) {
		code, _, _ := run(t, "batch", fixture("docs"), "-j", "0")
		assert.Equal(t, ExitUsage, code)
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "list")
		require.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "ITAR-BOM-001")
		assert.Contains(t, stdout, "CUSTOM-QTY-001")
	})

	t.Run("list markdown", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "list", "--preset", "itar-only", "--format", "markdown")
		require.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "| ITAR-001 | ITAR |")
		assert.NotContains(t, stdout, "AS9100")
	})

	t.Run("list json", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "list", "--preset", "itar-only", "--format", "json")
		require.Equal(t, ExitPass, code)

		var out CatalogListOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, "preset:itar-only", out.Source)
		assert.Len(t, out.Rules, 2)
	})

	t.Run("show", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "show", "ITAR-BOM-001", "--format", "json")
		require.Equal(t, ExitPass, code)

		var spec models.RuleSpec
		require.NoError(t, json.Unmarshal([]byte(stdout), &spec))
		assert.Equal(t, "ITAR-BOM-001", spec.ID)
		assert.Equal(t, models.StandardITAR, spec.Standard)
	})

	t.Run("show yaml", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "show", "ITAR-001")
		require.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "id: ITAR-001")
	})

	t.Run("show unknown rule", func(t *testing.T) {
		code, _, stderr := run(t, "catalog", "show", "NOPE-001")
		assert.Equal(t, ExitUsage, code)
		assert.Contains(t, stderr, "not found")
	})

	t.Run("lint valid", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "lint", "preset:aerospace")
		require.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "✓ preset:aerospace")
	})

	t.Run("lint invalid", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "lint", fixture("catalogs/bad-catalog.yaml"), "--format", "json")
		require.Equal(t, ExitFail, code)

		var out LintOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.False(t, out.Valid)
		assert.NotEmpty(t, out.Problems)
	})

	t.Run("lint unreadable", func(t *testing.T) {
		code, _, _ := run(t, "catalog", "lint", fixture("catalogs/missing.yaml"))
		assert.Equal(t, ExitUsage, code)
	})

	t.Run("presets", func(t *testing.T) {
		code, stdout, _ := run(t, "catalog", "presets")
		require.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "* aerospace")
		assert.Contains(t, stdout, "itar-only")
	})
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "before.json")
	after := filepath.Join(dir, "after.json")

	code, _, _ := run(t, "validate", fixture("docs/compliant-bom.csv"), "--out", before)
	require.Equal(t, ExitPass, code)
	code, _, _ = run(t, "validate", fixture("docs/failing-bom.csv"), "--out", after)
	require.Equal(t, ExitFail, code)

	t.Run("no changes", func(t *testing.T) {
		code, stdout, _ := run(t, "diff", before, before)
		assert.Equal(t, ExitPass, code)
		assert.Contains(t, stdout, "No changes detected")
	})

	t.Run("regression", func(t *testing.T) {
		code, stdout, _ := run(t, "diff", before, after)
		assert.Equal(t, ExitFail, code)
		assert.Contains(t, stdout, "CHANGES DETECTED")
		assert.Contains(t, stdout, "Status changed: PASS → FAIL")
		assert.Contains(t, stdout, "worst: critical")
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, _ := run(t, "diff", before, after, "--format", "json")
		assert.Equal(t, ExitFail, code)

		var result differ.Result
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		assert.True(t, result.HasChanges)
		assert.Equal(t, models.StatusPass, result.OldStatus)
		assert.Equal(t, models.StatusFail, result.NewStatus)
		assert.Negative(t, result.ScoreDelta)
	})

	t.Run("fail-on none", func(t *testing.T) {
		code, _, _ := run(t, "diff", before, after, "--fail-on", "none")
		assert.Equal(t, ExitPass, code)
	})

	t.Run("not a report", func(t *testing.T) {
		code, _, _ := run(t, "diff", before, fixture("docs/compliant-bom.csv"))
		assert.Equal(t, ExitUsage, code)
	})
}

func TestHistory(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")

	code, _, _ := run(t, "batch", fixture("docs/compliant-drawing.txt"), fixture("docs/failing-bom.csv"), "--history", dsn)
	require.Equal(t, ExitFail, code)

	code, stdout, _ := run(t, "history", "list", "--history", dsn, "--format", "json")
	require.Equal(t, ExitPass, code)
	var records []store.Record
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)

	code, stdout, _ = run(t, "history", "show", records[0].ReportID, "--history", dsn, "--format", "json")
	require.Equal(t, ExitPass, code)
	var env report.Envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &env))
	assert.Equal(t, records[0].ReportID, env.Metadata.ReportID)

	code, stdout, _ = run(t, "history", "list", "--history", dsn, "-n", "1")
	require.Equal(t, ExitPass, code)
	assert.Contains(t, stdout, "REPORT ID")

	code, _, stderr := run(t, "history", "show", "missing-id", "--history", dsn)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "not found")
}

func TestHistoryFailureKeepsReport(t *testing.T) {
	code, stdout, stderr := run(t, "validate", fixture("docs/failing-bom.csv"), "--format", "json", "--history", "bogus://x")
	assert.Equal(t, ExitUsage, code)
	var env report.Envelope
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), "report still printed")
	assert.Equal(t, models.StatusFail, env.Status)
	assert.Contains(t, stderr, "issued but not recorded")
	assert.Contains(t, stderr, "unsupported history dsn")

	out := filepath.Join(t.TempDir(), "report.json")
	code, stdout, _ = run(t, "validate", fixture("docs/compliant-drawing.txt"), "--out", out, "--history", "bogus://x")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stdout, "aerocheck: PASS")
	assert.FileExists(t, out)

	code, stdout, stderr = run(t, "batch", fixture("docs/compliant-bom.csv"), "--history", "bogus://x")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stdout, "compliant-bom.csv")
	assert.Contains(t, stderr, "1 report(s) issued but not recorded")
}

func TestHistoryRequiresStore(t *testing.T) {
	t.Setenv(historyEnv, "")
	code, _, stderr := run(t, "history", "list")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "--history")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := run(t, "--version")
	assert.Equal(t, ExitPass, code)
	assert.Contains(t, stdout, "engine")
}

func TestSignAndVerify(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "qa.key")
	pub := filepath.Join(dir, "qa.pub")
	reportPath := filepath.Join(dir, "report.json")

	code, stdout, _ := run(t, "keygen", "--private", priv, "--public", pub)
	require.Equal(t, ExitPass, code)
	assert.Contains(t, stdout, "Key ID:")

	code, _, _ = run(t, "keygen", "--private", priv, "--public", pub)
	assert.Equal(t, ExitUsage, code, "existing keys are never overwritten")

	code, _, stderr := run(t, "validate", fixture("docs/compliant-drawing.txt"), "--sign", priv)
	require.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "--sign requires --out")

	code, _, _ = run(t, "validate", fixture("docs/failing-bom.csv"), "--out", reportPath, "--sign", priv)
	require.Equal(t, ExitFail, code)
	require.FileExists(t, reportPath+".sig")

	code, stdout, _ = run(t, "verify", reportPath, "--key", pub, "--format", "json")
	require.Equal(t, ExitPass, code)
	var out VerifyOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.True(t, out.Valid)
	assert.NotEmpty(t, out.ReportID)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte(`"status": "FAIL"`), []byte(`"status": "PASS"`), 1)
	require.NotEqual(t, data, tampered)
	require.NoError(t, os.WriteFile(reportPath, tampered, 0644))

	code, stdout, _ = run(t, "verify", reportPath, "--key", pub)
	assert.Equal(t, ExitFail, code)
	assert.Contains(t, stdout, "TAMPER DETECTED")
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "qa.key")
	pub := filepath.Join(dir, "qa.pub")
	reportPath := filepath.Join(dir, "report.json")
	bundlePath := filepath.Join(dir, "evidence.zip")

	code, _, _ := run(t, "keygen", "--private", priv, "--public", pub)
	require.Equal(t, ExitPass, code)

	code, _, _ = run(t, "validate", fixture("docs/compliant-drawing.txt"), "--out", reportPath)
	require.Equal(t, ExitPass, code)

	code, _, stderr := run(t, "bundle", reportPath, "-o", bundlePath)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "signature not found")

	code, _, _ = run(t, "validate", fixture("docs/compliant-drawing.txt"), "--out", reportPath, "--sign", priv)
	require.Equal(t, ExitPass, code)

	code, stdout, _ := run(t, "bundle", reportPath, "--key", pub, "-o", bundlePath)
	require.Equal(t, ExitPass, code)
	assert.Contains(t, stdout, "catalog.yaml")
	assert.Contains(t, stdout, "report.json.sig")

	first, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	code, _, _ = run(t, "bundle", reportPath, "--key", pub, "-o", bundlePath)
	require.Equal(t, ExitPass, code)
	second, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, first, second, "bundles are deterministic")
}
