package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aerocheck/aerocheck/internal/observability"
)

func readReceipt(t *testing.T, path string) Receipt {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("invalid JSON: %v\nContent: %s", err, data)
	}
	return r
}

func TestWriterOverwrite_KeepsLastReceipt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	w, err := NewWriter(path, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	for _, id := range []string{"op-1", "op-2"} {
		if err := w.Write(Receipt{SchemaVersion: ReceiptSchemaVersion, OpID: id, Command: "aerocheck validate", Result: Result{Status: "success"}}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r := readReceipt(t, path)
	if r.OpID != "op-2" {
		t.Errorf("op_id = %q, want op-2", r.OpID)
	}
	if r.SchemaVersion != "1.0" {
		t.Errorf("schema_version = %q, want 1.0", r.SchemaVersion)
	}
}

func TestWriterAppend_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	w, err := NewWriter(path, "append")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	_ = w.Write(Receipt{OpID: "op-1", Command: "aerocheck validate", Result: Result{Status: "success"}})
	_ = w.Write(Receipt{OpID: "op-2", Command: "aerocheck batch", Result: Result{Status: "fail", Error: "catalog rejected"}})
	_ = w.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, want := range []string{"op-1", "op-2"} {
		var r Receipt
		if err := json.Unmarshal([]byte(lines[i]), &r); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i+1, err)
		}
		if r.OpID != want {
			t.Errorf("line %d op_id = %q, want %q", i+1, r.OpID, want)
		}
	}
}

func TestNewWriter_RejectsUnknownMode(t *testing.T) {
	if _, err := NewWriter(filepath.Join(t.TempDir(), "r.json"), "rotate"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSessionFinish_RecordsValidation(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "bom.csv")
	if err := os.WriteFile(docPath, []byte("Part Number,Material\nMS20470,2024-T4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wantSHA, err := computeSHA256(docPath)
	if err != nil {
		t.Fatal(err)
	}

	receiptPath := filepath.Join(dir, "receipt.json")
	w, err := NewWriter(receiptPath, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	ctx := WithWriter(observability.WithOpID(context.Background()), w)

	sess := Start(ctx, "aerocheck validate", []string{docPath, "--history", "postgres://qa:hunter2@db/aero"})
	err = sess.Finish(nil,
		WithCatalog(CatalogRef{Name: "Aerospace Baseline", Version: "1.2.0", Source: "preset:aerospace"}),
		WithDocument(docPath, "bom"),
		WithValidation(ValidationSummary{ReportID: "r-1", Status: "FAIL", RiskScore: 50, Violations: []string{"ITAR-BOM-001"}, Digest: "sha256:00"}),
		WithHistory("postgres://qa:hunter2@db/aero"),
	)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	_ = w.Close()

	r := readReceipt(t, receiptPath)
	if r.OpID != observability.OpID(ctx) {
		t.Errorf("op_id = %q, want %q", r.OpID, observability.OpID(ctx))
	}
	if r.Document == nil || r.Document.SHA256 != wantSHA {
		t.Errorf("document = %+v, want sha256 %s", r.Document, wantSHA)
	}
	if r.Catalog == nil || r.Catalog.Source != "preset:aerospace" {
		t.Errorf("catalog = %+v", r.Catalog)
	}
	if r.Validation == nil || r.Validation.RiskScore != 50 || r.Validation.Violations[0] != "ITAR-BOM-001" {
		t.Errorf("validation = %+v", r.Validation)
	}
	if strings.Contains(r.History, "hunter2") || strings.Contains(strings.Join(r.Args, " "), "hunter2") {
		t.Errorf("password leaked into receipt: history=%q args=%v", r.History, r.Args)
	}
	if !r.ArgsRedacted {
		t.Error("args_redacted should be set")
	}
}

func TestSessionFinish_TruncatesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.json")
	w, _ := NewWriter(path, "overwrite")
	ctx := WithWriter(observability.WithOpID(context.Background()), w)

	sess := Start(ctx, "aerocheck batch", nil)
	if err := sess.Finish(errors.New(strings.Repeat("x", 5000))); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	_ = w.Close()

	r := readReceipt(t, path)
	if r.Result.Status != "fail" {
		t.Errorf("status = %q, want fail", r.Result.Status)
	}
	if n := len(r.Result.Error); n > MaxErrorLength || n < MaxErrorLength-10 {
		t.Errorf("error length = %d, want about %d", n, MaxErrorLength)
	}
}

func TestSessionFinish_NoWriter(t *testing.T) {
	sess := Start(context.Background(), "aerocheck validate", nil)
	if err := sess.Finish(nil, WithBatch(BatchSummary{Documents: 1})); err != nil {
		t.Errorf("Finish without writer should be a no-op, got %v", err)
	}
}

func TestContextWithWriter(t *testing.T) {
	ctx := context.Background()
	if err := Start(ctx, "aerocheck validate", nil).Finish(nil); err != nil {
		t.Errorf("Finish without a writer should be a no-op: %v", err)
	}
	writer, err := NewWriter(filepath.Join(t.TempDir(), "a", "b", "receipt.json"), "overwrite")
	if err != nil {
		t.Fatalf("NewWriter should create nested directories: %v", err)
	}
	defer writer.Close()
	if writerFrom(WithWriter(ctx, writer)) != writer {
		t.Error("sessions should see the writer stored in context")
	}
}
