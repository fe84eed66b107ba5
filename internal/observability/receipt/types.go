// Package receipt writes an audit receipt for each aerocheck command.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt is one command's evidence record
type Receipt struct {
	SchemaVersion string             `json:"schema_version"`
	OpID          string             `json:"op_id"`
	TsStart       string             `json:"ts_start"`
	TsEnd         string             `json:"ts_end"`
	Command       string             `json:"command"`
	Args          []string           `json:"args"`
	ArgsRedacted  bool               `json:"args_redacted,omitempty"`
	Result        Result             `json:"result"`
	Catalog       *CatalogRef        `json:"catalog,omitempty"`
	Document      *DocumentRef       `json:"document,omitempty"`
	Validation    *ValidationSummary `json:"validation,omitempty"`
	Batch         *BatchSummary      `json:"batch,omitempty"`
	History       string             `json:"history,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// CatalogRef identifies the rule catalog a command ran against
type CatalogRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Source  string `json:"source"`
	SHA256  string `json:"sha256,omitempty"`
}

// DocumentRef identifies the validated input
type DocumentRef struct {
	Path   string `json:"path"`
	Type   string `json:"type,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
}

// ValidationSummary of one issued report
type ValidationSummary struct {
	ReportID   string   `json:"report_id"`
	Status     string   `json:"status"` // PASS|FAIL
	RiskScore  int      `json:"risk_score"`
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Digest     string   `json:"digest"`
}

// BatchSummary counts outcomes across a batch run
type BatchSummary struct {
	Documents int `json:"documents"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
}
