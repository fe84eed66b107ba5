package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aerocheck/aerocheck/internal/engine"
	"github.com/aerocheck/aerocheck/internal/models"
)

// ANSI color codes
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func paintIf(color bool, c, s string) string {
	if !color {
		return s
	}
	return c + s + colorReset
}

// Process exit codes
const (
	ExitPass  = 0
	ExitFail  = 1
	ExitUsage = 2
)

const (
	formatText = "text"
	formatJSON = "json"
)

// ExitError ends a command with a specific exit code. Reported means the
// error was already written to the user.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// errFailed signals a FAIL outcome that has already been printed
var errFailed = &ExitError{Code: ExitFail, Reported: true}

func usageErr(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// Error kinds in structured failures
const (
	KindCatalog  = "catalog"
	KindFacts    = "facts"
	KindInternal = "internal"
	KindIO       = "io"
)

// errorKind classifies err for the structured failure
func errorKind(err error) string {
	var (
		ce *models.CatalogError
		fe *models.FactsError
		ie *engine.InternalError
	)
	switch {
	case errors.As(err, &ce):
		return KindCatalog
	case errors.As(err, &fe):
		return KindFacts
	case errors.As(err, &ie):
		return KindInternal
	default:
		return KindIO
	}
}

// FailureOutput is the JSON shape of a run that could not produce a report
type FailureOutput struct {
	Error FailureDetail `json:"error"`
}

type FailureDetail struct {
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// fail reports err in the selected format and returns an exit-2 error
func fail(w io.Writer, format string, err error) error {
	if format != formatJSON {
		return usageErr(err)
	}
	detail := FailureDetail{Kind: errorKind(err), Message: err.Error()}
	var ce *models.CatalogError
	if errors.As(err, &ce) {
		detail.Problems = ce.Problems
	}
	_ = writeJSON(w, FailureOutput{Error: detail})
	return &ExitError{Code: ExitUsage, Err: err, Reported: true}
}

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return usageErr(fmt.Errorf("invalid format: %s (use text or json)", format))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// catalogSource resolves --catalog and --preset into one source string
func catalogSource(catalogFlag, presetFlag string) (string, error) {
	switch {
	case catalogFlag != "" && presetFlag != "":
		return "", usageErr(errors.New("--catalog and --preset are mutually exclusive"))
	case presetFlag != "":
		return "preset:" + presetFlag, nil
	default:
		return catalogFlag, nil
	}
}
