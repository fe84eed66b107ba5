package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
)

// MaxInputSize caps every extractor's input
const MaxInputSize = 16 << 20

// readInput reads all of r, refusing inputs over MaxInputSize
func readInput(r io.Reader, what string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	if len(data) > MaxInputSize {
		return nil, &models.FactsError{Reason: fmt.Sprintf("%s exceeds %d bytes", what, MaxInputSize)}
	}
	return data, nil
}

// Kind selects the extractor
type Kind string

const (
	KindAuto    Kind = ""
	KindFacts   Kind = "facts"
	KindBOM     Kind = "bom"
	KindDrawing Kind = "drawing"
)

// ParseKind validates a --type value
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAuto, KindFacts, KindBOM, KindDrawing:
		return k, nil
	default:
		return "", fmt.Errorf("unknown input type %q (valid: facts, bom, drawing)", s)
	}
}

// DetectKind picks an extractor from the file extension
func DetectKind(path string) (Kind, Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return KindFacts, FormatJSON, nil
	case ".yaml", ".yml":
		return KindFacts, FormatYAML, nil
	case ".csv":
		return KindBOM, "", nil
	case ".txt", ".text":
		return KindDrawing, "", nil
	default:
		return "", "", fmt.Errorf("cannot infer input type from %q; pass --type", filepath.Base(path))
	}
}

// Supported reports whether DetectKind recognizes path
func Supported(path string) bool {
	_, _, err := DetectKind(path)
	return err == nil
}

// Load reads path with the extractor for kind, or by extension when kind is KindAuto
func Load(path string, kind Kind) (*models.DocumentFacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return Read(f, path, kind)
}

// Read is Load over an open reader; name is used for extension detection
func Read(r io.Reader, name string, kind Kind) (*models.DocumentFacts, error) {
	detected, format, detectErr := DetectKind(name)
	if kind == KindAuto {
		if detectErr != nil {
			return nil, detectErr
		}
		kind = detected
	}

	switch kind {
	case KindFacts:
		if format == "" {
			format = FormatJSON
		}
		return ReadFacts(r, format)
	case KindBOM:
		return ReadBOM(r)
	case KindDrawing:
		return ReadDrawing(r)
	default:
		return nil, fmt.Errorf("unknown input type %q", kind)
	}
}
