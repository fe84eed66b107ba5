package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/gowebpki/jcs"
)

// Canonical returns the RFC 8785 JSON form of the core report
func Canonical(report models.ComplianceReport) ([]byte, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize report: %w", err)
	}
	return canon, nil
}

// Digest is "sha256:<hex>" of the canonical core report.
// Equal reports always have equal digests.
func Digest(report models.ComplianceReport) (string, error) {
	canon, err := Canonical(report)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
