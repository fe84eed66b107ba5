package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// signature constants
const (
	SigTypeEd25519 = "ed25519"
	CanonJCS       = "jcs"
)

// SignatureHeader metadata. ReportID and Digest are informational; the
// signature covers the whole canonical report.
type SignatureHeader struct {
	CanonVersion string `json:"canon_version"`
	SigType      string `json:"sig_type"`
	KeyID        string `json:"key_id,omitempty"`
	ReportID     string `json:"report_id,omitempty"`
	Digest       string `json:"digest,omitempty"`
}

// SignatureEnvelope header + signature
type SignatureEnvelope struct {
	Header    SignatureHeader
	Signature []byte
}

// WriteSignature encodes a header line followed by the hex signature
func WriteSignature(sig []byte, header SignatureHeader) []byte {
	headerBytes, _ := json.Marshal(header)
	return []byte(string(headerBytes) + "\n" + hex.EncodeToString(sig) + "\n")
}

// ReadSignature parses the output of WriteSignature
func ReadSignature(data []byte) (*SignatureEnvelope, error) {
	content := strings.TrimSpace(string(data))
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) != 2 {
		return nil, fmt.Errorf("invalid signature format: expected header and payload")
	}

	var header SignatureHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}
	if header.SigType != SigTypeEd25519 {
		return nil, fmt.Errorf("unsupported sig_type %q", header.SigType)
	}
	if header.CanonVersion != CanonJCS {
		return nil, fmt.Errorf("unsupported canon_version %q", header.CanonVersion)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	return &SignatureEnvelope{Header: header, Signature: sig}, nil
}
