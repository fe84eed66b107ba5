package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

// ErrTampered means the report does not match its signature
var ErrTampered = errors.New("signature does not match report")

// ErrWrongKey means the signature was made by a different key
var ErrWrongKey = errors.New("signature was made with a different key")

// reportIdentity is the part of a report JSON copied into the header
type reportIdentity struct {
	Metadata struct {
		ReportID string `json:"report_id"`
		Digest   string `json:"digest"`
	} `json:"metadata"`
}

// canonicalReport returns the RFC 8785 form of a report JSON document, so
// re-indented copies of a report verify against the same signature.
func canonicalReport(reportJSON []byte) ([]byte, reportIdentity, error) {
	var id reportIdentity
	if err := json.Unmarshal(reportJSON, &id); err != nil {
		return nil, id, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	canon, err := jcs.Transform(reportJSON)
	if err != nil {
		return nil, id, fmt.Errorf("failed to canonicalize report: %w", err)
	}
	return canon, id, nil
}

// SignReport signs a JSON report and returns the signature file contents
func SignReport(reportJSON []byte, privateKeyPath string) ([]byte, error) {
	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, err
	}
	canon, id, err := canonicalReport(reportJSON)
	if err != nil {
		return nil, err
	}
	header := SignatureHeader{
		CanonVersion: CanonJCS,
		SigType:      SigTypeEd25519,
		KeyID:        KeyID(key.Public().(ed25519.PublicKey)),
		ReportID:     id.Metadata.ReportID,
		Digest:       id.Metadata.Digest,
	}
	return WriteSignature(Sign(canon, key), header), nil
}

// VerifyReport checks sigData against reportJSON. It returns the parsed
// envelope, or ErrTampered / ErrWrongKey when verification fails.
func VerifyReport(reportJSON, sigData []byte, publicKeyPath string) (*SignatureEnvelope, error) {
	pub, err := LoadPublicKey(publicKeyPath)
	if err != nil {
		return nil, err
	}
	env, err := ReadSignature(sigData)
	if err != nil {
		return nil, err
	}
	canon, _, err := canonicalReport(reportJSON)
	if err != nil {
		return env, err
	}
	if Verify(canon, env.Signature, pub) {
		return env, nil
	}
	if env.Header.KeyID != "" && env.Header.KeyID != KeyID(pub) {
		return env, ErrWrongKey
	}
	return env, ErrTampered
}
