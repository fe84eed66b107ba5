// Package bundler packages a compliance report and its evidence into a
// deterministic ZIP file.
package bundler

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/aerocheck/aerocheck/internal/version"
)

// Entry names inside a bundle
const (
	ManifestName  = "manifest.json"
	ReportName    = "report.json"
	SignatureName = "report.json.sig"
	PublicKeyName = "public.key"
	CatalogName   = "catalog.yaml"
	ReadmeName    = "README.txt"
)

// Manifest describes a bundle and the hash of every evidence file
type Manifest struct {
	ToolVersion   string         `json:"tool_version"`
	EngineVersion string         `json:"engine_version"`
	ReportID      string         `json:"report_id"`
	Status        string         `json:"status"`
	RiskScore     int            `json:"risk_score"`
	ReportDigest  string         `json:"report_digest"`
	CatalogSHA256 string         `json:"catalog_sha256,omitempty"`
	Signed        bool           `json:"signed"`
	Files         []ManifestFile `json:"files"`
}

// ManifestFile desc
type ManifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// GenerateManifest hashes the evidence in contents. README and the
// manifest itself are not listed.
func GenerateManifest(env *report.Envelope, contents Contents) *Manifest {
	m := &Manifest{
		ToolVersion:   version.BuildVersion(),
		EngineVersion: env.Metadata.EngineVersion,
		ReportID:      env.Metadata.ReportID,
		Status:        string(env.Status),
		RiskScore:     env.RiskScore,
		ReportDigest:  env.Metadata.Digest,
		Signed:        len(contents.Signature) > 0,
		Files:         []ManifestFile{},
	}
	if len(contents.Catalog) > 0 {
		m.CatalogSHA256 = hashBytes(contents.Catalog)
	}

	for _, e := range contents.entries() {
		m.Files = append(m.Files, ManifestFile{Name: e.name, SHA256: hashBytes(e.data), Size: int64(len(e.data))})
	}
	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Name < m.Files[j].Name
	})
	return m
}

// ToJSON deterministic
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func hashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
