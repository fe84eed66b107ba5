package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/aerocheck/aerocheck/internal/netutil"
)

const (
	presetScheme = "preset:"
	ociScheme    = "oci://"
	httpsScheme  = "https://"
)

// allowPrivateHostsEnv lets https catalogs live on internal hosts
const allowPrivateHostsEnv = "AEROCHECK_ALLOW_PRIVATE_CATALOG_HOSTS"

// SourceKind tells where a catalog came from
type SourceKind string

const (
	SourcePreset SourceKind = "preset"
	SourceFile   SourceKind = "file"
	SourceOCI    SourceKind = "oci"
	SourceHTTPS  SourceKind = "https"
)

// SourceRef identifies the exact catalog document that was loaded
type SourceRef struct {
	Kind   SourceKind `json:"kind"`
	Ref    string     `json:"ref"`
	SHA256 string     `json:"sha256"`
}

func (s SourceRef) String() string {
	switch s.Kind {
	case SourcePreset:
		return presetScheme + s.Ref
	case SourceOCI:
		return ociScheme + s.Ref
	default:
		return s.Ref
	}
}

// Load resolves src to a built catalog. src is "preset:<name>", an
// "oci://registry/repo:tag" reference, an https:// URL, or a filesystem path. An empty src
// selects the default preset.
func Load(ctx context.Context, src string) (*Catalog, SourceRef, error) {
	data, ref, err := Fetch(ctx, src)
	if err != nil {
		return nil, ref, err
	}
	c, err := Build(data, ref.String())
	if err != nil {
		return nil, ref, err
	}
	return c, ref, nil
}

// Fetch returns the raw catalog document for src without building it
func Fetch(ctx context.Context, src string) ([]byte, SourceRef, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = presetScheme + DefaultPreset
	}

	var (
		ref  SourceRef
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, presetScheme):
		ref = SourceRef{Kind: SourcePreset, Ref: strings.TrimPrefix(src, presetScheme)}
		data, err = PresetData(ref.Ref)
	case strings.HasPrefix(src, ociScheme):
		ref = SourceRef{Kind: SourceOCI, Ref: strings.TrimPrefix(src, ociScheme)}
		data, err = pullOCI(ctx, ref.Ref)
	case strings.HasPrefix(src, httpsScheme):
		ref = SourceRef{Kind: SourceHTTPS, Ref: src}
		data, err = download(ctx, src)
	default:
		ref = SourceRef{Kind: SourceFile, Ref: src}
		data, err = os.ReadFile(src)
		if err != nil {
			err = fmt.Errorf("failed to read catalog file: %w", err)
		}
	}
	if err != nil {
		return nil, ref, err
	}

	sum := sha256.Sum256(data)
	ref.SHA256 = hex.EncodeToString(sum[:])
	return data, ref, nil
}

func download(ctx context.Context, rawURL string) ([]byte, error) {
	cfg := netutil.DefaultConfig()
	cfg.AllowPrivateHosts = os.Getenv(allowPrivateHostsEnv) == "1"
	data, err := netutil.Download(ctx, rawURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to download catalog: %w", err)
	}
	return data, nil
}
