package bundler

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"
)

// zipEpoch keeps bundles byte-identical across runs
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Contents are the raw evidence files. Report is required.
type Contents struct {
	Report    []byte
	Signature []byte
	PublicKey []byte
	Catalog   []byte
}

type entry struct {
	name string
	data []byte
}

// entries in stable alphabetical order, optional files skipped when empty
func (c Contents) entries() []entry {
	all := []entry{
		{CatalogName, c.Catalog},
		{PublicKeyName, c.PublicKey},
		{ReportName, c.Report},
		{SignatureName, c.Signature},
	}
	out := make([]entry, 0, len(all))
	for _, e := range all {
		if len(e.data) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// CreateBundle writes the zip to outputPath
func CreateBundle(outputPath string, contents Contents, readme string, manifest *Manifest) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteBundle(f, contents, readme, manifest); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteBundle writes manifest.json first, then evidence files, then README.txt
func WriteBundle(w io.Writer, contents Contents, readme string, manifest *Manifest) error {
	if len(contents.Report) == 0 {
		return fmt.Errorf("bundle requires a report")
	}
	zw := zip.NewWriter(w)

	if manifest != nil {
		manifestJSON, err := manifest.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to serialize manifest: %w", err)
		}
		if err := addToZip(zw, ManifestName, manifestJSON); err != nil {
			return fmt.Errorf("failed to add manifest: %w", err)
		}
	}

	for _, e := range contents.entries() {
		if err := addToZip(zw, e.name, e.data); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
	}

	if err := addToZip(zw, ReadmeName, []byte(readme)); err != nil {
		return fmt.Errorf("failed to add README: %w", err)
	}
	return zw.Close()
}

func addToZip(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
