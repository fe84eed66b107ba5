package catalog

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aerocheck/aerocheck/internal/version"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
)

// ociCatalogPath is where a catalog image keeps its document
const ociCatalogPath = "catalog.yaml"

// maxCatalogSize caps the catalog document read from an image
const maxCatalogSize = 4 << 20

// pullOCI fetches an image and returns catalog.yaml from its flattened filesystem
func pullOCI(ctx context.Context, imageRef string) ([]byte, error) {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image reference: %w", err)
	}

	img, err := crane.Pull(ref.String(),
		crane.WithContext(ctx),
		crane.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pull catalog image: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(crane.Export(img, pw))
	}()
	defer pr.Close()

	data, err := findInTar(pr, ociCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog image %s: %w", ref.String(), err)
	}
	return data, nil
}

var errNotInImage = errors.New(ociCatalogPath + " not found in image")

func findInTar(r io.Reader, want string) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, errNotInImage
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read image filesystem: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Clean("/"+hdr.Name) != "/"+want {
			continue
		}
		if hdr.Size > maxCatalogSize {
			return nil, fmt.Errorf("%s is too large (%d bytes)", want, hdr.Size)
		}
		return io.ReadAll(io.LimitReader(tr, maxCatalogSize))
	}
}
