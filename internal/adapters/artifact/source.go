// Package artifact opens job artifacts from a filesystem.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/spf13/afero"
)

// Source implements ports.ArtifactSource over an afero filesystem, so the
// same code reads from disk in production and from memory in tests.
type Source struct {
	fs afero.Fs
}

var _ ports.ArtifactSource = (*Source)(nil)

func NewSource(fsys afero.Fs) *Source {
	return &Source{fs: fsys}
}

// NewOSSource reads artifacts from the local disk. When root is non-empty,
// references are resolved inside it and cannot escape it.
func NewOSSource(root string) *Source {
	var fsys afero.Fs = afero.NewOsFs()
	if root != "" {
		fsys = afero.NewBasePathFs(fsys, root)
	}
	return NewSource(fsys)
}

// Open returns the artifact contents. Directories count as missing.
func (s *Source) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrArtifactNotFound)
	}

	info, err := s.fs.Stat(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, ref)
		}
		return nil, fmt.Errorf("stat artifact %s: %w", ref, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrArtifactNotFound, ref)
	}

	f, err := s.fs.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", ref, err)
	}
	return f, nil
}
