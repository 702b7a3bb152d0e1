// Package source reads files named by include directives.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/cppig/internal/arena"
)

// Reader loads whole files into an arena. A relative identifier that does
// not exist as given is looked up under each search prefix in order; the
// identifier itself is never rewritten.
type Reader struct {
	fs       afero.Fs
	prefixes []string
}

// NewReader creates a reader over fsys. A nil fsys means the OS filesystem.
func NewReader(fsys afero.Fs, prefixes []string) *Reader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Reader{fs: fsys, prefixes: prefixes}
}

// ReadFile reads path into dst. A file that does not fit in dst's remaining
// capacity fails with an error wrapping arena.ErrCapacityExceeded.
func (r *Reader) ReadFile(path string, dst *arena.Arena) ([]byte, error) {
	f, err := r.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}

	buf, err := dst.Alloc(int(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), err)
	}
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return buf, nil
}

// Resolve returns the filesystem path ReadFile would open for path.
func (r *Reader) Resolve(path string) (string, error) {
	f, err := r.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Name(), nil
}

func (r *Reader) open(path string) (afero.File, error) {
	f, err := r.fs.Open(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) || filepath.IsAbs(path) {
		return f, err
	}
	for _, prefix := range r.prefixes {
		if pf, perr := r.fs.Open(filepath.Join(prefix, path)); perr == nil {
			return pf, nil
		}
	}
	return nil, err
}
