package output

import (
	"os"
	"path/filepath"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// fileDestination writes to a temporary file beside the final path and
// renames it into place on commit.
type fileDestination struct {
	path string
	tmp  *os.File
}

func openFile(path string) (*fileDestination, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".sqlport-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to create output file").WithDetail("target", path)
	}
	return &fileDestination{path: path, tmp: tmp}, nil
}

func (f *fileDestination) Write(p []byte) (int, error) { return f.tmp.Write(p) }

func (f *fileDestination) commit() error {
	if err := f.tmp.Sync(); err != nil {
		f.abort()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to sync output file")
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(f.tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to close output file")
	}
	if err := os.Chmod(f.tmp.Name(), 0o644); err != nil {
		_ = os.Remove(f.tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to set output file mode")
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		_ = os.Remove(f.tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to move output file into place")
	}
	return nil
}

func (f *fileDestination) abort() error {
	_ = f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to remove partial output file")
	}
	return nil
}
