package storage

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// tempPattern names in-flight writes; CleanOrphanedTempFiles matches it.
const tempPattern = ".tmp-*"

// EnsureDir creates directory structure with proper permissions.
func EnsureDir(fs afero.Fs, path string) error {
	return fs.MkdirAll(path, 0o755)
}

// AtomicWrite writes data to path atomically using a temp file in the same directory.
func AtomicWrite(fs afero.Fs, path string, data io.Reader) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(fs, dir); err != nil {
		return errors.Wrap(err, "ensure dir")
	}

	tmp, err := afero.TempFile(fs, dir, tempPattern)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	// removing after a successful rename is a no-op
	defer func() {
		tmp.Close()
		fs.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, data); err != nil {
		return errors.Wrap(err, "write temp file")
	}

	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	if err := fs.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "rename temp to final")
	}

	return nil
}
