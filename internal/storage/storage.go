package storage

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrArtifactNotFound is returned when no artifact is stored under a name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Storage is a content-addressed artifact store rooted at BaseDir.
// Artifacts are immutable: a name is its content hash, so writing a name
// that already exists is a no-op.
type Storage struct {
	Fs      afero.Fs
	BaseDir string
}

// New creates a Storage on the OS filesystem.
func New(baseDir string) *Storage {
	return NewWithFs(afero.NewOsFs(), baseDir)
}

// NewWithFs creates a Storage on fs.
func NewWithFs(fs afero.Fs, baseDir string) *Storage {
	return &Storage{Fs: fs, BaseDir: baseDir}
}

// SaveArtifact stores data under name. saved is false when the name was
// already present.
func (s *Storage) SaveArtifact(name string, data []byte) (saved bool, path string, err error) {
	path, err = ArtifactPath(s.BaseDir, name)
	if err != nil {
		return false, "", err
	}
	exists, err := afero.Exists(s.Fs, path)
	if err != nil {
		return false, "", errors.Wrap(err, "stat artifact")
	}
	if exists {
		return false, path, nil
	}
	if err := AtomicWrite(s.Fs, path, bytes.NewReader(data)); err != nil {
		return false, "", errors.Wrapf(err, "save artifact %s", name)
	}
	return true, path, nil
}

// OpenArtifact reads a stored artifact.
func (s *Storage) OpenArtifact(name string) ([]byte, error) {
	path, err := ArtifactPath(s.BaseDir, name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, errors.Wrapf(err, "read artifact %s", name)
	}
	return data, nil
}

// HasArtifact reports whether name is stored.
func (s *Storage) HasArtifact(name string) bool {
	path, err := ArtifactPath(s.BaseDir, name)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(s.Fs, path)
	return err == nil && ok
}
