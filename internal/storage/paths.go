package storage

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidName rejects names that could escape the store.
var ErrInvalidName = errors.New("invalid artifact name")

// ArtifactPath returns the storage path for an artifact using layout:
// {baseDir}/assets/{name[0:2]}/{name}
func ArtifactPath(baseDir, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "assets", strings.ToLower(name[:2]), name), nil
}

// ManifestPath returns {baseDir}/manifests/{origin}.msgpack.
func ManifestPath(baseDir, origin string) (string, error) {
	if err := validateName(origin); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "manifests", origin+".msgpack"), nil
}

func validateName(name string) error {
	if len(name) < 3 || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}
