package storage

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"

	"bitmapadapter/internal/stage"
)

// ErrManifestNotFound is returned when an origin has no recorded adaptation.
var ErrManifestNotFound = errors.New("manifest not found")

// Variant is one adapted artifact of an origin.
type Variant struct {
	Frame       stage.FrameSize `msgpack:"frame" json:"frame"`
	Name        string          `msgpack:"name" json:"name"`
	ContentType string          `msgpack:"content_type" json:"contentType"`
}

// Manifest records which artifacts an adaptation produced for an origin.
type Manifest struct {
	Origin      string    `msgpack:"origin" json:"origin"`
	ContentType string    `msgpack:"content_type" json:"contentType"`
	Variants    []Variant `msgpack:"variants" json:"variants"`
	CreatedAt   time.Time `msgpack:"created_at" json:"createdAt"`
}

// WriteManifest stores m under its origin name, replacing an older one.
func (s *Storage) WriteManifest(m Manifest) error {
	path, err := ManifestPath(s.BaseDir, m.Origin)
	if err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	b, err := msgpack.Marshal(&m)
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	if err := AtomicWrite(s.Fs, path, bytes.NewReader(b)); err != nil {
		return errors.Wrapf(err, "write manifest %s", m.Origin)
	}
	return nil
}

// ReadManifest loads the manifest recorded for origin.
func (s *Storage) ReadManifest(origin string) (Manifest, error) {
	path, err := ManifestPath(s.BaseDir, origin)
	if err != nil {
		return Manifest{}, err
	}
	b, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, ErrManifestNotFound
		}
		return Manifest{}, errors.Wrapf(err, "read manifest %s", origin)
	}
	var m Manifest
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Manifest{}, errors.Wrapf(err, "decode manifest %s", origin)
	}
	return m, nil
}
