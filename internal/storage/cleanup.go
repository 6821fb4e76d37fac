package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// CleanOrphanedTempFiles removes temp files left behind by interrupted
// AtomicWrite calls under the store that are older than maxAge. It returns
// how many files were removed.
func (s *Storage) CleanOrphanedTempFiles(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	err := afero.Walk(s.Fs, s.BaseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasPrefix(filepath.Base(path), ".tmp-") {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := s.Fs.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
