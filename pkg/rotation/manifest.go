package rotation

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const manifestName = "manifest.yaml"

// manifest records what rotation evicted into the backup directory, so a
// player (or support) can trace a missing save back to its backup copy.
type manifest struct {
	UpdatedAt time.Time       `yaml:"updated_at"`
	Entries   []manifestEntry `yaml:"entries"`
}

type manifestEntry struct {
	Original  string    `yaml:"original"`
	Backup    string    `yaml:"backup"`
	Strategy  string    `yaml:"strategy"`
	EvictedAt time.Time `yaml:"evicted_at"`
}

// appendManifest extends the backup manifest with this pass's evictions.
// Deleted and BackedUp run in lockstep when backup-before-rotation is
// on, so entries pair by index.
func (s *System) appendManifest(result Result) error {
	if len(result.Deleted) != len(result.BackedUp) {
		return errors.New("rotation result has unpaired backups")
	}

	path := filepath.Join(s.backupDir, manifestName)
	var m manifest
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &m); err != nil {
			// A mangled manifest is not worth failing a rotation pass over;
			// start a fresh one.
			m = manifest{}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	now := time.Now().UTC()
	for i := range result.Deleted {
		m.Entries = append(m.Entries, manifestEntry{
			Original:  filepath.Base(result.Deleted[i]),
			Backup:    filepath.Base(result.BackedUp[i]),
			Strategy:  s.cfg.Strategy.String(),
			EvictedAt: now,
		})
	}
	m.UpdatedAt = now

	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func gzipData(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
