package suppression

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
)

// Write atomically replaces the suppression artifact at path with the given
// rules. The new content is written to a temp file in the same directory
// under an exclusive advisory lock, fsynced, then renamed into place, so
// readers never observe a half-written file.
func Write(path string, rules map[string][]string) error {
	if rules == nil {
		return eris.New("suppression: rules must not be nil")
	}
	for parent, children := range rules {
		if parent == "" {
			return eris.New("suppression: empty parent id")
		}
		for _, child := range children {
			if child == "" {
				return eris.Errorf("suppression: empty child id under %q", parent)
			}
		}
	}

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return eris.Wrap(err, "suppression: encode rules")
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "dependencies-*.tmp")
	if err != nil {
		return eris.Wrap(err, "suppression: create temp file")
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	lock := flock.New(tmpPath)
	locked, err := lock.TryLock()
	if err != nil {
		return eris.Wrap(err, "suppression: lock temp file")
	}
	if !locked {
		return eris.New("suppression: temp file unexpectedly locked")
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := tmp.Write(data); err != nil {
		return eris.Wrap(err, "suppression: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrap(err, "suppression: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "suppression: close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return eris.Wrap(err, "suppression: rename into place")
	}
	return nil
}

// Read loads the artifact at path under a shared lock and returns its rules.
// It takes the lock without retrying; a held lock is reported as an error.
func Read(path string) (map[string][]string, error) {
	// Stat before locking: acquiring an advisory lock would create a missing
	// artifact as an empty file.
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrap(err, "suppression: stat artifact")
	}

	lock := flock.New(path)
	locked, err := lock.TryRLock()
	if err != nil {
		return nil, eris.Wrap(err, "suppression: acquire read lock")
	}
	if !locked {
		return nil, eris.New("suppression: artifact exclusively locked")
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "suppression: read artifact")
	}
	return parseRules(data)
}

// Validate checks that the artifact at path parses under the reader schema
// and returns the number of parent entries.
func Validate(path string) (int, error) {
	rules, err := Read(path)
	if err != nil {
		return 0, err
	}
	return len(rules), nil
}
