// Package snapshot persists the latest fetch result of each adapter as a
// JSON artifact on disk. The artifacts are a crash-tolerant read cache:
// after a restart the read layer can serve recent data before the first
// poll completes, and operators can inspect them directly.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrStale indicates the artifact exists but is older than the caller's
// freshness window.
var ErrStale = errors.New("snapshot: artifact too old")

// Save writes v as indented JSON to path atomically (temp file + rename),
// creating parent directories as needed. A crash mid-write never leaves a
// truncated artifact behind.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("snapshot: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: rename %s: %w", path, err)
	}
	return nil
}

// Load reads the artifact at path into v when it is younger than maxAge.
//
// Returns ErrStale (wrapped) for an artifact past the freshness window;
// a maxAge of zero disables the age check. Missing files surface as
// fs.ErrNotExist so callers can distinguish "no artifact yet" from decay.
func Load(path string, maxAge time.Duration, v any) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("snapshot: stat %s: %w", path, err)
	}

	if maxAge > 0 {
		if age := time.Since(info.ModTime()); age > maxAge {
			return fmt.Errorf("%w: %s is %v old (max %v)", ErrStale, path, age.Round(time.Second), maxAge)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	return nil
}
