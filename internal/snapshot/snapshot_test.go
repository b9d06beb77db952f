package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type artifact struct {
	Timestamp string   `json:"timestamp"`
	Stations  []string `json:"stations"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "tva.json")
	want := artifact{Timestamp: "2026-09-01T00:00:00Z", Stations: []string{"a", "b"}}

	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got artifact
	if err := Load(path, time.Minute, &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Timestamp != want.Timestamp || len(got.Stations) != 2 {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scada.json")

	if err := Save(path, artifact{Timestamp: "old"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := Save(path, artifact{Timestamp: "new"}); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	var got artifact
	if err := Load(path, 0, &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Timestamp != "new" {
		t.Errorf("Timestamp = %q, want %q", got.Timestamp, "new")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mqtt.json")

	if err := Save(path, artifact{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "mqtt.json" {
		t.Errorf("dir contains %d entries, want only mqtt.json", len(entries))
	}
}

func TestLoadMissing(t *testing.T) {
	var got artifact
	err := Load(filepath.Join(t.TempDir(), "nope.json"), time.Minute, &got)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tva.json")
	if err := Save(path, artifact{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	var got artifact
	err := Load(path, 10*time.Minute, &got)
	if !errors.Is(err, ErrStale) {
		t.Errorf("Load() error = %v, want ErrStale", err)
	}

	// Zero maxAge disables the check.
	if err := Load(path, 0, &got); err != nil {
		t.Errorf("Load() with no age limit error = %v", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var got artifact
	if err := Load(path, time.Minute, &got); err == nil {
		t.Error("Load() corrupt artifact expected error")
	}
}
