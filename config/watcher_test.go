package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("transcription:\n  language: en\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 8)
	w, err := Watch(path, func(c *Config) { changed <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("transcription:\n  language: uk\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-changed:
			// The editor-style save may produce several events; wait for
			// the one carrying the new content.
			if cfg.Transcription.Language == "uk" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed after config change")
		}
	}
}

func TestWatchKeepsLastGoodConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 8)
	w, err := Watch(path, func(c *Config) { changed <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A failed reload must not surface a config; anything delivered has to
	// be valid.
	timeout := time.After(300 * time.Millisecond)
	for {
		select {
		case cfg := <-changed:
			if err := cfg.Validate(); err != nil {
				t.Fatalf("watcher delivered invalid config: %v", err)
			}
		case <-timeout:
			return
		}
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 8)
	w, err := Watch(path, func(c *Config) { changed <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Error("reload triggered by an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
