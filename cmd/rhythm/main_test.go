package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectAudioFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "albums", "one")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"a.mp3", "b.WAV", "c.txt"} {
		if err := os.WriteFile(filepath.Join(nested, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	files, err := collectAudioFiles([]string{dir})
	if err != nil {
		t.Fatalf("collectAudioFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 audio files, got %v", files)
	}
}

func TestCollectAudioFilesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	files, err := collectAudioFiles([]string{path, path, dir})
	if err != nil {
		t.Fatalf("collectAudioFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %v", files)
	}
}

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"analyze", "watch", "queue", "criteria", "config", "version"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
