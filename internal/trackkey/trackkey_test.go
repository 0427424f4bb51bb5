package trackkey

import (
	"strings"
	"testing"
)

func TestNormalizeCollapsesSeparatorsAndCase(t *testing.T) {
	a := Normalize(`C:\Music\Song.MP3`)
	b := Normalize("c:/music/song.mp3")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	key := Normalize("/Music/Song.mp3")
	if Normalize(key) != key {
		t.Fatalf("normalize not idempotent for %q", key)
	}
}

func TestWaveformNameDeterministic(t *testing.T) {
	a := WaveformName("/Music/Song.mp3")
	b := WaveformName(`\music\SONG.MP3`)
	if a == "" || !strings.HasSuffix(a, ".png") {
		t.Fatalf("unexpected waveform name: %q", a)
	}
	// Hash part tracks the normalized key, so case variants agree on it.
	if a[strings.LastIndex(a, "_"):] != b[strings.LastIndex(b, "_"):] {
		t.Fatalf("hash suffix differs: %q vs %q", a, b)
	}
	hashPart := a[strings.LastIndex(a, "_")+1 : len(a)-len(".png")]
	if len(hashPart) != 10 {
		t.Fatalf("expected 10-char hash, got %q", hashPart)
	}
}

func TestSupportedAudio(t *testing.T) {
	for _, path := range []string{"a.mp3", "b.WAV", "c.aif", "d.AIFF"} {
		if !SupportedAudio(path) {
			t.Fatalf("expected %q supported", path)
		}
	}
	for _, path := range []string{"a.flac", "b.ogg", "c.txt", "noext"} {
		if SupportedAudio(path) {
			t.Fatalf("expected %q unsupported", path)
		}
	}
}
