package pcm

import (
	"math"
	"testing"
)

func TestSamplesFromF32LE(t *testing.T) {
	raw := []byte{
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0xbf, // -0.5
		0x00, 0x00, 0xc0, 0x7f, // NaN
		0x01, 0x02, // trailing partial frame dropped
	}
	samples := samplesFromF32LE(raw)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0] != 1.0 {
		t.Fatalf("unexpected sample[0]: %v", samples[0])
	}
	if samples[1] != -0.5 {
		t.Fatalf("unexpected sample[1]: %v", samples[1])
	}
	if samples[2] != 0 {
		t.Fatalf("NaN should flatten to 0, got %v", samples[2])
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(62.5); got != "62.500" {
		t.Fatalf("unexpected format: %s", got)
	}
	if math.IsNaN(62.5) {
		t.Fatal("unreachable")
	}
}
