package tempo

import (
	"context"
	"math"
	"testing"

	"rhythm/internal/media/tags"
	"rhythm/internal/probes"
)

func TestFoldToRange(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{60, 120},
		{70, 70},
		{180, 180},
		{200, 100},
		{400, 100},
		{30, 120},
	}
	for _, tc := range cases {
		if got := foldToRange(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("foldToRange(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePercussive(t *testing.T) {
	// Drums present in the low band prefer the doubled octave.
	if got := normalizePercussive(80, true); got != 160 {
		t.Fatalf("expected 160, got %v", got)
	}
	// Doubling that escapes [100,190] is rejected.
	if got := normalizePercussive(96, true); got != 96 {
		t.Fatalf("expected 96, got %v", got)
	}
	// No drums in the high band prefers the halved octave.
	if got := normalizePercussive(150, false); got != 75 {
		t.Fatalf("expected 75, got %v", got)
	}
	// Halving that escapes [68,100] keeps the folded value.
	if got := normalizePercussive(130, false); got != 130 {
		t.Fatalf("expected 130, got %v", got)
	}
}

func TestPickOctave(t *testing.T) {
	if got := pickOctave(120); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := pickOctave(240); got != 120 {
		t.Fatalf("expected folded 120, got %d", got)
	}
	if got := pickOctave(40); got != 80 {
		t.Fatalf("expected doubled 80, got %d", got)
	}
}

func TestOnsetEnvelopeShape(t *testing.T) {
	// A click train at a fixed period should produce a peaked envelope.
	sampleRate := 44100
	samples := make([]float64, sampleRate*4)
	period := sampleRate / 2 // 120 BPM
	for i := 0; i < len(samples); i += period {
		for j := 0; j < 64 && i+j < len(samples); j++ {
			samples[i+j] = 1.0
		}
	}
	envelope := onsetEnvelope(samples, thirdsFrameSize, thirdsHopSize)
	if len(envelope) == 0 {
		t.Fatal("expected non-empty envelope")
	}
	peak := 0.0
	for _, v := range envelope {
		if v > peak {
			peak = v
		}
	}
	if math.Abs(peak-1.0) > 1e-9 {
		t.Fatalf("expected peak-normalized envelope, peak=%v", peak)
	}
}

func TestWindowBPMClickTrain(t *testing.T) {
	sampleRate := 44100
	samples := make([]float64, sampleRate*8)
	period := sampleRate / 2 // 120 BPM click train
	for i := 0; i < len(samples); i += period {
		for j := 0; j < 64 && i+j < len(samples); j++ {
			samples[i+j] = 1.0
		}
	}
	raw, ok := windowBPM(samples, sampleRate)
	if !ok {
		t.Fatal("expected a BPM estimate")
	}
	folded := foldToRange(raw)
	if math.Abs(folded-120) > 6 {
		t.Fatalf("expected ~120 BPM, got raw=%v folded=%v", raw, folded)
	}
}

func TestEstimateID3Override(t *testing.T) {
	// A zero-duration file defeats both strategies; the tag still wins.
	est := NewEstimator(nil, nil)
	result := est.Estimate(context.Background(), "/music/song.wav", 0, probes.Result{}, tags.TagMap{TBPM: "148 bpm"})
	if result.BPM != 148 || result.Source != SourceID3 {
		t.Fatalf("unexpected override: %+v", result)
	}
	if result.AltHalf != 74 {
		t.Fatalf("expected alt half 74, got %d", result.AltHalf)
	}
	if result.AltDouble != 0 {
		t.Fatalf("alt double 296 is out of range, got %d", result.AltDouble)
	}
}

func TestEstimateAltTempoWithinRange(t *testing.T) {
	est := NewEstimator(nil, nil)
	result := est.Estimate(context.Background(), "/music/song.wav", 0, probes.Result{}, tags.TagMap{TBPM: "120"})
	if result.AltHalf != 60 || result.AltDouble != 0 {
		t.Fatalf("unexpected alt tempos: half=%d double=%d", result.AltHalf, result.AltDouble)
	}
}
