package ensemble

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rhythm/internal/logging"
)

func TestRescuePassesMainBranch(t *testing.T) {
	trace := Trace{PerModel: map[string]ModelStats{
		"panns": {
			MeanProbs: map[string]float64{"piano": 0.004},
			PosRatio:  map[string]float64{"piano": 0.015},
		},
		"yamnet": {
			MeanProbs: map[string]float64{"piano": 0.003},
			PosRatio:  map[string]float64{"piano": 0.01},
		},
	}}
	got := rescueFromTrace(trace)
	if !reflect.DeepEqual(got, []string{"Piano"}) {
		t.Fatalf("expected Piano rescue, got %v", got)
	}
}

func TestRescuePannsPosBonusBranch(t *testing.T) {
	// PANNs pos alone (0.07) clears the PANNs-only bonus floor (0.06); with
	// these values the combined mean and pos floors are met as well.
	trace := Trace{PerModel: map[string]ModelStats{
		"panns": {
			MeanProbs: map[string]float64{"electric_guitar": 0.01},
			PosRatio:  map[string]float64{"electric_guitar": 0.07},
		},
		"yamnet": {
			MeanProbs: map[string]float64{"electric_guitar": 0},
			PosRatio:  map[string]float64{"electric_guitar": 0},
		},
	}}
	got := rescueFromTrace(trace)
	if !reflect.DeepEqual(got, []string{"Electric Guitar"}) {
		t.Fatalf("expected Electric Guitar rescue, got %v", got)
	}
}

func TestRescueRanksAndCaps(t *testing.T) {
	mean := map[string]float64{}
	pos := map[string]float64{}
	for i, key := range []string{"electric_guitar", "acoustic_guitar", "bass_guitar", "drum_kit", "piano", "organ"} {
		mean[key] = 0.01 + float64(i)*0.001
		pos[key] = 0.05
	}
	trace := Trace{PerModel: map[string]ModelStats{
		"panns":  {MeanProbs: mean, PosRatio: pos},
		"yamnet": {MeanProbs: map[string]float64{}, PosRatio: map[string]float64{}},
	}}
	got := rescueFromTrace(trace)
	if len(got) != rescueMaxPicks {
		t.Fatalf("expected %d picks, got %v", rescueMaxPicks, got)
	}
	// Highest combined mean ranks first.
	if got[0] != "Organ" {
		t.Fatalf("expected Organ first, got %v", got)
	}
}

func TestRescueBelowThresholds(t *testing.T) {
	trace := Trace{PerModel: map[string]ModelStats{
		"panns": {
			MeanProbs: map[string]float64{"strings": 0.002},
			PosRatio:  map[string]float64{"strings": 0.01},
		},
	}}
	if got := rescueFromTrace(trace); len(got) != 0 {
		t.Fatalf("expected no rescues, got %v", got)
	}
}

func TestMergeBoosts(t *testing.T) {
	result := Result{
		Instruments: []string{"Piano"},
		Trace: Trace{Boosts: map[string]Boost{
			"mix_only_orchestral_v1": {Added: []string{"Brass", "Piano"}},
			"mix_only_woodwinds_v2":  {Added: []string{"Woodwinds"}},
		}},
	}
	mergeBoosts(&result)
	want := []string{"Piano", "Brass", "Woodwinds"}
	if !reflect.DeepEqual(result.Instruments, want) {
		t.Fatalf("got %v, want %v", result.Instruments, want)
	}
}

func TestParseResultDefaults(t *testing.T) {
	result, err := parseResult([]byte(`{"used_demucs":false}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.Mode != "mix-only" {
		t.Fatalf("unexpected mode: %s", result.Mode)
	}
	if result.Instruments == nil {
		t.Fatal("instruments must never be nil")
	}
}

func TestAnalyzeWithStubScript(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]any{
		"mode":        "mix-only",
		"used_demucs": false,
		"instruments": []string{"Electric Guitar", "Drum Kit (acoustic)"},
		"decision_trace": map[string]any{
			"per_model": map[string]any{},
		},
	}
	payload, _ := json.Marshal(doc)
	script := filepath.Join(dir, "classifier.sh")
	// argv: --audio <p> --json-out <p> --demucs <0|1>
	content := "#!/bin/sh\ncat > \"$4\" <<'EOF'\n" + string(payload) + "\nEOF\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	client := NewClient("/bin/sh", script, false, logging.NewNop())
	result := client.Analyze(context.Background(), filepath.Join(dir, "song.mp3"))
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !reflect.DeepEqual(result.Instruments, []string{"Electric Guitar", "Drum Kit (acoustic)"}) {
		t.Fatalf("unexpected instruments: %v", result.Instruments)
	}
}

func TestAnalyzeFailureYieldsStableShape(t *testing.T) {
	client := NewClient("/nonexistent-python", "/nonexistent.py", false, logging.NewNop())
	result := client.Analyze(context.Background(), "/music/song.mp3")
	if result.Err == nil {
		t.Fatal("expected recorded error")
	}
	if result.Instruments == nil || len(result.Instruments) != 0 {
		t.Fatalf("expected empty instruments, got %v", result.Instruments)
	}
	if result.Mode != "mix-only" {
		t.Fatalf("unexpected mode: %s", result.Mode)
	}
}

func TestElevateElectronicConfidence(t *testing.T) {
	elements := &ElectronicElements{Detected: true, Confidence: "low"}
	ElevateElectronicConfidence(elements, []string{"Rock"})
	if elements.Confidence != "low" {
		t.Fatal("no genre agreement should keep low confidence")
	}
	ElevateElectronicConfidence(elements, []string{"Electronic"})
	if elements.Confidence != "medium" {
		t.Fatalf("expected medium, got %s", elements.Confidence)
	}
	// High confidence is never touched.
	high := &ElectronicElements{Detected: true, Confidence: "high"}
	ElevateElectronicConfidence(high, []string{"Electronic"})
	if high.Confidence != "high" {
		t.Fatal("high confidence must not change")
	}
}
