package probes

import (
	"context"
	"testing"
	"time"

	"rhythm/internal/logging"
)

func TestMergeWindowHintsAndScores(t *testing.T) {
	result := Result{Hints: map[string]bool{}, Scores: map[string]float64{}}
	mergeWindow(&result, Window{
		ClapTop: []LabelScore{
			{Label: "Drum Kit", Score: 0.8},
			{Label: "flute", Score: 0.2},
		},
		ASTLabels: []string{"Electric Guitar"},
	})

	if !result.Hints["drum kit"] {
		t.Fatal("expected drum kit hint")
	}
	if result.Hints["flute"] {
		t.Fatal("low-score label must not become a hint")
	}
	if !result.Hints["electric guitar"] {
		t.Fatal("expected ast label hint")
	}
	if result.Scores["drum kit"] != 0.8 {
		t.Fatalf("unexpected score: %v", result.Scores["drum kit"])
	}
}

func TestHasHint(t *testing.T) {
	result := Result{Hints: map[string]bool{"drum kit": true}}
	if !result.HasHint("drum") {
		t.Fatal("substring hint lookup failed")
	}
	if result.HasHint("guitar") {
		t.Fatal("unexpected hint match")
	}
}

func TestWindowOffsets(t *testing.T) {
	if got := windowOffsets(8); len(got) != 1 || got[0] != 0 {
		t.Fatalf("short file should yield one window, got %v", got)
	}
	got := windowOffsets(240)
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %v", got)
	}
	if got[1] <= got[0] || got[2] <= got[1] {
		t.Fatalf("offsets not increasing: %v", got)
	}
}

func TestRunWithoutScriptSkips(t *testing.T) {
	runner := NewSubprocessRunner("python3", "", time.Second, logging.NewNop())
	result := runner.Run(context.Background(), "/music/song.mp3", 200)
	if result.Status != "skipped" {
		t.Fatalf("expected skipped, got %s", result.Status)
	}
	if len(result.Hints) != 0 {
		t.Fatal("expected empty hints")
	}
}

func TestRunAllWindowsFailingSkips(t *testing.T) {
	runner := NewSubprocessRunner("/nonexistent-python", "/nonexistent-script.py", time.Second, logging.NewNop())
	result := runner.Run(context.Background(), "/music/song.mp3", 200)
	if result.Status != "skipped" {
		t.Fatalf("expected skipped, got %s", result.Status)
	}
}
