package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", CodecName: "mp3", SampleRate: "44100", Channels: 2},
			{CodecType: "audio", CodecName: "aac"},
		},
		Format: Format{
			Duration: "215.37",
			BitRate:  "320000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	primary, ok := result.PrimaryAudio()
	if !ok {
		t.Fatal("expected a primary audio stream")
	}
	if primary.CodecName != "mp3" {
		t.Fatalf("unexpected primary codec: %s", primary.CodecName)
	}
	if primary.SampleRateHz() != 44100 {
		t.Fatalf("unexpected sample rate: %d", primary.SampleRateHz())
	}
	if result.DurationSeconds() != 215.37 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.BitRate() != 320000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if _, ok := result.PrimaryAudio(); ok {
		t.Fatal("expected no primary audio stream")
	}
}
