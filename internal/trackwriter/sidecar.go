package trackwriter

import (
	"encoding/json"

	"rhythm/internal/ensemble"
	"rhythm/internal/library"
	"rhythm/internal/media/tags"
)

// sidecar is the per-file JSON layout consumed by the search UI. It flattens
// the record the way the facet UI expects.
type sidecar struct {
	File       string  `json:"file"`
	Path       string  `json:"path"`
	AnalyzedAt string  `json:"analyzed_at"`
	Duration   float64 `json:"duration_sec"`
	SampleRate int     `json:"sample_rate_hz"`
	Channels   int     `json:"channels"`
	BitRate    int64   `json:"bit_rate"`

	Title         string      `json:"title"`
	ID3           tags.TagMap `json:"id3"`
	HasWavVersion bool        `json:"has_wav_version"`

	EstimatedTempoBPM int    `json:"estimated_tempo_bpm,omitempty"`
	TempoBPM          int    `json:"tempo_bpm,omitempty"`
	BPM               int    `json:"bpm,omitempty"`
	TempoSource       string `json:"tempo_source,omitempty"`
	TempoAltHalfBPM   int    `json:"tempo_alt_half_bpm,omitempty"`
	TempoAltDoubleBPM int    `json:"tempo_alt_double_bpm,omitempty"`

	Creative       sidecarCreative `json:"creative"`
	CreativeStatus string          `json:"creative_status,omitempty"`

	Instruments      []string        `json:"instruments"`
	FinalInstruments []string        `json:"final_instruments"`
	Ensemble         sidecarEnsemble `json:"instruments_ensemble"`

	WaveformPNG string `json:"waveform_png,omitempty"`
}

type sidecarCreative struct {
	Mood                 []string `json:"mood"`
	Genre                []string `json:"genre"`
	Theme                []string `json:"theme"`
	SuggestedInstruments []string `json:"suggestedInstruments"`
	Vocals               []string `json:"vocals"`
	LyricThemes          []string `json:"lyricThemes"`
	Narrative            string   `json:"narrative"`
	Confidence           float64  `json:"confidence"`
}

type sidecarEnsemble struct {
	UsedDemucs         bool                         `json:"used_demucs"`
	Mode               string                       `json:"mode"`
	DecisionTrace      json.RawMessage              `json:"decision_trace,omitempty"`
	ElectronicElements *ensemble.ElectronicElements `json:"electronic_elements,omitempty"`
}

func sidecarFromRecord(rec library.Record) sidecar {
	title := rec.Technical.Tags.Title
	if title == "" {
		title = rec.File
	}
	return sidecar{
		File:       rec.File,
		Path:       rec.Path,
		AnalyzedAt: rec.AnalyzedAt,
		Duration:   rec.Technical.DurationSec,
		SampleRate: rec.Technical.SampleRateHz,
		Channels:   rec.Technical.Channels,
		BitRate:    rec.Technical.BitRate,

		Title:         title,
		ID3:           rec.Technical.Tags,
		HasWavVersion: rec.Technical.HasWavVersion,

		EstimatedTempoBPM: rec.Technical.EstimatedBPM,
		TempoBPM:          rec.Technical.BPM,
		BPM:               rec.Technical.BPM,
		TempoSource:       rec.Technical.BPMSource,
		TempoAltHalfBPM:   rec.Technical.BPMAltHalf,
		TempoAltDoubleBPM: rec.Technical.BPMAltDouble,

		Creative: sidecarCreative{
			Mood:                 emptyIfNil(rec.Creative.Mood),
			Genre:                emptyIfNil(rec.Creative.Genre),
			Theme:                emptyIfNil(rec.Creative.Theme),
			SuggestedInstruments: emptyIfNil(rec.Creative.SuggestedInstruments),
			Vocals:               emptyIfNil(rec.Creative.Vocals),
			LyricThemes:          emptyIfNil(rec.Creative.LyricThemes),
			Narrative:            rec.Creative.Narrative,
			Confidence:           rec.Creative.Confidence,
		},
		CreativeStatus: rec.CreativeStatus,

		Instruments:      emptyIfNil(rec.Analysis.Instruments),
		FinalInstruments: emptyIfNil(rec.Analysis.FinalInstruments),
		Ensemble: sidecarEnsemble{
			UsedDemucs:         rec.Analysis.UsedDemucs,
			Mode:               rec.Analysis.Mode,
			DecisionTrace:      rec.Analysis.DecisionTrace,
			ElectronicElements: rec.Analysis.ElectronicElements,
		},

		WaveformPNG: rec.WaveformPNG,
	}
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
