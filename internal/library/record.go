// Package library owns the aggregated track store and its faceted criteria
// projection. Both files are single-writer, guarded by a file lock, and
// always written via tmp-and-rename.
package library

import (
	"encoding/json"

	"rhythm/internal/ensemble"
	"rhythm/internal/media/tags"
)

// Technical carries the container, tag, and tempo facts for a track.
type Technical struct {
	DurationSec   float64     `json:"duration_sec"`
	SampleRateHz  int         `json:"sample_rate_hz"`
	Channels      int         `json:"channels"`
	BitRate       int64       `json:"bit_rate"`
	Codec         string      `json:"codec"`
	HasWavVersion bool        `json:"has_wav_version"`
	Tags          tags.TagMap `json:"tags"`
	BPM           int         `json:"bpm,omitempty"`
	EstimatedBPM  int         `json:"estimated_bpm,omitempty"`
	BPMSource     string      `json:"bpm_source,omitempty"`
	BPMAltHalf    int         `json:"bpm_alt_half,omitempty"`
	BPMAltDouble  int         `json:"bpm_alt_double,omitempty"`
}

// Creative carries the normalized creative description plus the legacy
// instrument field older records may still hold.
type Creative struct {
	Genre                []string `json:"genre"`
	Mood                 []string `json:"mood"`
	Theme                []string `json:"theme"`
	SuggestedInstruments []string `json:"suggestedInstruments"`
	Vocals               []string `json:"vocals"`
	LyricThemes          []string `json:"lyricThemes"`
	Narrative            string   `json:"narrative,omitempty"`
	Confidence           float64  `json:"confidence"`
	Instrument           []string `json:"instrument,omitempty"`
}

// Analysis carries the instrumentation outputs.
type Analysis struct {
	Instruments        []string                     `json:"instruments"`
	FinalInstruments   []string                     `json:"final_instruments"`
	UsedDemucs         bool                         `json:"used_demucs"`
	Mode               string                       `json:"mode,omitempty"`
	DecisionTrace      json.RawMessage              `json:"decision_trace,omitempty"`
	ElectronicElements *ensemble.ElectronicElements `json:"electronic_elements,omitempty"`
}

// Record is one track's entry in the main store.
type Record struct {
	Key            string    `json:"key"`
	Path           string    `json:"path"`
	File           string    `json:"file"`
	AnalyzedAt     string    `json:"analyzed_at,omitempty"`
	CreatedAt      string    `json:"created_at,omitempty"`
	UpdatedAt      string    `json:"updated_at,omitempty"`
	Technical      Technical `json:"technical"`
	Creative       Creative  `json:"creative"`
	CreativeStatus string    `json:"creative_status,omitempty"`
	Analysis       Analysis  `json:"analysis"`
	WaveformPNG    string    `json:"waveform_png,omitempty"`

	// Legacy root-level instrument lists from earlier record layouts. They
	// participate in precedence resolution but are never written anew.
	RootInstruments      []string `json:"instruments,omitempty"`
	RootFinalInstruments []string `json:"finalInstruments,omitempty"`
}

// InstrumentPrecedence resolves which list represents the track's
// instruments. Highest wins, first non-empty:
// analysis.final_instruments > analysis.instruments > root finalInstruments >
// root instruments > creative.suggestedInstruments > creative.instrument.
func InstrumentPrecedence(rec Record) []string {
	for _, list := range [][]string{
		rec.Analysis.FinalInstruments,
		rec.Analysis.Instruments,
		rec.RootFinalInstruments,
		rec.RootInstruments,
		rec.Creative.SuggestedInstruments,
		rec.Creative.Instrument,
	} {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// MainStore is the on-disk shape of RhythmDB.json.
type MainStore struct {
	Tracks map[string]Record `json:"tracks"`
}

// CriteriaStore is the on-disk shape of CriteriaDB.json.
type CriteriaStore struct {
	Genre              []string `json:"genre"`
	Mood               []string `json:"mood"`
	Instrument         []string `json:"instrument"`
	Vocals             []string `json:"vocals"`
	Theme              []string `json:"theme"`
	TempoBands         []string `json:"tempo_bands"`
	Keys               []string `json:"keys"`
	Artists            []string `json:"artists"`
	ElectronicElements []string `json:"electronic_elements"`
}
