// Package trackwriter assembles the final track record from the three
// phases' outputs and writes the per-file JSON projection beside the audio.
package trackwriter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rhythm/internal/creative"
	"rhythm/internal/ensemble"
	"rhythm/internal/fileutil"
	"rhythm/internal/library"
	"rhythm/internal/logging"
	"rhythm/internal/services"
	"rhythm/internal/trackkey"
)

// Technical is the technical phase's output handed to the writer.
type Technical struct {
	Facts library.Technical
	Title string
}

// CreativeOutput pairs the normalized facts with the status string.
type CreativeOutput struct {
	Facts  creative.Facts
	Status string
}

// WaveformGenerator renders a waveform image for an audio file.
type WaveformGenerator interface {
	Generate(ctx context.Context, audioPath, outPath string) error
}

// FFmpegWaveform renders waveforms with ffmpeg's showwavespic filter.
type FFmpegWaveform struct {
	Binary string
}

// Generate writes a waveform PNG for audioPath at outPath.
func (g FFmpegWaveform) Generate(ctx context.Context, audioPath, outPath string) error {
	binary := strings.TrimSpace(g.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-nostdin",
		"-i", audioPath,
		"-filter_complex", "showwavespic=s=1200x200:colors=0x3b82f6",
		"-frames:v", "1",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.New("waveform render: " + strings.TrimSpace(string(output)))
	}
	return nil
}

// Writer persists finished track records.
type Writer struct {
	waveformDir string
	generator   WaveformGenerator
	logger      *slog.Logger
	now         func() time.Time
}

// NewWriter constructs a writer. waveformDir may be empty to skip waveform
// generation; generator may be nil for the same effect.
func NewWriter(waveformDir string, generator WaveformGenerator, logger *slog.Logger) *Writer {
	return &Writer{
		waveformDir: strings.TrimSpace(waveformDir),
		generator:   generator,
		logger:      logging.NewComponentLogger(logger, "trackwriter"),
		now:         time.Now,
	}
}

// Assemble builds the store record from the phase outputs, using defaults
// for whichever background phase failed.
func (w *Writer) Assemble(path string, tech Technical, creativeOut CreativeOutput, instr ensemble.Result, finalInstruments []string) library.Record {
	key := trackkey.Normalize(path)
	rec := library.Record{
		Key:        key,
		Path:       path,
		File:       filepath.Base(path),
		AnalyzedAt: w.now().UTC().Format(time.RFC3339),
		Technical:  tech.Facts,
		Creative: library.Creative{
			Genre:                creativeOut.Facts.Genre,
			Mood:                 creativeOut.Facts.Mood,
			Theme:                creativeOut.Facts.Theme,
			SuggestedInstruments: creativeOut.Facts.SuggestedInstruments,
			Vocals:               creativeOut.Facts.Vocals,
			LyricThemes:          creativeOut.Facts.LyricThemes,
			Narrative:            creativeOut.Facts.Narrative,
			Confidence:           creativeOut.Facts.Confidence,
		},
		CreativeStatus: creativeOut.Status,
		Analysis: library.Analysis{
			Instruments:        instr.Instruments,
			FinalInstruments:   finalInstruments,
			UsedDemucs:         instr.UsedDemucs,
			Mode:               instr.Mode,
			DecisionTrace:      instr.Trace.Raw,
			ElectronicElements: instr.ElectronicElements,
		},
	}
	if rec.Analysis.Instruments == nil {
		rec.Analysis.Instruments = []string{}
	}
	if rec.Analysis.FinalInstruments == nil {
		rec.Analysis.FinalInstruments = []string{}
	}
	return rec
}

// EnsureWaveform computes the deterministic cache path and renders the image
// when missing. Returns the path, or "" when generation is unavailable.
func (w *Writer) EnsureWaveform(ctx context.Context, audioPath string) string {
	if w.waveformDir == "" || w.generator == nil {
		return ""
	}
	outPath := filepath.Join(w.waveformDir, trackkey.WaveformName(audioPath))
	if _, err := os.Stat(outPath); err == nil {
		return outPath
	}
	if err := w.generator.Generate(ctx, audioPath, outPath); err != nil {
		w.logger.Warn("waveform generation failed",
			logging.Error(err),
			logging.String("path", audioPath),
			logging.String(logging.FieldEventType, "waveform_failed"),
			logging.String(logging.FieldErrorHint, "check ffmpeg availability"),
		)
		return ""
	}
	return outPath
}

// WriteSidecar writes the per-file JSON projection (<stem>.json beside the
// audio) atomically. The projection is always rewritten from the record.
func (w *Writer) WriteSidecar(rec library.Record) error {
	projection := sidecarFromRecord(rec)
	data, err := json.MarshalIndent(projection, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStoreIO, "trackwriter", "sidecar", "encode projection", err)
	}
	sidecarPath := strings.TrimSuffix(rec.Path, filepath.Ext(rec.Path)) + ".json"
	if err := fileutil.WriteFileAtomic(sidecarPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrStoreIO, "trackwriter", "sidecar", "write projection", err)
	}
	return nil
}

// HasWavSibling reports whether a .wav file with the same stem sits beside
// the source file.
func HasWavSibling(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".wav", ".WAV"} {
		if _, err := os.Stat(stem + ext); err == nil {
			return true
		}
	}
	return false
}
