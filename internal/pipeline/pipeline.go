// Package pipeline wires the concrete phase implementations into a
// scheduler: ffprobe/tags/probes/tempo for the technical phase, the local
// LLM client for the creative phase, the ensemble classifier for
// instrumentation, and the writer plus library store for persistence.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"rhythm/internal/config"
	"rhythm/internal/creative"
	"rhythm/internal/ensemble"
	"rhythm/internal/library"
	"rhythm/internal/logging"
	"rhythm/internal/media/ffprobe"
	"rhythm/internal/media/pcm"
	"rhythm/internal/media/tags"
	"rhythm/internal/probes"
	"rhythm/internal/queue"
	"rhythm/internal/scheduler"
	"rhythm/internal/services"
	"rhythm/internal/tempo"
	"rhythm/internal/trackwriter"
)

// New builds a fully wired scheduler. The ledger may be nil.
func New(cfg *config.Config, ledger *queue.Store, logger *slog.Logger) *scheduler.Scheduler {
	decoder := pcm.NewDecoder(cfg.Tools.FFmpeg)
	runners := scheduler.Runners{
		Technical: &technicalRunner{
			ffprobeBin: cfg.Tools.FFprobe,
			probeRunner: probes.NewSubprocessRunner(
				cfg.Tools.ClassifierPython,
				cfg.Tools.ClassifierScript,
				time.Duration(cfg.Probes.WindowTimeoutSeconds)*time.Second,
				logger,
			),
			estimator: tempo.NewEstimator(decoder, logger),
			logger:    logging.NewComponentLogger(logger, "technical"),
		},
		Creative: &creativeRunner{
			client: creative.NewClient(creative.Config{
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
				DiagnosticsDir: cfg.DiagnosticsDir(),
			}, logger),
		},
		Instrumentation: &instrumentationRunner{
			client: ensemble.NewClient(
				cfg.Tools.ClassifierPython,
				cfg.Tools.ClassifierScript,
				cfg.Tools.UseDemucs,
				logger,
			),
		},
	}

	var generator trackwriter.WaveformGenerator
	if cfg.Paths.WaveformDir != "" {
		generator = trackwriter.FFmpegWaveform{Binary: cfg.Tools.FFmpeg}
	}
	persister := &storePersister{
		writer: trackwriter.NewWriter(cfg.Paths.WaveformDir, generator, logger),
		store:  library.NewStore(cfg.MainStorePath(), cfg.CriteriaStorePath(), logger),
	}

	return scheduler.New(cfg, runners, persister, ledger, logger)
}

type technicalRunner struct {
	ffprobeBin  string
	probeRunner probes.Runner
	estimator   *tempo.Estimator
	logger      *slog.Logger
}

func (r *technicalRunner) Run(ctx context.Context, path string) (scheduler.TechnicalOutput, error) {
	var out scheduler.TechnicalOutput

	probe, err := ffprobe.Inspect(ctx, r.ffprobeBin, path)
	if err != nil {
		return out, services.Wrap(services.ErrProbeFailed, "technical", "inspect", "container probe failed", err)
	}
	duration := probe.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return out, services.Wrap(services.ErrProbeFailed, "technical", "inspect", "container reported no duration", nil)
	}
	stream, ok := probe.PrimaryAudio()
	if !ok {
		return out, services.Wrap(services.ErrProbeFailed, "technical", "inspect", "no audio stream", nil)
	}

	tagMap, err := tags.Read(path)
	if err != nil {
		r.logger.Debug("tag read failed; continuing with empty tags",
			logging.String("path", path),
			logging.Error(err),
		)
		tagMap = tags.TagMap{}
	}

	hints := r.probeRunner.Run(ctx, path, duration)
	estimate := r.estimator.Estimate(ctx, path, duration, hints, tagMap)

	title := tagMap.Title
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	out.Tech = trackwriter.Technical{
		Facts: library.Technical{
			DurationSec:   duration,
			SampleRateHz:  stream.SampleRateHz(),
			Channels:      stream.Channels,
			BitRate:       probe.BitRate(),
			Codec:         stream.CodecName,
			HasWavVersion: trackwriter.HasWavSibling(path),
			Tags:          tagMap,
			BPM:           estimate.BPM,
			EstimatedBPM:  estimate.EstimatedBPM,
			BPMSource:     estimate.Source,
			BPMAltHalf:    estimate.AltHalf,
			BPMAltDouble:  estimate.AltDouble,
		},
		Title: title,
	}
	out.Hints = hints
	return out, nil
}

type creativeRunner struct {
	client *creative.Client
}

func (r *creativeRunner) Run(ctx context.Context, in creative.Input) (creative.Facts, string) {
	return r.client.Describe(ctx, in)
}

type instrumentationRunner struct {
	client *ensemble.Client
}

func (r *instrumentationRunner) Run(ctx context.Context, path string, _ []string) ensemble.Result {
	// Creative suggestions stay advisory; the classifier derives everything
	// from the signal.
	return r.client.Analyze(ctx, path)
}

type storePersister struct {
	writer *trackwriter.Writer
	store  *library.Store
}

func (p *storePersister) Persist(ctx context.Context, path string, tech trackwriter.Technical, creativeOut trackwriter.CreativeOutput, instr ensemble.Result, finalInstruments []string) (library.Record, error) {
	rec := p.writer.Assemble(path, tech, creativeOut, instr, finalInstruments)
	rec.WaveformPNG = p.writer.EnsureWaveform(ctx, path)

	if err := p.writer.WriteSidecar(rec); err != nil {
		return rec, err
	}
	if err := p.store.Upsert(rec); err != nil {
		return rec, err
	}
	if _, err := p.store.RebuildCriteria(); err != nil {
		return rec, err
	}
	return rec, nil
}
