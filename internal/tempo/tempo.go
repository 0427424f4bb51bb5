// Package tempo estimates a single BPM value for a track. Two strategies run
// in order: a three-window onset-autocorrelation pass and a centered
// autocorrelation fallback. A parseable TBPM tag overrides both.
package tempo

import (
	"context"
	"log/slog"
	"math"

	"rhythm/internal/logging"
	"rhythm/internal/media/pcm"
	"rhythm/internal/media/tags"
	"rhythm/internal/probes"
)

const (
	// Estimator output is clamped to this plausible musical range. TBPM tag
	// overrides may carry any value in [1,399].
	minBPM = 50
	maxBPM = 200

	decodeSampleRate = 44100
)

// Source labels how the final BPM was produced.
const (
	SourceThirds = "thirds"
	SourceACF    = "acf"
	SourceID3    = "id3"
)

// Estimate is the tempo result carried on the track record.
type Estimate struct {
	// BPM is the final value after any tag override; 0 means unknown.
	BPM int
	// EstimatedBPM is the raw estimator output before the tag override.
	EstimatedBPM int
	Source       string
	Confidence   float64
	AltHalf      int
	AltDouble    int
}

// Known reports whether a BPM was produced.
func (e Estimate) Known() bool { return e.BPM > 0 }

// Estimator runs the two-strategy tempo analysis.
type Estimator struct {
	decoder *pcm.Decoder
	logger  *slog.Logger
}

// NewEstimator constructs an estimator around the shared PCM decoder.
func NewEstimator(decoder *pcm.Decoder, logger *slog.Logger) *Estimator {
	return &Estimator{
		decoder: decoder,
		logger:  logging.NewComponentLogger(logger, "tempo"),
	}
}

// Estimate produces the track BPM. Estimation failures are non-fatal: the
// zero Estimate means no tempo.
func (e *Estimator) Estimate(ctx context.Context, path string, durationSec float64, hints probes.Result, tagMap tags.TagMap) Estimate {
	var est Estimate

	if bpm, ok := e.estimateThirds(ctx, path, durationSec, hints); ok {
		est = Estimate{BPM: bpm, EstimatedBPM: bpm, Source: SourceThirds}
	} else if bpm, conf, ok := e.estimateACF(ctx, path, durationSec, hints); ok {
		est = Estimate{BPM: bpm, EstimatedBPM: bpm, Source: SourceACF, Confidence: conf}
	}

	if tagBPM, ok := tagMap.TBPMValue(); ok {
		est.BPM = tagBPM
		est.Source = SourceID3
	}

	if est.BPM > 0 {
		if half := int(math.Round(float64(est.BPM) / 2)); half >= minBPM && half <= maxBPM {
			est.AltHalf = half
		}
		if double := int(math.Round(float64(est.BPM) * 2)); double >= minBPM && double <= maxBPM {
			est.AltDouble = double
		}
	}

	if !est.Known() {
		e.logger.Debug("tempo estimation produced no value", logging.String("path", path))
	}
	return est
}

// foldToRange folds a BPM into [70,180] by repeated doubling and halving.
func foldToRange(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	for bpm < 70 {
		bpm *= 2
	}
	for bpm > 180 {
		bpm /= 2
	}
	return bpm
}

// normalizePercussive applies the drum-aware octave correction to a folded
// window BPM.
func normalizePercussive(folded float64, drums bool) float64 {
	if drums {
		if folded >= 70 && folded <= 95 {
			if doubled := folded * 2; doubled >= 100 && doubled <= 190 {
				return doubled
			}
		}
		return folded
	}
	if folded >= 135 && folded <= 170 {
		if halved := folded / 2; halved >= 68 && halved <= 100 {
			return halved
		}
	}
	return folded
}
