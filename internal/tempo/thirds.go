package tempo

import (
	"context"
	"math"

	"rhythm/internal/logging"
	"rhythm/internal/media/pcm"
	"rhythm/internal/probes"
)

const (
	thirdsFrameSize = 2048
	thirdsHopSize   = 512
	// A pull shorter than this triggers the one-time window widen.
	minWindowAudioSec = 6.0
	maxWindowSec      = 60.0
	widenFactor       = 1.5
)

// estimateThirds samples three windows (start, middle, end), estimates a BPM
// per window from an onset-envelope autocorrelation, folds each into
// [70,180] with percussion-aware octave correction, and returns the rounded
// mean of the available windows.
func (e *Estimator) estimateThirds(ctx context.Context, path string, durationSec float64, hints probes.Result) (int, bool) {
	if durationSec <= 0 {
		return 0, false
	}

	third := durationSec / 3
	windowSec := third / 4
	if windowSec > maxWindowSec {
		windowSec = maxWindowSec
	}
	drums := hints.HasHint("drum")

	widened := false
	var windowBPMs []float64
	for i := 0; i < 3; i++ {
		offset := float64(i)*third + (third-windowSec)/2
		if offset < 0 {
			offset = 0
		}

		samples, err := e.decoder.Decode(ctx, pcm.Request{
			Path:       path,
			OffsetSec:  offset,
			LengthSec:  windowSec,
			SampleRate: decodeSampleRate,
		})
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			e.logger.Debug("thirds window decode failed",
				logging.String("path", path),
				logging.Float64("offset_sec", offset),
				logging.Error(err),
			)
			continue
		}

		if !widened && float64(len(samples)) < minWindowAudioSec*decodeSampleRate {
			widened = true
			windowSec = math.Min(windowSec*widenFactor, maxWindowSec)
			wider, err := e.decoder.Decode(ctx, pcm.Request{
				Path:       path,
				OffsetSec:  offset,
				LengthSec:  windowSec,
				SampleRate: decodeSampleRate,
			})
			if err == nil {
				samples = wider
			}
		}

		raw, ok := windowBPM(samples, decodeSampleRate)
		if !ok {
			continue
		}
		folded := normalizePercussive(foldToRange(raw), drums)
		windowBPMs = append(windowBPMs, folded)
	}

	if len(windowBPMs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, bpm := range windowBPMs {
		sum += bpm
	}
	mean := sum / float64(len(windowBPMs))
	return int(math.Round(mean)), true
}

// windowBPM estimates a raw BPM for one window via autocorrelation of the
// onset envelope.
func windowBPM(samples []float64, sampleRate int) (float64, bool) {
	envelope := onsetEnvelope(samples, thirdsFrameSize, thirdsHopSize)
	if len(envelope) == 0 {
		return 0, false
	}
	fps := float64(sampleRate) / float64(thirdsHopSize)

	// Search lags spanning 40..240 BPM; folding narrows the octave later.
	minLag := int(60 * fps / 240)
	maxLag := int(60 * fps / 40)
	ac := autocorrelate(envelope)
	lag, _, _, ok := peakLags(ac, minLag, maxLag)
	if !ok || lag == 0 {
		return 0, false
	}
	return 60 * fps / float64(lag), true
}
