package tempo

import (
	"context"
	"math"

	"rhythm/internal/logging"
	"rhythm/internal/media/pcm"
	"rhythm/internal/probes"
)

const (
	acfFrameSize      = 1024
	acfHopSize        = 256
	acfDownsample     = 2
	rockBiasThreshold = 110
	rockBiasRawFloor  = 120
)

// estimateACF is the fallback strategy: one centered window, downsampled by
// two, onset envelope, autocorrelation over the [50,200] BPM lag range.
func (e *Estimator) estimateACF(ctx context.Context, path string, durationSec float64, hints probes.Result) (int, float64, bool) {
	if durationSec <= 0 {
		return 0, 0, false
	}

	windowSec := math.Min(60, math.Max(20, math.Floor(0.4*durationSec)))
	offset := durationSec/2 - windowSec/2
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
		if ctx.Err() == nil {
			e.logger.Debug("acf window decode failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
		return 0, 0, false
	}

	downsampled := make([]float64, 0, len(samples)/acfDownsample)
	for i := 0; i < len(samples); i += acfDownsample {
		downsampled = append(downsampled, samples[i])
	}
	rate := decodeSampleRate / acfDownsample

	envelope := onsetEnvelope(downsampled, acfFrameSize, acfHopSize)
	if len(envelope) == 0 {
		return 0, 0, false
	}
	fps := float64(rate) / float64(acfHopSize)

	minLag := int(60 * fps / maxBPM)
	maxLag := int(60 * fps / minBPM)
	ac := autocorrelate(envelope)
	lag, best, second, ok := peakLags(ac, minLag, maxLag)
	if !ok || lag == 0 {
		return 0, 0, false
	}

	raw := 60 * fps / float64(lag)
	chosen := pickOctave(raw)

	confidence := 0.0
	if best+second > 0 {
		confidence = best / (best + second)
	}

	// Rock bias: strummed and brass-heavy material reads at half tempo; trust
	// the raw peak when it lands in driving-rock territory.
	if (hints.HasHint("guitar") || hints.HasHint("brass")) &&
		chosen < rockBiasThreshold && raw >= rockBiasRawFloor {
		chosen = int(math.Round(raw))
	}

	return chosen, confidence, true
}

// pickOctave selects among {raw, raw/2, raw*2} the in-range candidate closest
// to the raw peak.
func pickOctave(raw float64) int {
	best := 0.0
	bestDiff := math.Inf(1)
	for _, candidate := range []float64{raw, raw / 2, raw * 2} {
		if candidate < minBPM || candidate > maxBPM {
			continue
		}
		if diff := math.Abs(candidate - raw); diff < bestDiff {
			best = candidate
			bestDiff = diff
		}
	}
	if best == 0 {
		// Raw fell outside the range entirely; fold it in.
		folded := raw
		for folded > maxBPM {
			folded /= 2
		}
		for folded < minBPM {
			folded *= 2
		}
		best = folded
	}
	return int(math.Round(best))
}
