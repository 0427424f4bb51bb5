package tempo

import (
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// onsetEnvelope computes a rectified, peak-normalized energy-difference
// envelope: per-frame energy, first difference, negative values clipped.
func onsetEnvelope(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return nil
	}
	frameCount := 1 + (len(samples)-frameSize)/hopSize
	energies := make([]float64, frameCount)
	for i := 0; i < frameCount; i++ {
		start := i * hopSize
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		energies[i] = sum
	}

	if frameCount < 2 {
		return nil
	}
	envelope := make([]float64, frameCount-1)
	for i := 1; i < frameCount; i++ {
		diff := energies[i] - energies[i-1]
		if diff < 0 {
			diff = 0
		}
		envelope[i-1] = diff
	}

	peak := floats.Max(envelope)
	if peak > 0 {
		floats.Scale(1/peak, envelope)
	}
	return envelope
}

// autocorrelate computes the autocorrelation of x via FFT.
func autocorrelate(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	// Zero-pad to avoid circular wrap-around.
	padded := make([]float64, 2*n)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	corr := fft.IFFT(spectrum)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = real(corr[i])
	}
	return out
}

// peakLags returns the lag of the highest local maximum of ac within
// [minLag, maxLag], its value, and the value of the second-highest local
// maximum (0 when there is none). ok is false when no local maximum exists
// in the range.
func peakLags(ac []float64, minLag, maxLag int) (bestLag int, bestVal float64, secondVal float64, ok bool) {
	if minLag < 1 {
		minLag = 1
	}
	if maxLag > len(ac)-2 {
		maxLag = len(ac) - 2
	}
	bestLag = -1
	for lag := minLag; lag <= maxLag; lag++ {
		if ac[lag] <= ac[lag-1] || ac[lag] < ac[lag+1] {
			continue
		}
		switch {
		case bestLag < 0 || ac[lag] > bestVal:
			if bestLag >= 0 {
				secondVal = bestVal
			}
			bestLag = lag
			bestVal = ac[lag]
		case ac[lag] > secondVal:
			secondVal = ac[lag]
		}
	}
	if bestLag < 0 {
		return 0, 0, 0, false
	}
	return bestLag, bestVal, secondVal, true
}
