// Package onset provides the default beat detector: an energy-flux onset
// picker with an autocorrelation-based global tempo estimate.
package onset

import (
	"errors"
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

const (
	defaultFrameSize = 1024
	defaultHopSize   = 512

	// minOnsetGapSec keeps picked onsets at least this far apart, which caps
	// the reportable pulse at 240 BPM.
	minOnsetGapSec = 0.25

	// thresholdK scales the adaptive threshold above the local envelope mean.
	thresholdK = 1.5

	// Lag search range for the global tempo estimate, in BPM.
	minTempoBPM = 40.0
	maxTempoBPM = 240.0
)

// Detector implements ports.BeatDetector and ports.TempoEstimator on raw
// mono samples.
type Detector struct {
	frameSize int
	hopSize   int
}

var (
	_ ports.BeatDetector   = (*Detector)(nil)
	_ ports.TempoEstimator = (*Detector)(nil)
)

// NewDetector constructs a detector with the default framing.
func NewDetector() *Detector {
	return &Detector{frameSize: defaultFrameSize, hopSize: defaultHopSize}
}

// DetectPulses returns ordered onset timestamps in seconds. It computes a
// half-wave-rectified energy flux envelope, thresholds it adaptively against
// a sliding local mean and deviation, and picks peaks separated by at least
// minOnsetGapSec.
func (d *Detector) DetectPulses(samples []float64, sampleRate int) ([]float64, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil, errors.New("onset: empty signal")
	}

	envelope := d.fluxEnvelope(samples)
	if len(envelope) == 0 {
		return nil, nil
	}

	hopSec := float64(d.hopSize) / float64(sampleRate)
	minGapFrames := int(minOnsetGapSec/hopSec) + 1

	var beats []float64
	lastPick := -minGapFrames
	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] <= envelope[i-1] || envelope[i] < envelope[i+1] {
			continue // not a local peak
		}
		if envelope[i] < threshold(envelope, i, int(1.0/hopSec)) {
			continue
		}
		if i-lastPick < minGapFrames {
			continue
		}
		beats = append(beats, float64(i)*hopSec+float64(d.frameSize)/(2*float64(sampleRate)))
		lastPick = i
	}
	return beats, nil
}

// EstimateTempo autocorrelates the flux envelope over lags corresponding to
// 40–240 BPM and returns the BPM of the strongest lag.
func (d *Detector) EstimateTempo(samples []float64, sampleRate int) (float64, error) {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0, errors.New("onset: empty signal")
	}

	envelope := d.fluxEnvelope(samples)
	hopSec := float64(d.hopSize) / float64(sampleRate)

	minLag := int(60.0 / maxTempoBPM / hopSec)
	maxLag := int(60.0 / minTempoBPM / hopSec)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if maxLag <= minLag {
		return 0, errors.New("onset: signal too short for a tempo estimate")
	}

	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var score float64
		for i := lag; i < len(envelope); i++ {
			score += envelope[i] * envelope[i-lag]
		}
		score /= float64(len(envelope) - lag)
		if score > bestScore {
			bestLag, bestScore = lag, score
		}
	}
	if bestLag == 0 || bestScore <= 0 {
		return 0, errors.New("onset: no periodicity found")
	}
	return 60.0 / (float64(bestLag) * hopSec), nil
}

// fluxEnvelope is the half-wave-rectified frame-to-frame energy difference.
func (d *Detector) fluxEnvelope(samples []float64) []float64 {
	var energies []float64
	for start := 0; start+d.frameSize <= len(samples); start += d.hopSize {
		var sum float64
		for _, v := range samples[start : start+d.frameSize] {
			sum += v * v
		}
		energies = append(energies, sum/float64(d.frameSize))
	}
	if len(energies) < 2 {
		return nil
	}

	flux := make([]float64, len(energies))
	for i := 1; i < len(energies); i++ {
		if diff := energies[i] - energies[i-1]; diff > 0 {
			flux[i] = diff
		}
	}
	return flux
}

// threshold is the sliding local mean plus thresholdK deviations around
// frame i. window is the one-sided neighborhood in frames, normally one
// second's worth.
func threshold(envelope []float64, i, window int) float64 {
	if window < 8 {
		window = 8
	}
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	hi := i + window
	if hi > len(envelope)-1 {
		hi = len(envelope) - 1
	}

	var mean float64
	for _, v := range envelope[lo : hi+1] {
		mean += v
	}
	n := float64(hi - lo + 1)
	mean /= n

	var variance float64
	for _, v := range envelope[lo : hi+1] {
		dv := v - mean
		variance += dv * dv
	}
	return mean + thresholdK*math.Sqrt(variance/n)
}
