package analysis

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

// energyFloor clamps frame RMS before the logarithm so silence maps to a
// finite -100 dBFS instead of -Inf.
const energyFloor = 1e-5

// FeatureExtractor converts raw samples into a tempo curve and a loudness
// curve.
type FeatureExtractor struct {
	detector ports.BeatDetector
	cfg      Config
}

// NewFeatureExtractor constructs an extractor around the given beat detector.
func NewFeatureExtractor(detector ports.BeatDetector, cfg Config) *FeatureExtractor {
	return &FeatureExtractor{detector: detector, cfg: cfg}
}

// Extract produces both curves for one recording. A signal shorter than one
// analysis window fails with ErrInsufficientData; fewer than two detected
// beats yields an empty tempo curve, which downstream stages treat as
// "no tempo signal".
func (e *FeatureExtractor) Extract(signal domain.AudioSignal) (domain.TempoCurve, domain.LoudnessCurve, error) {
	if signal.Empty() {
		return nil, domain.LoudnessCurve{}, fmt.Errorf("analysis: %w", domain.ErrInvalidInput)
	}
	if len(signal.Samples) < e.cfg.WindowSize {
		return nil, domain.LoudnessCurve{}, domain.InsufficientDataError{
			Reason: fmt.Sprintf("signal of %d samples is shorter than one %d-sample analysis frame", len(signal.Samples), e.cfg.WindowSize),
		}
	}

	loudness := e.loudnessCurve(signal)

	beats, err := e.detector.DetectPulses(signal.Samples, signal.SampleRate)
	if err != nil {
		return nil, domain.LoudnessCurve{}, fmt.Errorf("analysis: beat detection: %w", err)
	}
	tempo := e.tempoCurve(beats)

	return tempo, loudness, nil
}

// tempoCurve derives instantaneous BPM from consecutive beat timestamps. The
// curve point sits at the midpoint of each inter-beat interval.
func (e *FeatureExtractor) tempoCurve(beats []float64) domain.TempoCurve {
	if len(beats) < 2 {
		return nil
	}

	curve := make(domain.TempoCurve, 0, len(beats)-1)
	for i := 0; i+1 < len(beats); i++ {
		dt := beats[i+1] - beats[i]
		if dt <= 0 {
			// Detector produced a non-increasing timestamp; drop the pair.
			continue
		}
		bpm := 60.0 / dt
		if bpm < e.cfg.MinBPM {
			bpm = e.cfg.MinBPM
		}
		if bpm > e.cfg.MaxBPM {
			bpm = e.cfg.MaxBPM
		}
		curve = append(curve, domain.TempoPoint{
			T:   (beats[i] + beats[i+1]) / 2,
			BPM: bpm,
		})
	}
	if len(curve) == 0 {
		return nil
	}

	raw := make([]float64, len(curve))
	for i, p := range curve {
		raw[i] = p.BPM
	}
	smooth := movingAverage(raw, e.cfg.TempoSmooth)
	for i := range curve {
		curve[i].BPMSmooth = smooth[i]
	}
	return curve
}

// loudnessCurve frames the signal and computes RMS energy per frame in dBFS.
func (e *FeatureExtractor) loudnessCurve(signal domain.AudioSignal) domain.LoudnessCurve {
	win, hop := e.cfg.WindowSize, e.cfg.HopSize
	rate := float64(signal.SampleRate)
	hopSec := float64(hop) / rate

	var dbs []float64
	var times []float64
	for start := 0; start+win <= len(signal.Samples); start += hop {
		frame := signal.Samples[start : start+win]
		var sum float64
		for _, v := range frame {
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(win))
		if rms < energyFloor {
			rms = energyFloor
		}
		dbs = append(dbs, 20*math.Log10(rms))
		times = append(times, (float64(start)+float64(win)/2)/rate)
	}

	dbs = movingAverage(dbs, e.cfg.LoudnessSmooth)

	points := make([]domain.LoudnessPoint, len(dbs))
	for i := range dbs {
		points[i] = domain.LoudnessPoint{T: times[i], DB: dbs[i]}
	}
	return domain.LoudnessCurve{Hop: hopSec, Points: points}
}

// movingAverage returns a centered moving average of width w, truncated at
// the edges. A width below 2, or a series shorter than the width, is returned
// unchanged.
func movingAverage(vals []float64, w int) []float64 {
	if w < 2 || len(vals) < w {
		return vals
	}
	half := w / 2
	out := make([]float64, len(vals))
	for i := range vals {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}
		var sum float64
		for _, v := range vals[lo : hi+1] {
			sum += v
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
