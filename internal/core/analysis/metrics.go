package analysis

import (
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// MetricsComputer applies a warping path to the tempo and loudness curves of
// both recordings and produces aligned difference statistics.
type MetricsComputer struct {
	cfg Config
}

// NewMetricsComputer constructs a metrics computer with the given tuning.
func NewMetricsComputer(cfg Config) *MetricsComputer {
	return &MetricsComputer{cfg: cfg}
}

// Compute walks the warping path, producing per-position tempo and loudness
// diffs on a synthetic aligned-time axis. Tempo curves are resampled onto the
// alignment's loudness grid first; positions falling outside a tempo curve's
// bounds are excluded from tempo statistics and from the serialized aligned
// curves, while loudness statistics and overlap cover the whole path.
func (m *MetricsComputer) Compute(al *Alignment, studentTempo, referenceTempo domain.TempoCurve) domain.ComparisonMetrics {
	tempoS := sampleTempo(studentTempo, al.Student.Points)
	tempoR := sampleTempo(referenceTempo, al.Ref.Points)

	var curves domain.AlignedCurves
	var absBPMSum, bpmSum float64
	var tempoDiffs []float64
	var absDBSum float64
	var loudDiffs []float64

	for k, pair := range al.Path {
		ldiff := al.Student.Points[pair.I].DB - al.Ref.Points[pair.J].DB
		absDBSum += math.Abs(ldiff)
		loudDiffs = append(loudDiffs, ldiff)

		ts, tr := tempoS[pair.I], tempoR[pair.J]
		if math.IsNaN(ts) || math.IsNaN(tr) {
			continue
		}
		tdiff := ts - tr
		absBPMSum += math.Abs(tdiff)
		bpmSum += tdiff
		tempoDiffs = append(tempoDiffs, tdiff)

		curves.T = append(curves.T, float64(k)*al.Hop)
		curves.TempoDiff = append(curves.TempoDiff, tdiff)
		curves.LoudnessDiffDB = append(curves.LoudnessDiffDB, ldiff)
	}

	out := domain.ComparisonMetrics{
		OverlapSec:        float64(len(al.Path)) * al.Hop,
		MeanAbsDBDiff:     absDBSum / float64(len(al.Path)),
		LoudnessDiffStd:   std(loudDiffs),
		TempoDiffStd:      std(tempoDiffs),
		StudentStability:  StabilityCV(studentTempo),
		RefStability:      StabilityCV(referenceTempo),
		StudentDynRangeDB: al.Student.DynamicRange(),
		RefDynRangeDB:     al.Ref.DynamicRange(),
		Curves:            curves,
	}
	if len(tempoDiffs) > 0 {
		out.MeanAbsBPMDiff = absBPMSum / float64(len(tempoDiffs))
		out.MeanBPMDiff = bpmSum / float64(len(tempoDiffs))
	}
	return out
}

// sampleTempo linearly interpolates a tempo curve at each loudness frame
// time. Frames before the first or after the last tempo point get NaN so the
// caller can exclude them.
func sampleTempo(curve domain.TempoCurve, frames []domain.LoudnessPoint) []float64 {
	out := make([]float64, len(frames))
	if len(curve) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	src := 0
	for i, f := range frames {
		t := f.T
		if t < curve[0].T || t > curve[len(curve)-1].T {
			out[i] = math.NaN()
			continue
		}
		for src+1 < len(curve) && curve[src+1].T < t {
			src++
		}
		if src+1 >= len(curve) {
			out[i] = curve[len(curve)-1].BPM
			continue
		}
		a, b := curve[src], curve[src+1]
		if t <= a.T {
			out[i] = a.BPM
			continue
		}
		frac := (t - a.T) / (b.T - a.T)
		out[i] = a.BPM + frac*(b.BPM-a.BPM)
	}
	return out
}

// StabilityCV is the coefficient of variation (std/mean) of a tempo curve,
// used as the tempo-stability measure. Returns nil for an empty curve or a
// vanishing mean.
func StabilityCV(curve domain.TempoCurve) *float64 {
	if len(curve) == 0 {
		return nil
	}
	mean := curve.MeanBPM()
	if mean < 1e-9 {
		return nil
	}
	var variance float64
	for _, p := range curve {
		d := p.BPM - mean
		variance += d * d
	}
	cv := math.Sqrt(variance/float64(len(curve))) / mean
	return &cv
}

// std is the population standard deviation; 0 for fewer than two values.
func std(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(vals)))
}
