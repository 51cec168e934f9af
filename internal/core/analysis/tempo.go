package analysis

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// TempoInterpreter resolves half/double-time pulse ambiguity. Beat trackers
// routinely lock onto a subdivision of the intended pulse, doubling or
// halving the reported tempo without losing stability; that is a systematic
// bias, so it is corrected explicitly rather than smoothed away.
type TempoInterpreter struct {
	cfg Config
}

// NewTempoInterpreter constructs an interpreter with the given tuning.
func NewTempoInterpreter(cfg Config) *TempoInterpreter {
	return &TempoInterpreter{cfg: cfg}
}

// Interpret scores the detected tempo against its half-time and double-time
// candidates. globalBPM is the detector's whole-recording estimate; pass 0
// when none is available.
func (ti *TempoInterpreter) Interpret(curve domain.TempoCurve, globalBPM float64) domain.TempoInterpretation {
	if len(curve) == 0 {
		return domain.TempoInterpretation{Reason: "insufficient beats detected"}
	}

	detected := curve.MeanBPM()
	half := detected / 2
	double := detected * 2

	candidates := []struct {
		label string
		bpm   float64
	}{
		{domain.LabelAsDetected, detected},
		{domain.LabelHalfTime, half},
		{domain.LabelDoubleTime, double},
	}

	best := candidates[0]
	bestScore := ti.score(best.bpm, globalBPM)
	for _, c := range candidates[1:] {
		if s := ti.score(c.bpm, globalBPM); s < bestScore {
			best, bestScore = c, s
		}
	}

	return domain.TempoInterpretation{
		AsDetectedBPM:    ptr(detected),
		HalfTimeBPM:      ptr(half),
		DoubleTimeBPM:    ptr(double),
		RecommendedBPM:   ptr(best.bpm),
		RecommendedLabel: best.label,
		Reason:           ti.reason(best.label, detected, best.bpm, globalBPM),
	}
}

// score is the weighted relative distance of a candidate to the plausible
// pulse and, when known, to the global estimate. Lower is better.
func (ti *TempoInterpreter) score(bpm, globalBPM float64) float64 {
	s := ti.cfg.PlausibleWeight * math.Abs(bpm-ti.cfg.PlausibleBPM) / ti.cfg.PlausibleBPM
	if globalBPM > 0 {
		s += ti.cfg.GlobalWeight * math.Abs(bpm-globalBPM) / globalBPM
	}
	return s
}

func (ti *TempoInterpreter) reason(label string, detected, recommended, globalBPM float64) string {
	ref := fmt.Sprintf("a plausible %.0f BPM pulse", ti.cfg.PlausibleBPM)
	if globalBPM > 0 {
		ref += fmt.Sprintf(" and the %.1f BPM whole-recording estimate", globalBPM)
	}
	switch label {
	case domain.LabelHalfTime:
		return fmt.Sprintf("detected %.1f BPM likely tracks a subdivision of the pulse; half-time %.1f BPM is closer to %s", detected, recommended, ref)
	case domain.LabelDoubleTime:
		return fmt.Sprintf("detected %.1f BPM likely tracks a multiple of the pulse; double-time %.1f BPM is closer to %s", detected, recommended, ref)
	default:
		return fmt.Sprintf("detected %.1f BPM is already the candidate closest to %s", detected, ref)
	}
}

func ptr(v float64) *float64 {
	return &v
}
