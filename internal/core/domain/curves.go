package domain

// TempoPoint is one sample of an instantaneous tempo curve. T is the midpoint
// of the inter-beat interval the BPM was derived from.
type TempoPoint struct {
	T         float64 `json:"t"`
	BPM       float64 `json:"bpm"`
	BPMSmooth float64 `json:"bpm_smooth"`
}

// TempoCurve is an ordered sequence of tempo samples. Timestamps are strictly
// increasing; an empty curve means fewer than two beats were detected.
type TempoCurve []TempoPoint

// MeanBPM returns the mean of the raw BPM values, or 0 for an empty curve.
func (c TempoCurve) MeanBPM() float64 {
	if len(c) == 0 {
		return 0
	}
	var sum float64
	for _, p := range c {
		sum += p.BPM
	}
	return sum / float64(len(c))
}

// LoudnessPoint is one frame of the loudness curve, in dBFS.
type LoudnessPoint struct {
	T  float64 `json:"t"`
	DB float64 `json:"db"`
}

// LoudnessCurve is a uniformly spaced loudness trajectory. Hop is the frame
// spacing in seconds; Points[i].T == Points[0].T + i*Hop.
type LoudnessCurve struct {
	Hop    float64
	Points []LoudnessPoint
}

// Empty reports whether the curve has no frames.
func (c LoudnessCurve) Empty() bool {
	return len(c.Points) == 0
}

// Values returns the dB series without timestamps.
func (c LoudnessCurve) Values() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.DB
	}
	return out
}

// DynamicRange returns max − min of the dB series, or 0 for an empty curve.
func (c LoudnessCurve) DynamicRange() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	lo, hi := c.Points[0].DB, c.Points[0].DB
	for _, p := range c.Points[1:] {
		if p.DB < lo {
			lo = p.DB
		}
		if p.DB > hi {
			hi = p.DB
		}
	}
	return hi - lo
}

// TempoInterpretation resolves half/double-time pulse ambiguity. All BPM
// fields are nil when the tempo curve was empty.
type TempoInterpretation struct {
	AsDetectedBPM    *float64 `json:"as_detected_bpm"`
	HalfTimeBPM      *float64 `json:"half_time_bpm"`
	DoubleTimeBPM    *float64 `json:"double_time_bpm"`
	RecommendedBPM   *float64 `json:"recommended_bpm"`
	RecommendedLabel string   `json:"recommended_label"`
	Reason           string   `json:"reason"`
}

// Candidate labels for TempoInterpretation.RecommendedLabel.
const (
	LabelAsDetected = "as_detected_bpm"
	LabelHalfTime   = "half_time_bpm"
	LabelDoubleTime = "double_time_bpm"
)

// PathPair is one correspondence (student index, reference index) on a
// warping path.
type PathPair struct {
	I int
	J int
}

// WarpingPath is the monotonic index correspondence produced by the aligner.
// It starts at (0,0), ends at (N-1,M-1), and is non-decreasing in both axes.
type WarpingPath []PathPair

// InstabilityEvent marks a run of beats whose tempo deviates noticeably from
// the recording's mean tempo.
type InstabilityEvent struct {
	TStart   float64 `json:"t_start"`
	TEnd     float64 `json:"t_end"`
	Type     string  `json:"type"`
	Severity float64 `json:"severity"`
}

// EventTempoInstability is the only event type currently emitted.
const EventTempoInstability = "tempo_instability"
