package domain

// SingleAnalysis is the standalone result for one recording. Field names are
// the wire contract the frontend charts depend on.
type SingleAnalysis struct {
	DurationSec         float64             `json:"duration_sec"`
	TempoCurve          TempoCurve          `json:"tempo_curve"`
	LoudnessCurve       []LoudnessPoint     `json:"loudness_curve"`
	TempoInterpretation TempoInterpretation `json:"tempo_interpretation"`
	Stability           *float64            `json:"stability"`
	DynamicRangeDB      float64             `json:"dynamic_range"`
	InstabilityEvents   []InstabilityEvent  `json:"instability_events"`

	// LoudnessHop is the uniform frame spacing of LoudnessCurve in seconds.
	// It is needed to re-align stored analyses and is serialized so a stored
	// result round-trips.
	LoudnessHop float64 `json:"loudness_hop_sec"`
}

// Loudness reconstructs the typed loudness curve from the serialized points.
func (a *SingleAnalysis) Loudness() LoudnessCurve {
	return LoudnessCurve{Hop: a.LoudnessHop, Points: a.LoudnessCurve}
}

// TempoDiffStats and LoudnessDiffStats carry the aligned difference summary
// for their respective curves.
type TempoDiffStats struct {
	MeanAbsBPMDiff float64 `json:"mean_abs_bpm_diff"`
}

type LoudnessDiffStats struct {
	MeanAbsDBDiff float64 `json:"mean_abs_db_diff"`
}

// AlignedCurves are the warped difference trajectories on a synthetic
// aligned-time axis.
type AlignedCurves struct {
	T              []float64 `json:"t"`
	TempoDiff      []float64 `json:"tempo_diff"`
	LoudnessDiffDB []float64 `json:"loudness_diff_db"`
}

// ComparisonMetrics is the numeric output of the metrics stage, before
// insight classification.
type ComparisonMetrics struct {
	OverlapSec        float64
	MeanAbsBPMDiff    float64
	MeanAbsDBDiff     float64
	TempoDiffStd      float64
	LoudnessDiffStd   float64
	StudentStability  *float64
	RefStability      *float64
	StudentDynRangeDB float64
	RefDynRangeDB     float64
	MeanBPMDiff       float64
	Curves            AlignedCurves
}

// Severity levels for insights, ordered from best to worst.
const (
	SeverityGood      = "good"
	SeverityModerate  = "moderate"
	SeverityAttention = "attention"
)

// Insight is a single severity-tagged feedback card.
type Insight struct {
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// Comparison is the full two-recording result. Field names are the wire
// contract.
type Comparison struct {
	OverlapSec float64           `json:"overlap_sec"`
	Tempo      TempoDiffStats    `json:"tempo"`
	Loudness   LoudnessDiffStats `json:"loudness"`
	Curves     AlignedCurves     `json:"curves"`
	Insights   []Insight         `json:"insights"`
}

// ComparisonResponse is what the service returns for a comparison request.
// When alignment fails the Comparison is absent and the two standalone
// analyses are returned instead, with Message explaining why.
type ComparisonResponse struct {
	Comparison *Comparison     `json:"comparison,omitempty"`
	Student    *SingleAnalysis `json:"student,omitempty"`
	Reference  *SingleAnalysis `json:"reference,omitempty"`
	Message    string          `json:"message,omitempty"`
}
