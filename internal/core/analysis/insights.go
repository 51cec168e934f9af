package analysis

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// Band partitions a metric into the three severities. A value below GoodBelow
// is good, a value up to and including ModerateUpTo is moderate, anything
// beyond needs attention: boundaries land on the lower severity side.
type Band struct {
	GoodBelow    float64 `toml:"good_below"`
	ModerateUpTo float64 `toml:"moderate_up_to"`
}

// Classify maps a metric value onto a severity.
func (b Band) Classify(v float64) string {
	switch {
	case v < b.GoodBelow:
		return domain.SeverityGood
	case v <= b.ModerateUpTo:
		return domain.SeverityModerate
	default:
		return domain.SeverityAttention
	}
}

// Thresholds holds the severity bands for every insight category. They are
// explicit configuration, overridable from the tuning file.
type Thresholds struct {
	TempoDiffBPM       Band `toml:"tempo_diff_bpm"`
	TempoStabilityCV   Band `toml:"tempo_stability_cv"`
	TempoTrackingBPM   Band `toml:"tempo_tracking_bpm"`
	LoudnessDiffDB     Band `toml:"loudness_diff_db"`
	DynamicRangeDB     Band `toml:"dynamic_range_db"`
	DynamicsTrackingDB Band `toml:"dynamics_tracking_db"`
}

// DefaultThresholds returns the production severity boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TempoDiffBPM:       Band{GoodBelow: 5, ModerateUpTo: 10},
		TempoStabilityCV:   Band{GoodBelow: 0.05, ModerateUpTo: 0.10},
		TempoTrackingBPM:   Band{GoodBelow: 3, ModerateUpTo: 6},
		LoudnessDiffDB:     Band{GoodBelow: 3, ModerateUpTo: 6},
		DynamicRangeDB:     Band{GoodBelow: 3, ModerateUpTo: 6},
		DynamicsTrackingDB: Band{GoodBelow: 2, ModerateUpTo: 4},
	}
}

// insightInput is everything a category may draw on.
type insightInput struct {
	metrics domain.ComparisonMetrics
	student domain.TempoInterpretation
	refTake domain.TempoInterpretation
}

// category is one row of the insight table: which metric it reads, which band
// classifies it, and the card text per severity. Categories are data, not
// branching logic, so each is independently testable and tunable.
type category struct {
	title       string
	band        func(Thresholds) Band
	value       func(insightInput) (float64, bool)
	detail      func(insightInput, float64) string
	suggestions map[string]string
}

var categories = []category{
	{
		title: "Overall tempo",
		band:  func(t Thresholds) Band { return t.TempoDiffBPM },
		value: func(in insightInput) (float64, bool) {
			if len(in.metrics.Curves.TempoDiff) == 0 {
				return 0, false
			}
			return in.metrics.MeanAbsBPMDiff, true
		},
		detail: func(in insightInput, v float64) string {
			direction := "ahead of"
			if in.metrics.MeanBPMDiff < 0 {
				direction = "behind"
			}
			d := fmt.Sprintf("Your tempo differs from the reference by %.1f BPM on average, mostly %s the reference pulse.", v, direction)
			if s, r := in.student.RecommendedBPM, in.refTake.RecommendedBPM; s != nil && r != nil {
				d += fmt.Sprintf(" Recommended tempos: yours %.1f BPM, reference %.1f BPM.", *s, *r)
			}
			return d
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "Your overall tempo matches the reference well. Keep that anchor as you add expression.",
			domain.SeverityModerate:  "Check your starting tempo against the reference before playing through.",
			domain.SeverityAttention: "Practice with a metronome set to the reference tempo until the base pulse settles, then reintroduce rubato.",
		},
	},
	{
		title: "Tempo steadiness",
		band:  func(t Thresholds) Band { return t.TempoStabilityCV },
		value: func(in insightInput) (float64, bool) {
			if in.metrics.StudentStability == nil {
				return 0, false
			}
			return *in.metrics.StudentStability, true
		},
		detail: func(in insightInput, v float64) string {
			d := fmt.Sprintf("Your beat-to-beat tempo varies by %.1f%% of the mean tempo.", v*100)
			if in.metrics.RefStability != nil {
				d += fmt.Sprintf(" The reference varies by %.1f%%.", *in.metrics.RefStability*100)
			}
			return d
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "Your pulse is steady. Make sure any tempo variation left is intentional phrasing.",
			domain.SeverityModerate:  "Record short sections with a metronome and listen back for where the pulse drifts.",
			domain.SeverityAttention: "Slow the piece down until you can keep a steady pulse, then bring the tempo back up gradually.",
		},
	},
	{
		title: "Tempo tracking",
		band:  func(t Thresholds) Band { return t.TempoTrackingBPM },
		value: func(in insightInput) (float64, bool) {
			if len(in.metrics.Curves.TempoDiff) == 0 {
				return 0, false
			}
			return in.metrics.TempoDiffStd, true
		},
		detail: func(in insightInput, v float64) string {
			return fmt.Sprintf("Along the aligned timeline your tempo gap to the reference fluctuates with a spread of %.1f BPM.", v)
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "You follow the reference's tempo shape closely, including its rubato.",
			domain.SeverityModerate:  "Listen to the reference's transitions between phrases and match where it stretches or pushes.",
			domain.SeverityAttention: "Work phrase by phrase against the reference: your rushing and dragging happen in different places than the reference's rubato.",
		},
	},
	{
		title: "Loudness level",
		band:  func(t Thresholds) Band { return t.LoudnessDiffDB },
		value: func(in insightInput) (float64, bool) {
			if len(in.metrics.Curves.LoudnessDiffDB) == 0 && in.metrics.OverlapSec == 0 {
				return 0, false
			}
			return in.metrics.MeanAbsDBDiff, true
		},
		detail: func(in insightInput, v float64) string {
			return fmt.Sprintf("Your loudness differs from the reference by %.1f dB on average over %.1f s of aligned material.", v, in.metrics.OverlapSec)
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "Your overall dynamic level sits close to the reference.",
			domain.SeverityModerate:  "Compare a few matching passages side by side and match their base dynamic level.",
			domain.SeverityAttention: "Your levels are consistently far from the reference. Decide on a dynamic plan for each section and exaggerate it while practicing.",
		},
	},
	{
		title: "Dynamic range",
		band:  func(t Thresholds) Band { return t.DynamicRangeDB },
		value: func(in insightInput) (float64, bool) {
			return math.Abs(in.metrics.StudentDynRangeDB - in.metrics.RefDynRangeDB), true
		},
		detail: func(in insightInput, v float64) string {
			return fmt.Sprintf("Your dynamic range spans %.1f dB against the reference's %.1f dB (a gap of %.1f dB).",
				in.metrics.StudentDynRangeDB, in.metrics.RefDynRangeDB, v)
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "You use a similar dynamic palette to the reference.",
			domain.SeverityModerate:  "Push your loudest and softest passages a little further apart.",
			domain.SeverityAttention: "Your dynamics are much flatter or wider than the reference. Practice the extremes: play the piano passages softer and the forte passages fuller.",
		},
	},
	{
		title: "Dynamics tracking",
		band:  func(t Thresholds) Band { return t.DynamicsTrackingDB },
		value: func(in insightInput) (float64, bool) {
			// LoudnessDiffStd covers the whole warping path, so it stays
			// valid even when the serialized curves are empty because no
			// tempo samples survived.
			if in.metrics.OverlapSec == 0 {
				return 0, false
			}
			return in.metrics.LoudnessDiffStd, true
		},
		detail: func(in insightInput, v float64) string {
			return fmt.Sprintf("Along the aligned timeline your loudness gap to the reference fluctuates with a spread of %.1f dB.", v)
		},
		suggestions: map[string]string{
			domain.SeverityGood:      "Your crescendos and diminuendos land where the reference's do.",
			domain.SeverityModerate:  "Mark the reference's dynamic swells in the score and check yours arrive at the same moments.",
			domain.SeverityAttention: "Your dynamic shape diverges from the reference. Sing or conduct the reference's dynamics before playing the passage.",
		},
	},
}

// InsightEngine classifies comparison metrics into severity-tagged feedback
// cards using the category table above.
type InsightEngine struct {
	cfg Config
}

// NewInsightEngine constructs an engine with the given thresholds.
func NewInsightEngine(cfg Config) *InsightEngine {
	return &InsightEngine{cfg: cfg}
}

// Generate evaluates every category against the metrics. Categories whose
// metric is unavailable (for example tempo categories when a tempo curve was
// empty) are skipped; classification itself never fails.
func (e *InsightEngine) Generate(metrics domain.ComparisonMetrics, student, reference domain.TempoInterpretation) []domain.Insight {
	in := insightInput{metrics: metrics, student: student, refTake: reference}
	out := make([]domain.Insight, 0, len(categories))
	for _, c := range categories {
		v, ok := c.value(in)
		if !ok {
			continue
		}
		severity := c.band(e.cfg.Thresholds).Classify(v)
		out = append(out, domain.Insight{
			Title:      c.title,
			Detail:     c.detail(in, v),
			Severity:   severity,
			Suggestion: c.suggestions[severity],
		})
	}
	return out
}
