package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

func TestAnalyzer_Analyze(t *testing.T) {
	signal := constantSignal(6, 0.5, 44100)
	detector := &stubDetector{beats: clickBeats(8, 80, 0.2), tempo: 80}

	a := New(detector, DefaultConfig(), zap.NewNop())
	out, err := a.Analyze(context.Background(), signal)
	require.NoError(t, err)

	require.InDelta(t, 6, out.DurationSec, 0.01)
	require.Len(t, out.TempoCurve, 7)
	require.NotEmpty(t, out.LoudnessCurve)
	require.Equal(t, domain.LabelAsDetected, out.TempoInterpretation.RecommendedLabel)
	require.NotNil(t, out.Stability)
	require.InDelta(t, 0, *out.Stability, 1e-9)
	require.Empty(t, out.InstabilityEvents)
}

func TestAnalyzer_AnalyzePartialResultWithOneBeat(t *testing.T) {
	signal := constantSignal(6, 0.5, 44100)
	a := New(&stubDetector{beats: []float64{1.0}}, DefaultConfig(), zap.NewNop())

	out, err := a.Analyze(context.Background(), signal)
	require.NoError(t, err, "too few beats must degrade, not fail")

	require.Empty(t, out.TempoCurve)
	require.Nil(t, out.TempoInterpretation.AsDetectedBPM)
	require.Nil(t, out.TempoInterpretation.RecommendedBPM)
	require.Equal(t, "insufficient beats detected", out.TempoInterpretation.Reason)
	require.Nil(t, out.Stability)
	require.NotEmpty(t, out.LoudnessCurve, "loudness analysis survives missing beats")
}

func TestAnalyzer_AnalyzeTooShortSignal(t *testing.T) {
	a := New(&stubDetector{}, DefaultConfig(), zap.NewNop())

	_, err := a.Analyze(context.Background(), domain.AudioSignal{Samples: make([]float64, 100), SampleRate: 44100})
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestAnalyzer_AnalyzeInstabilityEvents(t *testing.T) {
	// Beats steady at 100 BPM with a dragged passage in the middle.
	beats := []float64{0, 0.6, 1.2, 1.8, 2.64, 3.48, 4.32, 4.92, 5.52, 6.12}
	a := New(&stubDetector{beats: beats}, DefaultConfig(), zap.NewNop())

	out, err := a.Analyze(context.Background(), constantSignal(8, 0.5, 44100))
	require.NoError(t, err)

	require.NotEmpty(t, out.InstabilityEvents)
	ev := out.InstabilityEvents[0]
	require.Equal(t, domain.EventTempoInstability, ev.Type)
	require.Greater(t, ev.TEnd, ev.TStart)
	require.Greater(t, ev.Severity, 0.0)
	require.LessOrEqual(t, ev.Severity, 1.0)
}

func TestAnalyzer_CompareEndToEnd(t *testing.T) {
	// Two takes with identical flat loudness envelopes: the student at
	// 100 BPM, the reference at 80 BPM. Signal lengths differ so the stub
	// detector can tell the recordings apart.
	student := constantSignal(6, 0.5, 44100)
	reference := constantSignal(6.5, 0.5, 44100)

	detector := &stubDetector{byLen: map[int][]float64{
		len(student.Samples):   clickBeats(10, 100, 0.2),
		len(reference.Samples): clickBeats(8, 80, 0.2),
	}}

	a := New(detector, DefaultConfig(), zap.NewNop())
	out, err := a.Compare(context.Background(), student, reference)
	require.NoError(t, err)

	require.Greater(t, out.OverlapSec, 0.0)
	require.InDelta(t, 20, out.Tempo.MeanAbsBPMDiff, 0.5)
	require.InDelta(t, 0, out.Loudness.MeanAbsDBDiff, 0.1)

	var tempoInsight *domain.Insight
	for i := range out.Insights {
		if out.Insights[i].Title == "Overall tempo" {
			tempoInsight = &out.Insights[i]
			break
		}
	}
	require.NotNil(t, tempoInsight)
	require.Equal(t, domain.SeverityAttention, tempoInsight.Severity)

	require.Len(t, out.Curves.TempoDiff, len(out.Curves.T))
	require.Len(t, out.Curves.LoudnessDiffDB, len(out.Curves.T))
	for _, d := range out.Curves.TempoDiff {
		require.InDelta(t, 20, d, 0.5)
	}
}

func TestAnalyzer_CompareIdenticalRecordings(t *testing.T) {
	signal := constantSignal(6, 0.5, 44100)
	a := New(&stubDetector{beats: clickBeats(9, 90, 0.2)}, DefaultConfig(), zap.NewNop())

	out, err := a.Compare(context.Background(), signal, signal)
	require.NoError(t, err)

	require.InDelta(t, 0, out.Tempo.MeanAbsBPMDiff, 1e-9)
	require.InDelta(t, 0, out.Loudness.MeanAbsDBDiff, 1e-9)
}

func TestAnalyzer_CompareAnalysesAlignmentFailure(t *testing.T) {
	a := New(&stubDetector{}, DefaultConfig(), zap.NewNop())

	empty := &domain.SingleAnalysis{}
	full := &domain.SingleAnalysis{
		LoudnessHop:   0.05,
		LoudnessCurve: loudnessRamp(50, 0.05).Points,
	}

	_, err := a.CompareAnalyses(context.Background(), empty, full)
	require.ErrorIs(t, err, domain.ErrAlignment)
}
