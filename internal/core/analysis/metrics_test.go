package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// tempoCurveOver builds a constant-BPM curve spanning the given duration so
// it covers the loudness frames used in alignment tests.
func tempoCurveOver(bpm, duration float64) domain.TempoCurve {
	var curve domain.TempoCurve
	period := 60.0 / bpm
	for t := 0.0; t <= duration; t += period {
		curve = append(curve, domain.TempoPoint{T: t, BPM: bpm, BPMSmooth: bpm})
	}
	return curve
}

func TestMetricsComputer_IdenticalRecordingsAreZeroDiff(t *testing.T) {
	cfg := DefaultConfig()
	loud := loudnessRamp(100, 0.05)
	tempo := tempoCurveOver(90, 5)

	al, err := NewAligner(cfg).Align(context.Background(), loud, loud)
	require.NoError(t, err)

	m := NewMetricsComputer(cfg).Compute(al, tempo, tempo)

	require.InDelta(t, 0, m.MeanAbsBPMDiff, 1e-9)
	require.InDelta(t, 0, m.MeanAbsDBDiff, 1e-9)
	require.InDelta(t, 0, m.TempoDiffStd, 1e-9)
	require.InDelta(t, 0, m.LoudnessDiffStd, 1e-9)
	require.InDelta(t, float64(len(al.Path))*al.Hop, m.OverlapSec, 1e-9)
	for _, v := range m.Curves.TempoDiff {
		require.InDelta(t, 0, v, 1e-9)
	}
}

func TestMetricsComputer_ConstantTempoGap(t *testing.T) {
	cfg := DefaultConfig()
	loud := loudnessRamp(100, 0.05)

	al, err := NewAligner(cfg).Align(context.Background(), loud, loud)
	require.NoError(t, err)

	m := NewMetricsComputer(cfg).Compute(al, tempoCurveOver(100, 5), tempoCurveOver(80, 5))

	require.InDelta(t, 20, m.MeanAbsBPMDiff, 0.01)
	require.InDelta(t, 20, m.MeanBPMDiff, 0.01)
	require.GreaterOrEqual(t, m.MeanAbsBPMDiff, 0.0)
	require.NotNil(t, m.StudentStability)
	require.InDelta(t, 0, *m.StudentStability, 1e-9)
}

func TestMetricsComputer_IgnoresFramesOutsideTempoCurve(t *testing.T) {
	cfg := DefaultConfig()
	loud := loudnessRamp(100, 0.05) // spans ~5s

	al, err := NewAligner(cfg).Align(context.Background(), loud, loud)
	require.NoError(t, err)

	// Tempo known only for the first two seconds; later frames must not
	// contribute to tempo statistics.
	short := tempoCurveOver(100, 2)
	m := NewMetricsComputer(cfg).Compute(al, short, tempoCurveOver(80, 5))

	require.InDelta(t, 20, m.MeanAbsBPMDiff, 0.01)
	require.Less(t, len(m.Curves.TempoDiff), len(al.Path))
	require.Len(t, m.Curves.LoudnessDiffDB, len(m.Curves.TempoDiff))
	require.Len(t, m.Curves.T, len(m.Curves.TempoDiff))
}

func TestMetricsComputer_EmptyTempoCurves(t *testing.T) {
	cfg := DefaultConfig()
	loud := loudnessRamp(60, 0.05)

	al, err := NewAligner(cfg).Align(context.Background(), loud, loud)
	require.NoError(t, err)

	m := NewMetricsComputer(cfg).Compute(al, nil, nil)

	require.Zero(t, m.MeanAbsBPMDiff)
	require.Nil(t, m.StudentStability)
	require.Nil(t, m.RefStability)
	require.Empty(t, m.Curves.TempoDiff)
	// Loudness statistics survive without tempo data.
	require.InDelta(t, 0, m.MeanAbsDBDiff, 1e-9)
	require.Greater(t, m.OverlapSec, 0.0)
}

func TestStabilityCV(t *testing.T) {
	require.Nil(t, StabilityCV(nil))

	cv := StabilityCV(constantTempoCurve(100, 8))
	require.NotNil(t, cv)
	require.InDelta(t, 0, *cv, 1e-12)

	wobble := domain.TempoCurve{
		{T: 0, BPM: 90}, {T: 1, BPM: 110}, {T: 2, BPM: 90}, {T: 3, BPM: 110},
	}
	cv = StabilityCV(wobble)
	require.NotNil(t, cv)
	require.InDelta(t, 0.1, *cv, 1e-9)
}
