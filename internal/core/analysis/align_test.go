package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// loudnessRamp builds a curve with the given hop whose level ramps and dips,
// so z-score normalization is non-trivial.
func loudnessRamp(n int, hop float64) domain.LoudnessCurve {
	points := make([]domain.LoudnessPoint, n)
	for i := range points {
		points[i] = domain.LoudnessPoint{
			T:  float64(i) * hop,
			DB: -30 + 10*math.Sin(float64(i)/5),
		}
	}
	return domain.LoudnessCurve{Hop: hop, Points: points}
}

func TestAligner_SelfAlignmentIsIdentity(t *testing.T) {
	a := NewAligner(DefaultConfig())
	curve := loudnessRamp(120, 0.05)

	al, err := a.Align(context.Background(), curve, curve)
	require.NoError(t, err)

	require.InDelta(t, 0, al.Cost, 1e-9)
	require.Len(t, al.Path, len(al.Student.Points))
	for _, p := range al.Path {
		require.Equal(t, p.I, p.J, "self-alignment must follow the diagonal")
	}
}

func TestAligner_PathIsMonotonicAndComplete(t *testing.T) {
	a := NewAligner(DefaultConfig())
	student := loudnessRamp(90, 0.05)
	reference := loudnessRamp(140, 0.05)

	al, err := a.Align(context.Background(), student, reference)
	require.NoError(t, err)

	n := len(al.Student.Points)
	m := len(al.Ref.Points)
	require.Equal(t, domain.PathPair{I: 0, J: 0}, al.Path[0])
	require.Equal(t, domain.PathPair{I: n - 1, J: m - 1}, al.Path[len(al.Path)-1])

	for k := 1; k < len(al.Path); k++ {
		prev, cur := al.Path[k-1], al.Path[k]
		require.GreaterOrEqual(t, cur.I, prev.I)
		require.GreaterOrEqual(t, cur.J, prev.J)
		require.LessOrEqual(t, cur.I-prev.I, 1)
		require.LessOrEqual(t, cur.J-prev.J, 1)
		require.True(t, cur.I > prev.I || cur.J > prev.J, "path must advance on at least one axis")
	}
}

func TestAligner_DifferentHopsResampleToCoarser(t *testing.T) {
	a := NewAligner(DefaultConfig())
	student := loudnessRamp(200, 0.02)
	reference := loudnessRamp(100, 0.04)

	al, err := a.Align(context.Background(), student, reference)
	require.NoError(t, err)
	require.InDelta(t, 0.04, al.Hop, 1e-12)
}

func TestAligner_CapsResolutionForLongCurves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAlignFrames = 50
	a := NewAligner(cfg)

	al, err := a.Align(context.Background(), loudnessRamp(1000, 0.01), loudnessRamp(900, 0.01))
	require.NoError(t, err)
	require.LessOrEqual(t, len(al.Student.Points), cfg.MaxAlignFrames+1)
	require.LessOrEqual(t, len(al.Ref.Points), cfg.MaxAlignFrames+1)
}

func TestAligner_EmptyCurveFails(t *testing.T) {
	a := NewAligner(DefaultConfig())

	_, err := a.Align(context.Background(), domain.LoudnessCurve{Hop: 0.05}, loudnessRamp(50, 0.05))
	require.ErrorIs(t, err, domain.ErrAlignment)

	_, err = a.Align(context.Background(), loudnessRamp(50, 0.05), domain.LoudnessCurve{Hop: 0.05})
	require.ErrorIs(t, err, domain.ErrAlignment)
}

func TestAligner_ConstantCurvesStillAlign(t *testing.T) {
	// A silent or constant take has zero variance; normalization is skipped
	// and alignment degenerates gracefully instead of dividing by zero.
	a := NewAligner(DefaultConfig())
	flat := domain.LoudnessCurve{Hop: 0.05}
	for i := 0; i < 60; i++ {
		flat.Points = append(flat.Points, domain.LoudnessPoint{T: float64(i) * 0.05, DB: -40})
	}

	al, err := a.Align(context.Background(), flat, flat)
	require.NoError(t, err)
	require.InDelta(t, 0, al.Cost, 1e-9)
}

func TestAligner_CancellationAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAligner(DefaultConfig())
	_, err := a.Align(ctx, loudnessRamp(300, 0.05), loudnessRamp(300, 0.05))
	require.ErrorIs(t, err, context.Canceled)
}
