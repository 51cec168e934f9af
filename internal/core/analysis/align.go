package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// Aligner computes a monotonic time-warping correspondence between two
// loudness curves. Loudness is the common signal most robust to tempo-unit
// ambiguity, so alignment is anchored on it rather than on tempo curves.
type Aligner struct {
	cfg Config
}

// NewAligner constructs an aligner with the given tuning.
func NewAligner(cfg Config) *Aligner {
	return &Aligner{cfg: cfg}
}

// Alignment is a warping path together with the common-grid curves it was
// computed on. Metrics are derived from the same resampled curves so path
// indices stay meaningful.
type Alignment struct {
	Path    domain.WarpingPath
	Cost    float64
	Hop     float64
	Student domain.LoudnessCurve
	Ref     domain.LoudnessCurve
}

// Align resamples both curves to a common hop, z-score normalizes them, and
// solves full-matrix DTW with {diagonal, horizontal, vertical} steps. The
// cost matrix is O(N·M); the hop is widened until both sides fit under
// MaxAlignFrames, and the DP loop checks ctx once per row so very large
// alignments can be aborted early.
func (a *Aligner) Align(ctx context.Context, student, reference domain.LoudnessCurve) (*Alignment, error) {
	if student.Empty() || reference.Empty() {
		return nil, domain.AlignmentError{Reason: "loudness curve is empty"}
	}
	if student.Hop <= 0 || reference.Hop <= 0 {
		return nil, domain.AlignmentError{Reason: "loudness curve has no hop size"}
	}

	hop := math.Max(student.Hop, reference.Hop)
	if a.cfg.MaxAlignFrames > 0 {
		// Widen the hop so the longer recording fits under the frame cap.
		maxSpan := math.Max(span(student), span(reference))
		if need := maxSpan / float64(a.cfg.MaxAlignFrames); need > hop {
			hop = need
		}
	}

	s := resampleLoudness(student, hop)
	r := resampleLoudness(reference, hop)
	if s.Empty() || r.Empty() {
		return nil, domain.AlignmentError{Reason: "loudness curve degenerates at alignment hop"}
	}

	sn := zscore(s.Values())
	rn := zscore(r.Values())

	path, cost, err := warp(ctx, sn, rn)
	if err != nil {
		return nil, err
	}

	return &Alignment{Path: path, Cost: cost, Hop: hop, Student: s, Ref: r}, nil
}

func span(c domain.LoudnessCurve) float64 {
	if len(c.Points) < 2 {
		return 0
	}
	return c.Points[len(c.Points)-1].T - c.Points[0].T
}

// resampleLoudness linearly interpolates a curve onto a uniform grid with the
// given hop, anchored at the curve's first timestamp.
func resampleLoudness(c domain.LoudnessCurve, hop float64) domain.LoudnessCurve {
	if len(c.Points) == 0 || hop <= 0 {
		return domain.LoudnessCurve{Hop: hop}
	}
	first := c.Points[0].T
	last := c.Points[len(c.Points)-1].T
	n := int((last-first)/hop+1e-9) + 1

	points := make([]domain.LoudnessPoint, 0, n)
	src := 0
	for k := 0; k < n; k++ {
		t := first + float64(k)*hop
		for src+1 < len(c.Points) && c.Points[src+1].T < t {
			src++
		}
		points = append(points, domain.LoudnessPoint{T: t, DB: lerpAt(c.Points, src, t)})
	}
	return domain.LoudnessCurve{Hop: hop, Points: points}
}

// lerpAt interpolates between points[i] and points[i+1] at time t, clamping
// at the endpoints.
func lerpAt(points []domain.LoudnessPoint, i int, t float64) float64 {
	if i+1 >= len(points) {
		return points[len(points)-1].DB
	}
	a, b := points[i], points[i+1]
	if t <= a.T {
		return a.DB
	}
	if t >= b.T {
		return b.DB
	}
	frac := (t - a.T) / (b.T - a.T)
	return a.DB + frac*(b.DB-a.DB)
}

// zscore normalizes a series to zero mean and unit variance. A near-constant
// series is only mean-centered, per the degenerate-curve rule.
func zscore(vals []float64) []float64 {
	n := float64(len(vals))
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / n)

	out := make([]float64, len(vals))
	for i, v := range vals {
		if std < 1e-9 {
			out[i] = v - mean
		} else {
			out[i] = (v - mean) / std
		}
	}
	return out
}

// warp runs the DTW dynamic program over absolute differences and backtracks
// the minimum-cost monotonic path from (N-1,M-1) to (0,0). Diagonal steps win
// ties so aligning a curve with itself yields the identity path.
func warp(ctx context.Context, a, b []float64) (domain.WarpingPath, float64, error) {
	n, m := len(a), len(b)
	acc := make([]float64, n*m)
	at := func(i, j int) int { return i*m + j }

	acc[at(0, 0)] = math.Abs(a[0] - b[0])
	for j := 1; j < m; j++ {
		acc[at(0, j)] = acc[at(0, j-1)] + math.Abs(a[0]-b[j])
	}
	for i := 1; i < n; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, fmt.Errorf("analysis: alignment canceled: %w", err)
			}
		}
		acc[at(i, 0)] = acc[at(i-1, 0)] + math.Abs(a[i]-b[0])
		for j := 1; j < m; j++ {
			best := acc[at(i-1, j-1)]
			if v := acc[at(i-1, j)]; v < best {
				best = v
			}
			if v := acc[at(i, j-1)]; v < best {
				best = v
			}
			acc[at(i, j)] = best + math.Abs(a[i]-b[j])
		}
	}

	// Backtrack.
	var reversed domain.WarpingPath
	i, j := n-1, m-1
	for {
		reversed = append(reversed, domain.PathPair{I: i, J: j})
		if i == 0 && j == 0 {
			break
		}
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag := acc[at(i-1, j-1)]
			up := acc[at(i-1, j)]
			left := acc[at(i, j-1)]
			if diag <= up && diag <= left {
				i--
				j--
			} else if up < left {
				i--
			} else {
				j--
			}
		}
	}

	path := make(domain.WarpingPath, len(reversed))
	for k := range reversed {
		path[k] = reversed[len(reversed)-1-k]
	}
	return path, acc[at(n-1, m-1)], nil
}
