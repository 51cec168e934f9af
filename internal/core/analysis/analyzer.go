package analysis

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

// Analyzer is the engine's public surface: Analyze for one recording,
// Compare for a student take against a reference take. It holds no state
// between invocations; concurrent calls operate on private curves and
// matrices.
type Analyzer struct {
	detector    ports.BeatDetector
	cfg         Config
	logger      *zap.Logger
	extractor   *FeatureExtractor
	interpreter *TempoInterpreter
	aligner     *Aligner
	metrics     *MetricsComputer
	insights    *InsightEngine
}

// New wires the pipeline stages around one beat detector.
func New(detector ports.BeatDetector, cfg Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		detector:    detector,
		cfg:         cfg,
		logger:      logger,
		extractor:   NewFeatureExtractor(detector, cfg),
		interpreter: NewTempoInterpreter(cfg),
		aligner:     NewAligner(cfg),
		metrics:     NewMetricsComputer(cfg),
		insights:    NewInsightEngine(cfg),
	}
}

// Analyze runs the single-recording pipeline. Fewer than two detected beats
// is not an error: the result carries an empty tempo curve, null
// interpretation fields, and an explanatory reason. A signal shorter than one
// analysis frame fails with ErrInsufficientData.
func (a *Analyzer) Analyze(ctx context.Context, signal domain.AudioSignal) (*domain.SingleAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if signal.Empty() {
		return nil, fmt.Errorf("analysis: empty signal: %w", domain.ErrInvalidInput)
	}

	tempo, loudness, err := a.extractor.Extract(signal)
	if err != nil {
		return nil, err
	}

	var globalBPM float64
	if est, ok := a.detector.(ports.TempoEstimator); ok {
		if g, err := est.EstimateTempo(signal.Samples, signal.SampleRate); err == nil {
			globalBPM = g
		} else {
			a.logger.Debug("global tempo estimate unavailable", zap.Error(err))
		}
	}

	interp := a.interpreter.Interpret(tempo, globalBPM)
	if len(tempo) == 0 {
		a.logger.Info("tempo analysis degraded",
			zap.Float64("duration_sec", signal.Duration()),
			zap.String("reason", interp.Reason),
		)
	}

	return &domain.SingleAnalysis{
		DurationSec:         signal.Duration(),
		TempoCurve:          tempo,
		LoudnessCurve:       loudness.Points,
		LoudnessHop:         loudness.Hop,
		TempoInterpretation: interp,
		Stability:           StabilityCV(tempo),
		DynamicRangeDB:      loudness.DynamicRange(),
		InstabilityEvents:   a.instabilityEvents(tempo),
	}, nil
}

// Compare analyzes both recordings concurrently, joins, and compares them.
func (a *Analyzer) Compare(ctx context.Context, student, reference domain.AudioSignal) (*domain.Comparison, error) {
	var studentOut, referenceOut *domain.SingleAnalysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := a.Analyze(gctx, student)
		if err != nil {
			return fmt.Errorf("student recording: %w", err)
		}
		studentOut = out
		return nil
	})
	g.Go(func() error {
		out, err := a.Analyze(gctx, reference)
		if err != nil {
			return fmt.Errorf("reference recording: %w", err)
		}
		referenceOut = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return a.CompareAnalyses(ctx, studentOut, referenceOut)
}

// CompareAnalyses aligns two already-computed analyses and derives metrics
// and insights. The service layer uses this directly when both analyses are
// stored, so audio is never decoded twice.
func (a *Analyzer) CompareAnalyses(ctx context.Context, student, reference *domain.SingleAnalysis) (*domain.Comparison, error) {
	al, err := a.aligner.Align(ctx, student.Loudness(), reference.Loudness())
	if err != nil {
		return nil, err
	}

	metrics := a.metrics.Compute(al, student.TempoCurve, reference.TempoCurve)
	insights := a.insights.Generate(metrics, student.TempoInterpretation, reference.TempoInterpretation)

	a.logger.Info("comparison computed",
		zap.Float64("overlap_sec", metrics.OverlapSec),
		zap.Float64("mean_abs_bpm_diff", metrics.MeanAbsBPMDiff),
		zap.Float64("mean_abs_db_diff", metrics.MeanAbsDBDiff),
		zap.Float64("alignment_cost", al.Cost),
		zap.Int("insights", len(insights)),
	)

	return &domain.Comparison{
		OverlapSec: metrics.OverlapSec,
		Tempo:      domain.TempoDiffStats{MeanAbsBPMDiff: metrics.MeanAbsBPMDiff},
		Loudness:   domain.LoudnessDiffStats{MeanAbsDBDiff: metrics.MeanAbsDBDiff},
		Curves:     metrics.Curves,
		Insights:   insights,
	}, nil
}

// instabilityEvents finds runs of beats whose tempo strays from the
// recording's mean by more than the configured relative deviation.
func (a *Analyzer) instabilityEvents(curve domain.TempoCurve) []domain.InstabilityEvent {
	events := []domain.InstabilityEvent{}
	if len(curve) < a.cfg.InstabilityMinRun {
		return events
	}
	mean := curve.MeanBPM()
	if mean < 1e-9 {
		return events
	}

	devs := make([]float64, len(curve))
	for i, p := range curve {
		devs[i] = math.Abs(p.BPM-mean) / mean
	}

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if end-start >= a.cfg.InstabilityMinRun {
			var sum float64
			for _, d := range devs[start:end] {
				sum += d
			}
			severity := sum / float64(end-start) / a.cfg.InstabilitySeverityScale
			if severity > 1 {
				severity = 1
			}
			events = append(events, domain.InstabilityEvent{
				TStart:   curve[start].T,
				TEnd:     curve[end-1].T,
				Type:     domain.EventTempoInstability,
				Severity: severity,
			})
		}
		start = -1
	}

	for i, d := range devs {
		if d > a.cfg.InstabilityDeviation {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(devs))

	return events
}
