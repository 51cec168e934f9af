package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/analysis"
	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

// ErrJobNotReady indicates a comparison referenced a job that has not
// finished yet.
var ErrJobNotReady = errors.New("service: job not ready")

// ErrQueueFull indicates the analysis queue rejected a new upload.
var ErrQueueFull = errors.New("service: analysis queue full")

// Orchestrator coordinates decoding, job persistence, the analysis queue,
// and the comparison pipeline.
type Orchestrator struct {
	repo     ports.JobRepository
	decoder  ports.AudioDecoder
	queue    ports.AnalysisQueue
	analyzer *analysis.Analyzer
	logger   *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(repo ports.JobRepository, decoder ports.AudioDecoder, queue ports.AnalysisQueue, analyzer *analysis.Analyzer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		repo:     repo,
		decoder:  decoder,
		queue:    queue,
		analyzer: analyzer,
		logger:   logger,
	}
}

// SubmitAnalysis decodes an upload, creates a processing job, and enqueues
// the analysis. Decoding happens in the request so undecodable audio is
// rejected immediately rather than failing later in the background.
func (o *Orchestrator) SubmitAnalysis(ctx context.Context, r io.Reader, format string) (string, error) {
	signal, err := o.decoder.Decode(r, format)
	if err != nil {
		return "", fmt.Errorf("service: decode upload: %w", err)
	}

	id := uuid.NewString()
	job := domain.Job{ID: id, Kind: domain.JobKindAnalysis, Status: domain.JobStatusProcessing}
	if err := o.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("service: create job: %w", err)
	}

	if !o.queue.Submit(ports.AnalysisTask{JobID: id, Signal: signal}) {
		o.logger.Warn("analysis queue full, rejecting upload", zap.String("job_id", id))
		if markErr := o.repo.MarkError(ctx, id, ErrQueueFull.Error()); markErr != nil {
			o.logger.Error("failed to mark rejected job", zap.String("job_id", id), zap.Error(markErr))
		}
		return "", ErrQueueFull
	}

	o.logger.Info("analysis job submitted",
		zap.String("job_id", id),
		zap.String("format", format),
		zap.Float64("duration_sec", signal.Duration()),
	)
	return id, nil
}

// GetJob returns a job's current status and result.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (domain.Job, error) {
	job, err := o.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Job{}, err
		}
		return domain.Job{}, fmt.Errorf("service: load job: %w", err)
	}
	return job, nil
}

// Compare loads two completed analyses and runs the comparison pipeline on
// them. An alignment failure is not fatal: the response falls back to both
// standalone results with a message explaining why comparison metrics are
// unavailable.
func (o *Orchestrator) Compare(ctx context.Context, studentJobID, referenceJobID string) (*domain.ComparisonResponse, error) {
	student, err := o.loadAnalysis(ctx, studentJobID)
	if err != nil {
		return nil, fmt.Errorf("student job %s: %w", studentJobID, err)
	}
	reference, err := o.loadAnalysis(ctx, referenceJobID)
	if err != nil {
		return nil, fmt.Errorf("reference job %s: %w", referenceJobID, err)
	}

	cmp, err := o.analyzer.CompareAnalyses(ctx, student, reference)
	if err != nil {
		if errors.Is(err, domain.ErrAlignment) {
			o.logger.Info("comparison fell back to standalone analyses",
				zap.String("student_job_id", studentJobID),
				zap.String("reference_job_id", referenceJobID),
				zap.Error(err),
			)
			return &domain.ComparisonResponse{
				Student:   student,
				Reference: reference,
				Message:   fmt.Sprintf("comparison metrics unavailable: %v", err),
			}, nil
		}
		return nil, fmt.Errorf("service: compare: %w", err)
	}

	return &domain.ComparisonResponse{Comparison: cmp}, nil
}

// loadAnalysis fetches a finished job and deserializes its stored result.
func (o *Orchestrator) loadAnalysis(ctx context.Context, id string) (*domain.SingleAnalysis, error) {
	job, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Done() {
		return nil, fmt.Errorf("%w (status %s)", ErrJobNotReady, job.Status)
	}

	var out domain.SingleAnalysis
	if err := json.Unmarshal(job.Result, &out); err != nil {
		return nil, fmt.Errorf("service: corrupt stored result: %w", err)
	}
	return &out, nil
}
