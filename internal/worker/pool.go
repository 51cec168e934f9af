// Package worker provides background processing for analysis jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/rubato/backend/internal/core/analysis"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

// Pool manages background workers that run the analysis pipeline and
// persist results. It implements ports.AnalysisQueue.
type Pool struct {
	repo     ports.JobRepository
	analyzer *analysis.Analyzer
	logger   *zap.Logger

	tasks chan ports.AnalysisTask
	wg    sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a worker pool with the given queue size.
func NewPool(repo ports.JobRepository, analyzer *analysis.Analyzer, queueSize int, logger *zap.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		repo:     repo,
		analyzer: analyzer,
		logger:   logger,
		tasks:    make(chan ports.AnalysisTask, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	p.mu.Lock()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				p.process(task)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight analyses to finish.
func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
}

// Submit queues a task without blocking. It reports false when the queue
// is full.
func (p *Pool) Submit(task ports.AnalysisTask) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.logger.Warn("queue full, dropping task", zap.String("job_id", task.JobID))
		return false
	}
}

var _ ports.AnalysisQueue = (*Pool)(nil)

func (p *Pool) process(task ports.AnalysisTask) {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	result, err := p.analyzer.Analyze(ctx, task.Signal)
	if err != nil {
		p.fail(task.JobID, fmt.Errorf("worker: analyze: %w", err))
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		p.fail(task.JobID, fmt.Errorf("worker: serialize result: %w", err))
		return
	}

	if err := p.repo.MarkDone(context.Background(), task.JobID, raw); err != nil {
		p.logger.Error("failed to persist result", zap.String("job_id", task.JobID), zap.Error(err))
		return
	}
	p.logger.Info("analysis job finished",
		zap.String("job_id", task.JobID),
		zap.Float64("duration_sec", result.DurationSec),
	)
}

func (p *Pool) fail(jobID string, err error) {
	p.logger.Warn("analysis job failed", zap.String("job_id", jobID), zap.Error(err))
	if markErr := p.repo.MarkError(context.Background(), jobID, err.Error()); markErr != nil {
		p.logger.Error("failed to mark job error", zap.String("job_id", jobID), zap.Error(markErr))
	}
}
