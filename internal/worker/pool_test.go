package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/rubato/backend/internal/core/analysis"
	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

type recordingRepo struct {
	mu     sync.Mutex
	done   map[string]json.RawMessage
	failed map[string]string
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{done: make(map[string]json.RawMessage), failed: make(map[string]string)}
}

func (r *recordingRepo) Create(context.Context, domain.Job) error { return nil }

func (r *recordingRepo) GetByID(context.Context, string) (domain.Job, error) {
	return domain.Job{}, domain.ErrNotFound
}

func (r *recordingRepo) MarkDone(_ context.Context, id string, result json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[id] = result
	return nil
}

func (r *recordingRepo) MarkError(_ context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = message
	return nil
}

var _ ports.JobRepository = (*recordingRepo)(nil)

type fixedDetector struct {
	beats []float64
	err   error
}

func (d fixedDetector) DetectPulses([]float64, int) ([]float64, error) {
	return d.beats, d.err
}

func steadyBeats(n int, interval float64) []float64 {
	beats := make([]float64, n)
	for i := range beats {
		beats[i] = float64(i) * interval
	}
	return beats
}

func testSignal(seconds float64) domain.AudioSignal {
	const rate = 22050
	samples := make([]float64, int(seconds*rate))
	for i := range samples {
		samples[i] = 0.3
	}
	return domain.AudioSignal{Samples: samples, SampleRate: rate}
}

func TestPoolProcessesTask(t *testing.T) {
	repo := newRecordingRepo()
	analyzer := analysis.New(fixedDetector{beats: steadyBeats(8, 0.75)}, analysis.DefaultConfig(), nil)
	pool := NewPool(repo, analyzer, 4, nil)
	pool.Start(2)

	require.True(t, pool.Submit(ports.AnalysisTask{JobID: "job-1", Signal: testSignal(6)}))
	pool.Stop()

	raw, ok := repo.done["job-1"]
	require.True(t, ok)

	var result domain.SingleAnalysis
	require.NoError(t, json.Unmarshal(raw, &result))
	require.InDelta(t, 6.0, result.DurationSec, 0.01)
	require.NotEmpty(t, result.TempoCurve)
}

func TestPoolMarksFailedJob(t *testing.T) {
	repo := newRecordingRepo()
	analyzer := analysis.New(fixedDetector{err: errors.New("onset backend crashed")}, analysis.DefaultConfig(), nil)
	pool := NewPool(repo, analyzer, 4, nil)
	pool.Start(1)

	require.True(t, pool.Submit(ports.AnalysisTask{JobID: "job-2", Signal: testSignal(2)}))
	pool.Stop()

	require.Empty(t, repo.done)
	require.Contains(t, repo.failed["job-2"], "onset backend crashed")
}

func TestPoolRejectsWhenFull(t *testing.T) {
	repo := newRecordingRepo()
	analyzer := analysis.New(fixedDetector{}, analysis.DefaultConfig(), nil)
	pool := NewPool(repo, analyzer, 1, nil)
	// No workers started, so the single queue slot fills immediately.
	require.True(t, pool.Submit(ports.AnalysisTask{JobID: "a", Signal: testSignal(1)}))
	require.False(t, pool.Submit(ports.AnalysisTask{JobID: "b", Signal: testSignal(1)}))
}
