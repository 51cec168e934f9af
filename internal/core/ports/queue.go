package ports

import "github.com/ewilliams-labs/rubato/backend/internal/core/domain"

// AnalysisTask is one decoded recording waiting for background analysis.
type AnalysisTask struct {
	JobID  string
	Signal domain.AudioSignal
}

// AnalysisQueue accepts tasks for asynchronous processing. Submit reports
// whether the task was accepted; a full queue returns false instead of
// blocking the upload request.
type AnalysisQueue interface {
	Submit(task AnalysisTask) bool
}
