package domain

import (
	"encoding/json"
	"time"
)

// Job statuses, mirrored on the wire.
const (
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusError      = "error"
)

// Job kinds.
const (
	JobKindAnalysis = "analysis"
)

// Job tracks one asynchronous analysis request. Result holds the serialized
// SingleAnalysis once the job is done.
type Job struct {
	ID        string
	Kind      string
	Status    string
	Error     string
	Result    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Done reports whether the job finished successfully.
func (j Job) Done() bool {
	return j.Status == JobStatusDone
}
