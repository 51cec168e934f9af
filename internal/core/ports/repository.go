package ports

import (
	"context"
	"encoding/json"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// JobRepository persists analysis jobs and their results.
type JobRepository interface {
	Create(ctx context.Context, job domain.Job) error
	GetByID(ctx context.Context, id string) (domain.Job, error)
	MarkDone(ctx context.Context, id string, result json.RawMessage) error
	MarkError(ctx context.Context, id string, message string) error
}
