package jobs

import (
	"context"

	"goal-image-service/internal/domain"
)

// Queue carries asynchronous generation jobs from the HTTP layer to workers.
type Queue interface {
	// Publish enqueues job.
	Publish(ctx context.Context, job domain.Job) error
	// Subscribe streams jobs until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan domain.Job, error)
	// Acknowledge confirms a job by its broker delivery id (Job.RawID).
	Acknowledge(ctx context.Context, rawID string) error
}
