package jobs

import (
	"context"

	"goal-image-service/internal/domain"
)

// MemoryQueue is a process-local Queue used when Redis is not configured.
// Jobs are lost on restart.
type MemoryQueue struct {
	ch chan domain.Job
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue buffers up to capacity jobs; Publish fails with
// domain.ErrQueueFull beyond that.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan domain.Job, capacity)}
}

func (q *MemoryQueue) Publish(ctx context.Context, job domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job.RawID = job.ID
	select {
	case q.ch <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

func (q *MemoryQueue) Subscribe(ctx context.Context) (<-chan domain.Job, error) {
	out := make(chan domain.Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.ch:
				select {
				case out <- job:
				case <-ctx.Done():
					// Put it back for the next subscriber.
					select {
					case q.ch <- job:
					default:
					}
					return
				}
			}
		}
	}()
	return out, nil
}

// Acknowledge is a no-op: delivery is destructive.
func (q *MemoryQueue) Acknowledge(context.Context, string) error { return nil }

// Len reports the number of buffered jobs.
func (q *MemoryQueue) Len() int { return len(q.ch) }
