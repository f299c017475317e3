package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/logging"
)

// ImageGenerator produces and stores one image for a request.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.EventImageRequest) (domain.ImageRecord, error)
}

// DefaultJobTimeout bounds a single job.
const DefaultJobTimeout = 2 * time.Minute

// finalizeTimeout bounds the terminal status write and acknowledgement.
const finalizeTimeout = 5 * time.Second

// Dispatcher runs a fixed number of workers that consume the queue.
type Dispatcher struct {
	queue      Queue
	status     StatusStore
	gen        ImageGenerator
	workers    int
	jobTimeout time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewDispatcher(queue Queue, status StatusStore, gen ImageGenerator, workers int, jobTimeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Dispatcher{queue: queue, status: status, gen: gen, workers: workers, jobTimeout: jobTimeout}
}

// Submit records a queued status and publishes the job. It returns the job id.
func (d *Dispatcher) Submit(ctx context.Context, req domain.EventImageRequest) (string, error) {
	job := domain.Job{ID: uuid.NewString(), Request: req}
	if err := d.status.Set(ctx, domain.JobStatus{ID: job.ID, State: domain.JobQueued}); err != nil {
		return "", err
	}
	if err := d.queue.Publish(ctx, job); err != nil {
		_ = d.status.Set(ctx, domain.JobStatus{ID: job.ID, State: domain.JobFailed, Error: err.Error()})
		return "", err
	}
	logging.Info("Job queued", "job_id", job.ID, "event_id", req.EventID)
	return job.ID, nil
}

// Status returns the current state of a job.
func (d *Dispatcher) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	return d.status.Get(ctx, id)
}

// Start subscribes to the queue and spawns the workers. It returns immediately.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already started")
	}

	subCtx, cancel := context.WithCancel(ctx)
	jobs, err := d.queue.Subscribe(subCtx)
	if err != nil {
		cancel()
		return err
	}
	d.cancel = cancel
	d.running = true

	logging.Info("Starting job dispatcher", "workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i, jobs)
	}
	return nil
}

// Stop ends the subscription and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.running = false
	d.mu.Unlock()

	logging.Info("Stopping job dispatcher, waiting for jobs to drain")
	d.wg.Wait()
	logging.Info("Job dispatcher stopped")
}

func (d *Dispatcher) worker(id int, jobs <-chan domain.Job) {
	defer d.wg.Done()
	for job := range jobs {
		d.process(id, job)
	}
}

func (d *Dispatcher) process(workerID int, job domain.Job) {
	// In-flight jobs run on their own context so Stop lets them complete.
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	logging.Debug("Processing job", "worker", workerID, "job_id", job.ID)
	d.setStatus(ctx, domain.JobStatus{ID: job.ID, State: domain.JobRunning})

	rec, err := d.gen.Generate(ctx, job.Request)

	// The job context may already be expired here; the final write and ack
	// must still reach the broker.
	doneCtx, cancelDone := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelDone()

	if err != nil {
		logging.Error("Job failed", "job_id", job.ID, "error", err)
		d.setStatus(doneCtx, domain.JobStatus{ID: job.ID, State: domain.JobFailed, Error: err.Error()})
	} else {
		logging.Info("Job done", "job_id", job.ID, "image_key", rec.ImageKey)
		d.setStatus(doneCtx, domain.JobStatus{ID: job.ID, State: domain.JobDone, ImageURL: rec.URL, ImageKey: rec.ImageKey})
	}

	if err := d.queue.Acknowledge(doneCtx, job.RawID); err != nil {
		logging.Warn("Failed to acknowledge job", "job_id", job.ID, "raw_id", job.RawID, "error", err)
	}
}

func (d *Dispatcher) setStatus(ctx context.Context, st domain.JobStatus) {
	if err := d.status.Set(ctx, st); err != nil {
		logging.Warn("Failed to update job status", "job_id", st.ID, "state", st.State, "error", err)
	}
}
