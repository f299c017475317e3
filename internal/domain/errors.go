package domain

import "errors"

// Rendering pipeline errors.
var (
	// ErrLaunchFailure signals that a browser process could not be started.
	ErrLaunchFailure = errors.New("browser launch failed")
	// ErrRenderTimeout signals that a page never reached a quiescent load state.
	ErrRenderTimeout = errors.New("render timed out")
	// ErrCaptureFailure signals that the page could not be opened or captured.
	ErrCaptureFailure = errors.New("screenshot capture failed")
	// ErrCloseFailure signals that a browser instance could not be shut down.
	ErrCloseFailure = errors.New("browser close failed")
	// ErrPoolNotReady signals that the pool is not initialized.
	ErrPoolNotReady = errors.New("browser pool not ready")
	// ErrMarkup signals that the render record could not be turned into markup.
	ErrMarkup = errors.New("markup build failed")
	// ErrImageTooLarge signals that the rendered image exceeds the configured limit.
	ErrImageTooLarge = errors.New("image exceeds allowed size")
)

// Request validation errors.
var (
	ErrEventTypeRequired = errors.New("event_type is required")
	ErrEventSkipped      = errors.New("process skipped: only GOAL or OWN GOAL events trigger image generation")
	ErrInvalidEventID    = errors.New("event_id and fixture_id must be numeric")
	ErrImageKeyRequired  = errors.New("imageKey parameter is required")
)

// Lookup errors.
var (
	ErrJobNotFound   = errors.New("job not found")
	ErrImageNotFound = errors.New("image not found")
)

// ErrQueueFull signals that the job queue cannot take another job right now.
var ErrQueueFull = errors.New("job queue is full")
