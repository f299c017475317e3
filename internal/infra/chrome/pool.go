package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/logging"
)

// State is the pool lifecycle: Uninitialized -> Initializing -> Ready -> Uninitialized.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// HealthCheck inspects an instance when its lease is returned. A non-nil
// error marks the instance unhealthy; it stays in the free set.
type HealthCheck func(ctx context.Context, inst *Instance) error

// Instance is one running browser process owned by a Pool.
type Instance struct {
	id      int
	gen     uint64
	browser Browser
	leased  bool // guarded by Pool.mu
	healthy atomic.Bool
}

// ID is the 1-based position of the instance within its pool generation.
func (i *Instance) ID() int { return i.id }

// Healthy reports the result of the last health check.
func (i *Instance) Healthy() bool { return i.healthy.Load() }

// NewTab opens an isolated tab in the instance's browser.
func (i *Instance) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	return i.browser.NewTab(ctx)
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	State        string `json:"state"`
	Capacity     int    `json:"capacity"`
	Idle         int    `json:"idle"`
	InUse        int    `json:"in_use"`
	Unhealthy    int    `json:"unhealthy"`
	PoolSizeConf int    `json:"pool_size_conf"`
	Launches     int    `json:"launches"`
}

// Option configures a Pool.
type Option func(*Pool)

// WithHealthCheck installs fn to run on every Release, bounded by timeout.
func WithHealthCheck(fn HealthCheck, timeout time.Duration) Option {
	return func(p *Pool) {
		p.healthCheck = fn
		if timeout > 0 {
			p.healthTimeout = timeout
		}
	}
}

// Pool owns a fixed number of browser instances and hands out exclusive
// leases. The free list is a stack: the most recently released instance is
// handed out first, and waiters are not served in FIFO order.
type Pool struct {
	launcher      Launcher
	defaultSize   int
	healthCheck   HealthCheck
	healthTimeout time.Duration

	// lifecycle serializes Initialize and Cleanup.
	lifecycle sync.Mutex

	mu       sync.Mutex
	state    State
	gen      uint64
	all      []*Instance
	free     []*Instance
	released chan struct{} // closed and replaced whenever the free set grows or the state changes
	launches int
}

// NewPool creates an uninitialized pool that launches defaultSize browsers
// through launcher on Initialize.
func NewPool(launcher Launcher, defaultSize int, opts ...Option) *Pool {
	if defaultSize < 1 {
		defaultSize = 1
	}
	p := &Pool{
		launcher:      launcher,
		defaultSize:   defaultSize,
		healthTimeout: 5 * time.Second,
		released:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize launches size browsers, or the default size when size <= 0.
// It is a no-op when the pool is already ready. If any launch fails, the
// instances started so far are closed and the pool stays uninitialized.
func (p *Pool) Initialize(ctx context.Context, size int) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	if p.state == StateReady {
		p.mu.Unlock()
		return nil
	}
	if size <= 0 {
		size = p.defaultSize
	}
	p.state = StateInitializing
	p.mu.Unlock()

	logging.Info("Initializing browser pool", "pool_size", size)

	instances := make([]*Instance, 0, size)
	for i := 0; i < size; i++ {
		b, err := p.launcher.Launch(ctx)
		if err != nil {
			p.discard(instances)
			p.mu.Lock()
			p.state = StateUninitialized
			p.broadcastLocked()
			p.mu.Unlock()

			logging.Error("Failed to initialize browser pool", "instance", i+1, "pool_size", size, "error", err)
			return fmt.Errorf("%w: instance %d of %d: %v", domain.ErrLaunchFailure, i+1, size, err)
		}
		inst := &Instance{id: i + 1, browser: b}
		inst.healthy.Store(true)
		instances = append(instances, inst)
		logging.Debug("Browser launched", "instance", i+1)
	}

	p.mu.Lock()
	p.gen++
	for _, inst := range instances {
		inst.gen = p.gen
	}
	p.all = instances
	p.free = append(make([]*Instance, 0, size), instances...)
	p.launches += size
	p.state = StateReady
	p.broadcastLocked()
	p.mu.Unlock()

	logging.Info("Browser pool initialized", "pool_size", size)
	return nil
}

// discard closes instances from a failed initialization.
func (p *Pool) discard(instances []*Instance) {
	for _, inst := range instances {
		if err := inst.browser.Close(); err != nil {
			logging.Warn("Failed to close browser after launch failure", "instance", inst.id, "error", err)
		}
	}
}

// Acquire leases a free instance, waiting until one is released when all are
// in use. The wait ends early only when ctx is done or the pool is cleaned up.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	for {
		p.mu.Lock()
		if p.state != StateReady {
			p.mu.Unlock()
			return nil, domain.ErrPoolNotReady
		}
		if n := len(p.free); n > 0 {
			inst := p.free[n-1]
			p.free[n-1] = nil
			p.free = p.free[:n-1]
			inst.leased = true
			p.mu.Unlock()
			return inst, nil
		}
		wait := p.released
		p.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a leased instance to the free set. renderErr is the outcome
// of the work done under the lease and is passed along for logging only.
// Releasing an instance twice, or one from a pool generation that has since
// been cleaned up, is ignored.
func (p *Pool) Release(inst *Instance, renderErr error) {
	if inst == nil {
		return
	}

	if p.healthCheck != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.healthTimeout)
		err := p.healthCheck(ctx, inst)
		cancel()
		if err != nil {
			if inst.healthy.Swap(false) {
				logging.Warn("Browser instance failed health check", "instance", inst.id, "error", err, "render_error", renderErr)
			}
		} else {
			inst.healthy.Store(true)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateReady || inst.gen != p.gen {
		logging.Warn("Released browser does not belong to the current pool", "instance", inst.id)
		return
	}
	if !inst.leased {
		logging.Warn("Browser released while not leased", "instance", inst.id)
		return
	}
	inst.leased = false
	p.free = append(p.free, inst)
	p.broadcastLocked()
}

// Cleanup closes every instance, collecting per-instance close failures
// instead of stopping at the first, and resets the pool so Initialize can run
// again. It is safe to call on a pool that was never initialized.
func (p *Pool) Cleanup() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	all := p.all
	p.all = nil
	p.free = nil
	p.state = StateUninitialized
	p.gen++
	p.broadcastLocked()
	p.mu.Unlock()

	if len(all) == 0 {
		return nil
	}

	logging.Info("Cleaning up browser pool", "instances", len(all))

	var errs []error
	for _, inst := range all {
		if err := inst.browser.Close(); err != nil {
			logging.Error("Error closing browser", "instance", inst.id, "error", err)
			errs = append(errs, fmt.Errorf("%w: instance %d: %v", domain.ErrCloseFailure, inst.id, err))
		}
	}

	logging.Info("Browser pool cleaned up", "failed", len(errs))
	return errors.Join(errs...)
}

// broadcastLocked wakes every goroutine blocked in Acquire. p.mu must be held.
func (p *Pool) broadcastLocked() {
	close(p.released)
	p.released = make(chan struct{})
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Size returns the number of instances owned by the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// DefaultSize returns the size used when Initialize is called without one.
func (p *Pool) DefaultSize() int { return p.defaultSize }

// Stats returns a snapshot of capacity and lease counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	unhealthy := 0
	for _, inst := range p.all {
		if !inst.healthy.Load() {
			unhealthy++
		}
	}
	return Stats{
		State:        p.state.String(),
		Capacity:     len(p.all),
		Idle:         len(p.free),
		InUse:        len(p.all) - len(p.free),
		Unhealthy:    unhealthy,
		PoolSizeConf: p.defaultSize,
		Launches:     p.launches,
	}
}
