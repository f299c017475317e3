package render

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

// Page lifecycle event names reported by Chrome.
const (
	eventDOMContentLoaded = "DOMContentLoaded"
	eventNetworkIdle      = "networkIdle"
)

// lifecycleTracker records page lifecycle events per loader so a wait can
// ignore events left over from an earlier navigation of the same tab.
type lifecycleTracker struct {
	mu      sync.Mutex
	seen    map[cdp.LoaderID]map[string]bool
	changed chan struct{}
}

func newLifecycleTracker() *lifecycleTracker {
	return &lifecycleTracker{
		seen:    make(map[cdp.LoaderID]map[string]bool),
		changed: make(chan struct{}),
	}
}

// observe is a chromedp target listener.
func (t *lifecycleTracker) observe(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	t.record(e.LoaderID, e.Name)
}

func (t *lifecycleTracker) record(loader cdp.LoaderID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := t.seen[loader]
	if names == nil {
		names = make(map[string]bool)
		t.seen[loader] = names
	}
	names[name] = true
	close(t.changed)
	t.changed = make(chan struct{})
}

// wait blocks until every name has been reported for loader or ctx ends.
func (t *lifecycleTracker) wait(ctx context.Context, loader cdp.LoaderID, names ...string) error {
	for {
		t.mu.Lock()
		done := true
		for _, n := range names {
			if !t.seen[loader][n] {
				done = false
				break
			}
		}
		changed := t.changed
		t.mu.Unlock()

		if done {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
