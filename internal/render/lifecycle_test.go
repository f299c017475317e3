package render

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleTracker_WaitsForAllEventsOfLoader(t *testing.T) {
	tr := newLifecycleTracker()

	// Events of a previous navigation must not satisfy the wait.
	tr.observe(&page.EventLifecycleEvent{LoaderID: "old", Name: eventNetworkIdle})
	tr.observe(&page.EventLifecycleEvent{LoaderID: "old", Name: eventDOMContentLoaded})

	done := make(chan error, 1)
	go func() {
		done <- tr.wait(context.Background(), "new", eventDOMContentLoaded, eventNetworkIdle)
	}()

	tr.observe(&page.EventLifecycleEvent{LoaderID: "new", Name: eventDOMContentLoaded})
	select {
	case <-done:
		t.Fatal("wait returned before networkIdle")
	case <-time.After(30 * time.Millisecond):
	}

	tr.observe(&page.EventLifecycleEvent{LoaderID: "new", Name: eventNetworkIdle})
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after all events arrived")
	}
}

func TestLifecycleTracker_AlreadySeen(t *testing.T) {
	tr := newLifecycleTracker()
	tr.record("l", eventDOMContentLoaded)
	tr.record("l", eventNetworkIdle)
	assert.NoError(t, tr.wait(context.Background(), "l", eventDOMContentLoaded, eventNetworkIdle))
}

func TestLifecycleTracker_IgnoresOtherEvents(t *testing.T) {
	tr := newLifecycleTracker()
	tr.observe(&page.EventFrameNavigated{})
	tr.observe("noise")
	assert.Empty(t, tr.seen)
}

func TestLifecycleTracker_ContextDeadline(t *testing.T) {
	tr := newLifecycleTracker()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.wait(ctx, "never", eventNetworkIdle)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
