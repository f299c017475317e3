package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrors_AreDistinctAndWrappable(t *testing.T) {
	all := []error{
		ErrLaunchFailure, ErrRenderTimeout, ErrCaptureFailure, ErrCloseFailure,
		ErrPoolNotReady, ErrMarkup, ErrImageTooLarge,
		ErrEventTypeRequired, ErrEventSkipped, ErrInvalidEventID, ErrImageKeyRequired,
		ErrJobNotFound, ErrImageNotFound,
	}
	for i, a := range all {
		if a == nil || a.Error() == "" {
			t.Fatalf("error %d must be non-nil with a message", i)
		}
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Fatalf("errors %q and %q must be distinct", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("%w: %v", ErrRenderTimeout, errors.New("context deadline exceeded"))
	if !errors.Is(wrapped, ErrRenderTimeout) {
		t.Fatalf("expected errors.Is to match ErrRenderTimeout")
	}

	joined := errors.Join(fmt.Errorf("%w: instance 1", ErrCloseFailure), errors.New("other"))
	if !errors.Is(joined, ErrCloseFailure) {
		t.Fatalf("expected errors.Is to match ErrCloseFailure through Join")
	}
}
