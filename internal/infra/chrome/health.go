package chrome

import (
	"context"

	"github.com/chromedp/chromedp"
)

// TabProbe is a HealthCheck that opens a throwaway tab and evaluates a trivial
// expression in it.
func TabProbe(ctx context.Context, inst *Instance) error {
	tabCtx, closeTab, err := inst.NewTab(ctx)
	if err != nil {
		return err
	}
	defer closeTab()

	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var ok bool
	return chromedp.Run(tabCtx, chromedp.Evaluate(`true`, &ok))
}
