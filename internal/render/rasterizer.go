package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/chrome"
)

// Rasterization defaults.
const (
	DefaultLoadTimeout = 30 * time.Second
	DefaultSettleDelay = 500 * time.Millisecond
	// DeviceScaleFactor doubles the output resolution: a WxH page yields a 2Wx2H PNG.
	DeviceScaleFactor = 2
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// Rasterizer turns markup into a PNG using a leased browser instance.
type Rasterizer interface {
	Rasterize(ctx context.Context, inst *chrome.Instance, markup string, width, height int) ([]byte, error)
}

// ChromeRasterizer captures full-page transparent PNG screenshots with chromedp.
type ChromeRasterizer struct {
	// LoadTimeout bounds the wait for network idle and DOMContentLoaded.
	LoadTimeout time.Duration
	// SettleDelay is slept after load so late font and image decodes land in
	// the capture. Slow remote assets can still miss it.
	SettleDelay time.Duration
}

var _ Rasterizer = (*ChromeRasterizer)(nil)

// NewChromeRasterizer returns a rasterizer with the given timings; zero values
// fall back to the defaults.
func NewChromeRasterizer(loadTimeout, settleDelay time.Duration) *ChromeRasterizer {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	if settleDelay < 0 {
		settleDelay = DefaultSettleDelay
	}
	return &ChromeRasterizer{LoadTimeout: loadTimeout, SettleDelay: settleDelay}
}

// Rasterize opens an isolated tab, loads markup at width x height CSS pixels
// with a 2x device scale factor and returns a full-page PNG. The tab is closed
// on every return path.
func (r *ChromeRasterizer) Rasterize(ctx context.Context, inst *chrome.Instance, markup string, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, closeTab, err := inst.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open tab: %v", domain.ErrCaptureFailure, err)
	}
	defer closeTab()

	// Abandon the tab as soon as the caller gives up.
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	tracker := newLifecycleTracker()
	chromedp.ListenTarget(tabCtx, tracker.observe)

	loadCtx, cancelLoad := context.WithTimeout(tabCtx, r.LoadTimeout)
	defer cancelLoad()

	err = chromedp.Run(loadCtx,
		chromedp.EmulateViewport(int64(width), int64(height), chromedp.EmulateScale(DeviceScaleFactor)),
		transparentBackground(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(dataURL(markup)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return tracker.wait(ctx, tree.Frame.LoaderID, eventDOMContentLoaded, eventNetworkIdle)
		}),
	)
	if err != nil {
		if errors.Is(loadCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: page not idle after %s: %v", domain.ErrRenderTimeout, r.LoadTimeout, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: load page: %v", domain.ErrCaptureFailure, err)
	}

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Sleep(r.SettleDelay),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureFailure, err)
	}
	if !bytes.HasPrefix(buf, pngMagic) {
		return nil, fmt.Errorf("%w: capture is not a PNG (%d bytes)", domain.ErrCaptureFailure, len(buf))
	}
	return buf, nil
}

// transparentBackground drops the default white page background so transparent
// template regions stay transparent in the PNG.
func transparentBackground() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		// Sent as a plain map so the zero alpha channel is not dropped as an empty field.
		params := map[string]any{
			"color": map[string]any{"r": 0, "g": 0, "b": 0, "a": 0},
		}
		return cdp.Execute(ctx, emulation.CommandSetDefaultBackgroundColorOverride, params, nil)
	})
}

func dataURL(markup string) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(markup))
}
