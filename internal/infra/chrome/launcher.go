package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/chromedp"
)

// Browser is one running rendering engine that can open isolated tabs.
type Browser interface {
	// NewTab opens a fresh tab and returns its chromedp context together with
	// the function that closes it.
	NewTab(ctx context.Context) (context.Context, context.CancelFunc, error)
	Close() error
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// launchFlags is the fixed flag set every browser process starts with. It is
// tuned for constrained container hosts: no sandbox, no GPU, no /dev/shm.
var launchFlags = map[string]any{
	"headless":                      true,
	"no-sandbox":                    true,
	"disable-setuid-sandbox":        true,
	"disable-dev-shm-usage":         true,
	"disable-gpu":                   true,
	"disable-accelerated-2d-canvas": true,
	"no-first-run":                  true,
	"no-zygote":                     true,
	"hide-scrollbars":               true,
	"mute-audio":                    true,
}

// ExecLauncher launches local Chrome processes through chromedp.
type ExecLauncher struct {
	// ChromePath overrides the browser binary; empty uses chromedp's lookup.
	ChromePath string
	// UserDataDir is the base directory for per-process profile directories.
	UserDataDir string
}

var _ Launcher = ExecLauncher{}

func (l ExecLauncher) allocatorOptions(profileDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.UserDataDir(profileDir))
	for name, value := range launchFlags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if l.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(l.ChromePath))
	}
	return opts
}

// Launch starts one browser process with its own profile directory and waits
// until it accepts DevTools commands or ctx ends.
func (l ExecLauncher) Launch(ctx context.Context) (Browser, error) {
	profileDir, err := createProfileDir(l.UserDataDir)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions(profileDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := start(ctx, browserCtx); err != nil {
		browserCancel()
		allocCancel()
		_ = os.RemoveAll(profileDir)
		return nil, err
	}

	return &chromeBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		profileDir:  profileDir,
	}, nil
}

// start runs the first (empty) chromedp action on target, which allocates the
// browser or tab behind it. It gives up when ctx ends; the caller must then
// cancel target.
func start(ctx, target context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profileDir  string
}

func (b *chromeBrowser) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := start(ctx, tabCtx); err != nil {
		cancel()
		return nil, nil, err
	}
	return tabCtx, cancel, nil
}

func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if rmErr := os.RemoveAll(b.profileDir); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// createProfileDir creates a unique Chrome profile directory under base, or
// under the system temp dir when base is empty.
func createProfileDir(base string) (string, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("cannot create profile base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "goal-image-chrome-*")
	if err != nil {
		return "", fmt.Errorf("cannot create profile dir: %w", err)
	}
	return dir, nil
}

// IsSessionInterrupted reports whether err means the browser session went away
// underneath a render (crashed process, closed target, cancelled context).
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"target closed",
		"context canceled",
		"context deadline exceeded",
		"websocket",
		"invalid context",
		"session closed",
		"connection reset",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
