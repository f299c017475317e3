package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/chrome"
)

type tabFailBrowser struct{}

func (tabFailBrowser) NewTab(context.Context) (context.Context, context.CancelFunc, error) {
	return nil, nil, errors.New("target closed")
}

func (tabFailBrowser) Close() error { return nil }

type staticLauncher struct{ browser chrome.Browser }

func (l staticLauncher) Launch(context.Context) (chrome.Browser, error) { return l.browser, nil }

func leaseOne(t *testing.T, b chrome.Browser) (*chrome.Pool, *chrome.Instance) {
	t.Helper()
	p := chrome.NewPool(staticLauncher{browser: b}, 1)
	require.NoError(t, p.Initialize(context.Background(), 1))
	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)
	return p, inst
}

func TestRasterize_TabFailureIsCaptureFailure(t *testing.T) {
	p, inst := leaseOne(t, tabFailBrowser{})
	defer p.Cleanup()

	r := NewChromeRasterizer(time.Second, 0)
	_, err := r.Rasterize(context.Background(), inst, "<p>x</p>", 100, 100)
	assert.ErrorIs(t, err, domain.ErrCaptureFailure)
}

func TestRasterize_CancelledContext(t *testing.T) {
	p, inst := leaseOne(t, tabFailBrowser{})
	defer p.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChromeRasterizer(0, 0).Rasterize(ctx, inst, "<p>x</p>", 100, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewChromeRasterizer_Defaults(t *testing.T) {
	r := NewChromeRasterizer(0, -1)
	assert.Equal(t, DefaultLoadTimeout, r.LoadTimeout)
	assert.Equal(t, DefaultSettleDelay, r.SettleDelay)

	r = NewChromeRasterizer(5*time.Second, 0)
	assert.Equal(t, 5*time.Second, r.LoadTimeout)
	assert.Equal(t, time.Duration(0), r.SettleDelay)
}

func TestDataURL(t *testing.T) {
	markup := `<div style="color:#fff">Gol! ü</div>`
	u := dataURL(markup)

	const prefix = "data:text/html;charset=utf-8;base64,"
	require.True(t, strings.HasPrefix(u, prefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, prefix))
	require.NoError(t, err)
	assert.Equal(t, markup, string(decoded))
}

func chromeBinary() string {
	if p := os.Getenv("CHROME_BIN"); p != "" {
		return p
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func TestRasterize_Chrome(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := chromeBinary()
	if bin == "" {
		t.Skip("no chrome binary available")
	}

	p := chrome.NewPool(chrome.ExecLauncher{ChromePath: bin, UserDataDir: t.TempDir()}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, p.Initialize(ctx, 1))
	defer p.Cleanup()

	inst, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer p.Release(inst, nil)

	markup := `<html><body style="margin:0"><div style="width:200px;height:100px;background:#e11d48"></div></body></html>`
	out, err := NewChromeRasterizer(10*time.Second, 50*time.Millisecond).Rasterize(ctx, inst, markup, 200, 100)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, pngMagic))

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200*DeviceScaleFactor, cfg.Width)
	assert.Equal(t, 100*DeviceScaleFactor, cfg.Height)
}

func TestRasterize_ChromeTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := chromeBinary()
	if bin == "" {
		t.Skip("no chrome binary available")
	}

	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-hold:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(hold)

	p := chrome.NewPool(chrome.ExecLauncher{ChromePath: bin, UserDataDir: t.TempDir()}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, p.Initialize(ctx, 1))
	defer p.Cleanup()

	inst, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer p.Release(inst, nil)

	markup := `<html><body><img src="` + srv.URL + `/slow.png"></body></html>`
	start := time.Now()
	_, err = NewChromeRasterizer(time.Second, 10*time.Millisecond).Rasterize(ctx, inst, markup, 100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderTimeout)
	assert.Less(t, time.Since(start), 15*time.Second)
}
