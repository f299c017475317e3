package render

import (
	"context"
	"time"

	"goal-image-service/internal/domain"
	"goal-image-service/internal/infra/chrome"
	"goal-image-service/internal/infra/logging"
	"goal-image-service/internal/markup"
)

// Default output dimensions in CSS pixels.
const (
	DefaultWidth  = 900
	DefaultHeight = 900
)

// MarkupBuilder converts a render record into markup. It must be pure.
type MarkupBuilder func(domain.RenderRecord) (string, error)

// Generator is the rendering pipeline entry point: it owns the pool wiring and
// turns a render record into PNG bytes.
type Generator struct {
	pool   *chrome.Pool
	raster Rasterizer
	build  MarkupBuilder
}

// NewGenerator wires pool and raster together. A nil build uses the goal card markup.
func NewGenerator(pool *chrome.Pool, raster Rasterizer, build MarkupBuilder) *Generator {
	if build == nil {
		build = markup.BuildGoalMarkup
	}
	return &Generator{pool: pool, raster: raster, build: build}
}

// Pool exposes the underlying browser pool for stats reporting.
func (g *Generator) Pool() *chrome.Pool { return g.pool }

// Initialize launches the pool with its default size. It is a no-op once ready.
func (g *Generator) Initialize(ctx context.Context) error {
	return g.pool.Initialize(ctx, 0)
}

// Generate renders rec at width x height (defaulting to 900x900) and returns
// the PNG bytes. The pool is initialized on first use. The leased instance is
// released on every return path, including render failures.
func (g *Generator) Generate(ctx context.Context, rec domain.RenderRecord, width, height int) ([]byte, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	html, err := g.build(rec)
	if err != nil {
		return nil, err
	}

	if g.pool.State() != chrome.StateReady {
		if err := g.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	inst, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	logging.Debug("Generating image", "type", rec.Type, "id", rec.ID, "instance", inst.ID())
	start := time.Now()

	var renderErr error
	defer func() { g.pool.Release(inst, renderErr) }()

	png, renderErr := g.raster.Rasterize(ctx, inst, html, width, height)
	if renderErr != nil {
		logging.Error("Failed to generate image", "type", rec.Type, "id", rec.ID, "error", renderErr)
		return nil, renderErr
	}

	logging.Info("Image generated successfully", "type", rec.Type, "id", rec.ID, "bytes", len(png), "duration_ms", time.Since(start).Milliseconds())
	return png, nil
}

// Cleanup shuts the pool down. It is safe to call when never initialized.
func (g *Generator) Cleanup() error {
	return g.pool.Cleanup()
}
