// Package session holds the interactive state of a fractal explorer: the selected variant
// and the viewport the user has zoomed into.
package session

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/render"
)

// DefaultZoomScale is the span factor applied by one click.
const DefaultZoomScale = 0.5

// Explorer owns one variant and its current viewport.
// All methods are serialized, so a render always sees a settled viewport.
type Explorer struct {
	mu  sync.Mutex
	txn sync.Mutex // held by Manager.Update

	variant  fractal.Variant
	viewport fractal.Viewport
	zooms    int
	updated  time.Time

	zoomScale float64
	renderer  *render.Renderer
	now       func() time.Time
}

type Option func(*Explorer)

// WithZoomScale sets the span factor of ClickAt, it must be in (0, 1].
func WithZoomScale(scale float64) Option {
	return func(e *Explorer) {
		e.zoomScale = scale
	}
}

// WithRenderer sets the renderer used by Render.
func WithRenderer(r *render.Renderer) Option {
	return func(e *Explorer) {
		e.renderer = r
	}
}

func withClock(now func() time.Time) Option {
	return func(e *Explorer) {
		e.now = now
	}
}

// New creates an explorer showing the default viewport of v.
func New(v fractal.Variant, opts ...Option) *Explorer {
	e := &Explorer{
		zoomScale: DefaultZoomScale,
		renderer:  &render.Renderer{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !(e.zoomScale > 0 && e.zoomScale <= 1) {
		panic(fmt.Sprintf("session: zoom scale must be in (0, 1], got %v", e.zoomScale))
	}
	e.selectVariant(v)
	return e
}

// Restore recreates an explorer from a saved state.
func Restore(st State, opts ...Option) (*Explorer, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	e := New(st.Variant, opts...)
	e.restore(st)
	return e, nil
}

// restore puts back a state taken with State.
func (e *Explorer) restore(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variant = st.Variant
	e.viewport = st.Viewport
	e.zooms = st.Zooms
	e.updated = st.UpdatedAt
}

// SelectVariant switches to v and discards any zoom.
func (e *Explorer) SelectVariant(v fractal.Variant) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectVariant(v)
}

func (e *Explorer) selectVariant(v fractal.Variant) {
	e.viewport = v.DefaultViewport()
	e.variant = v
	e.zooms = 0
	e.updated = e.now()
}

// Reset returns to the default viewport of the current variant.
func (e *Explorer) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.Reset(e.variant.DefaultViewport())
	e.zooms = 0
	e.updated = e.now()
}

// ZoomAt recenters the viewport on pixel (px, py) of a size×size grid and zooms in.
// It returns the complex coordinate that became the new center.
func (e *Explorer) ZoomAt(px, py, size int) complex128 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoomAt(px, py, size)
}

func (e *Explorer) zoomAt(px, py, size int) complex128 {
	c := e.viewport.Point(px, py, size)
	e.viewport.RecenterAndZoom(c, e.zoomScale)
	e.zooms++
	e.updated = e.now()
	return c
}

// ClickAt zooms in on the clicked pixel and renders the new view at the same size.
func (e *Explorer) ClickAt(px, py, size int) *render.PixelBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoomAt(px, py, size)
	return e.renderer.Render(e.frame(size))
}

// Goto jumps to a landmark, selecting its variant.
func (e *Explorer) Goto(l fractal.Landmark) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selectVariant(l.Variant)
	e.viewport = l.Region.Viewport()
}

// Render computes the current view on a size×size grid.
func (e *Explorer) Render(size int) *render.PixelBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer.Render(e.frame(size))
}

// RenderContext is Render that gives up when ctx is done.
func (e *Explorer) RenderContext(ctx context.Context, size int) (*render.PixelBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer.RenderContext(ctx, e.frame(size))
}

// RenderImage renders the current view as an image, supersampled aa times.
func (e *Explorer) RenderImage(ctx context.Context, size, aa int) (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer.RenderImage(ctx, e.frame(size), aa)
}

// Capture is RenderImage that also returns the state the image shows.
func (e *Explorer) Capture(ctx context.Context, size, aa int) (*image.RGBA, State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	img, err := e.renderer.RenderImage(ctx, e.frame(size), aa)
	if err != nil {
		return nil, State{}, err
	}
	return img, e.state(), nil
}

// Frame returns the current variant and viewport for a size×size render.
func (e *Explorer) Frame(size int) render.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame(size)
}

func (e *Explorer) frame(size int) render.Frame {
	return render.Frame{Variant: e.variant, Viewport: e.viewport, Size: size}
}

// Variant is the currently selected variant.
func (e *Explorer) Variant() fractal.Variant {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.variant
}

// Viewport is a copy of the current viewport.
func (e *Explorer) Viewport() fractal.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// State snapshots the explorer for persistence.
func (e *Explorer) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Explorer) state() State {
	return State{
		Variant:       e.variant,
		Viewport:      e.viewport,
		Zooms:         e.zooms,
		Magnification: e.viewport.Magnification(e.variant.DefaultViewport()),
		UpdatedAt:     e.updated,
	}
}
