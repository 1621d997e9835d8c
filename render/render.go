// Package render turns a fractal variant and viewport into a grid of colors.
package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	fractal "github.com/marben/fractal_explorer"
)

const DefaultTileSize = 64

// Frame is everything a render reads. It is passed by value, so workers never observe
// a viewport that is being zoomed.
type Frame struct {
	Variant  fractal.Variant
	Viewport fractal.Viewport
	Size     int
}

func (f Frame) validate() {
	if f.Size <= 0 {
		panic(fmt.Sprintf("render: grid size must be positive, got %d", f.Size))
	}
	if !f.Variant.Valid() {
		panic(fmt.Sprintf("render: invalid variant %d", int(f.Variant)))
	}
	if !f.Viewport.Valid() {
		panic(fmt.Sprintf("render: invalid viewport %s", f.Viewport))
	}
}

// Renderer computes pixel buffers. The zero value renders with one worker per CPU.
type Renderer struct {
	// Workers is the number of goroutines sharing the tiles, 0 means runtime.NumCPU().
	Workers int
	// TileSize is the side of a work unit in pixels, 0 means DefaultTileSize.
	TileSize int
	// OnTileRender, if set, is called from the worker goroutine after each tile.
	OnTileRender func(tile image.Rectangle)
	Logger       *slog.Logger
}

// Render computes the color field of v over vp on a size×size grid.
func Render(v fractal.Variant, vp fractal.Viewport, size int) *PixelBuffer {
	var r Renderer
	return r.Render(Frame{Variant: v, Viewport: vp, Size: size})
}

// Render computes the full frame. It cannot fail; contract violations panic.
func (r *Renderer) Render(f Frame) *PixelBuffer {
	buf, err := r.RenderContext(context.Background(), f)
	if err != nil {
		panic(fmt.Sprintf("render: background render failed: %v", err))
	}
	return buf
}

// RenderContext is Render that stops handing out tiles once ctx is done.
// A partially rendered buffer is never returned.
func (r *Renderer) RenderContext(ctx context.Context, f Frame) (*PixelBuffer, error) {
	f.validate()

	buf := newPixelBuffer(f.Size)
	sched := newTileScheduler(f.Size, r.tileSize())
	workers := min(r.workers(), sched.tilesCount())

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			return r.renderTiles(ctx, f, sched, buf)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render %s at %s: %w", f.Variant, f.Viewport, err)
	}
	return buf, nil
}

// renders unstarted tiles until none is left
// can be called from multiple goroutines in parallel
func (r *Renderer) renderTiles(ctx context.Context, f Frame, sched *tileScheduler, buf *PixelBuffer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tile, found := sched.popTile()
		if !found {
			return nil
		}
		RenderTile(f, tile, buf)
		if r.OnTileRender != nil {
			r.OnTileRender(tile)
		}
		done := sched.tileFinished(tile)
		if r.Logger != nil {
			r.Logger.Debug("tile rendered", "tile", tile, "finished", done)
		}
	}
}

// RenderTile fills the pixels of tile in dst. Distinct tiles may be rendered concurrently.
func RenderTile(f Frame, tile image.Rectangle, dst *PixelBuffer) {
	for py := tile.Min.Y; py < tile.Max.Y; py++ {
		y := fractal.PixelToComplex(f.Size, py, f.Viewport.Y, f.Viewport.Height)

		for px := tile.Min.X; px < tile.Max.X; px++ {
			x := fractal.PixelToComplex(f.Size, px, f.Viewport.X, f.Viewport.Width)

			dst.set(px, py, Color(f.Variant.Iterate(complex(x, y))))
		}
	}
}

func (r *Renderer) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

func (r *Renderer) tileSize() int {
	if r.TileSize > 0 {
		return r.TileSize
	}
	return DefaultTileSize
}
