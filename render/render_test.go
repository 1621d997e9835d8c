package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractal "github.com/marben/fractal_explorer"
)

func TestRender_MandelbrotDefault(t *testing.T) {
	const size = 100
	buf := Render(fractal.Mandelbrot, fractal.Mandelbrot.DefaultViewport(), size)
	require.Equal(t, size, buf.Size())

	// (50, 50) maps to -0.5+0i, inside the main cardioid
	assert.Equal(t, Black, buf.At(50, 50))
	// (0, 0) maps to -2-1.5i, escapes on the first step
	assert.NotEqual(t, Black, buf.At(0, 0))
	assert.Equal(t, Color(fractal.EscapedAt(1)), buf.At(0, 0))
}

func TestRender_MatchesPerPixelIteration(t *testing.T) {
	const size = 37
	for _, v := range fractal.Variants {
		vp := v.DefaultViewport()
		buf := Render(v, vp, size)
		for y := 0; y < size; y += 3 {
			for x := 0; x < size; x += 5 {
				want := Color(v.Iterate(vp.Point(x, y, size)))
				require.Equal(t, want, buf.At(x, y), "%s pixel (%d, %d)", v, x, y)
			}
		}
	}
}

func TestRender_WorkersAndTilesDoNotChangeOutput(t *testing.T) {
	f := Frame{
		Variant:  fractal.BurningShip,
		Viewport: fractal.Viewport{X: -1.8, Y: -0.09, Width: 0.1, Height: 0.1},
		Size:     90,
	}
	single := (&Renderer{Workers: 1, TileSize: 1000}).Render(f)
	parallel := (&Renderer{Workers: 8, TileSize: 7}).Render(f)
	assert.Equal(t, single.Pixels(), parallel.Pixels())
}

func TestRender_OnTileRenderSeesEveryTile(t *testing.T) {
	var tiles, pixels atomic.Int64
	r := Renderer{
		Workers:  3,
		TileSize: 16,
		OnTileRender: func(tile image.Rectangle) {
			tiles.Add(1)
			pixels.Add(int64(tile.Dx() * tile.Dy()))
		},
	}
	r.Render(Frame{Variant: fractal.Tricorn, Viewport: fractal.Tricorn.DefaultViewport(), Size: 40})
	assert.Equal(t, int64(9), tiles.Load())
	assert.Equal(t, int64(40*40), pixels.Load())
}

func TestRender_ContractViolations(t *testing.T) {
	vp := fractal.Mandelbrot.DefaultViewport()
	assert.Panics(t, func() { Render(fractal.Mandelbrot, vp, 0) })
	assert.Panics(t, func() { Render(fractal.Mandelbrot, vp, -3) })
	assert.Panics(t, func() { Render(fractal.Variant(9), vp, 10) })
	assert.Panics(t, func() { Render(fractal.Mandelbrot, fractal.Viewport{Width: 0, Height: 1}, 10) })
}

func TestRenderContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var r Renderer
	buf, err := r.RenderContext(ctx, Frame{Variant: fractal.Mandelbrot, Viewport: fractal.Mandelbrot.DefaultViewport(), Size: 64})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, buf)
}

func TestRenderImage_Supersample(t *testing.T) {
	var r Renderer
	f := Frame{Variant: fractal.Mandelbrot, Viewport: fractal.Mandelbrot.DefaultViewport(), Size: 50}

	img, err := r.RenderImage(context.Background(), f, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 50), img.Bounds())
	// deep inside the cardioid every sample is black
	assert.Equal(t, RGBA(Black), img.RGBAAt(25, 25))

	plain, err := r.RenderImage(context.Background(), f, 1)
	require.NoError(t, err)
	assert.Equal(t, Render(f.Variant, f.Viewport, f.Size).Image(), plain)

	_, err = r.RenderImage(context.Background(), f, 0)
	assert.Error(t, err)
	_, err = r.RenderImage(context.Background(), f, MaxSupersample+1)
	assert.Error(t, err)
}

func TestEncodePNG(t *testing.T) {
	buf := Render(fractal.Tricorn, fractal.Tricorn.DefaultViewport(), 20)
	var out bytes.Buffer
	require.NoError(t, EncodePNG(&out, buf.Image()))

	decoded, err := png.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), decoded.Bounds())
	r, g, b, _ := decoded.At(3, 4).RGBA()
	want := buf.RGBAAt(3, 4)
	assert.Equal(t, []uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestPixelBuffer_AtOutOfRange(t *testing.T) {
	buf := Render(fractal.Mandelbrot, fractal.Mandelbrot.DefaultViewport(), 4)
	assert.Panics(t, func() { buf.At(4, 0) })
	assert.Panics(t, func() { buf.At(0, -1) })
}

func TestSplitRectNoClip(t *testing.T) {
	tiles := splitRectNoClip(image.Rect(0, 0, 100, 70), 64, 64)
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 0, 64, 64),
		image.Rect(64, 0, 100, 64),
		image.Rect(0, 64, 64, 70),
		image.Rect(64, 64, 100, 70),
	}, tiles)

	assert.Panics(t, func() { splitRectNoClip(image.Rect(0, 0, 1, 1), 0, 1) })
}

func TestTileScheduler(t *testing.T) {
	s := newTileScheduler(10, 5)
	assert.Equal(t, 4, s.tilesCount())

	var progress float32
	for {
		tile, ok := s.popTile()
		if !ok {
			break
		}
		progress = s.tileFinished(tile)
	}
	assert.Equal(t, float32(1), progress)
	assert.Equal(t, 0, s.tilesCount())
}
