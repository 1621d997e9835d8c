package fractal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelToComplex_Edges(t *testing.T) {
	assert.Equal(t, -2.0, PixelToComplex(800, 0, -2, 4))
	assert.Equal(t, 2.0, PixelToComplex(800, 800, -2, 4))
	assert.Equal(t, 0.0, PixelToComplex(800, 400, -2, 4))
	assert.InDelta(t, -1.995, PixelToComplex(800, 1, -2, 4), 1e-15)
}

func TestPixelToComplex_ContractViolations(t *testing.T) {
	assert.Panics(t, func() { PixelToComplex(0, 0, -2, 4) })
	assert.Panics(t, func() { PixelToComplex(-5, 0, -2, 4) })
	assert.Panics(t, func() { PixelToComplex(800, -1, -2, 4) })
	assert.Panics(t, func() { PixelToComplex(800, 801, -2, 4) })
}

func TestViewport_Point(t *testing.T) {
	vp := Viewport{X: -2, Y: -1.5, Width: 3, Height: 3}
	assert.Equal(t, complex(-2, -1.5), vp.Point(0, 0, 100))
	assert.Equal(t, complex(-0.5, 0), vp.Point(50, 50, 100))
}

func TestRecenterAndZoom_TwiceHalvesToQuarter(t *testing.T) {
	vp := Viewport{X: -2, Y: -2, Width: 4, Height: 4}

	vp.RecenterAndZoom(complex(0.5, -0.25), 0.5)
	assert.Equal(t, 2.0, vp.Width)
	assert.Equal(t, 2.0, vp.Height)
	assert.Equal(t, complex(0.5, -0.25), vp.Center())

	vp.RecenterAndZoom(complex(-0.5, 0.75), 0.5)
	assert.Equal(t, 1.0, vp.Width)
	assert.Equal(t, 1.0, vp.Height)
	assert.Equal(t, -1.0, vp.X)
	assert.Equal(t, 0.25, vp.Y)
	assert.Equal(t, complex(-0.5, 0.75), vp.Center())
}

func TestRecenterAndZoom_ClickRoundTrip(t *testing.T) {
	const size = 800
	vp := Mandelbrot.DefaultViewport()

	for i, px := range [][2]int{{123, 456}, {700, 80}, {401, 399}, {12, 790}} {
		c := vp.Point(px[0], px[1], size)
		vp.RecenterAndZoom(c, 0.5)

		// the clicked coordinate is now the grid center
		center := vp.Point(size/2, size/2, size)
		assert.InDelta(t, real(c), real(center), 1e-12, "click %d", i)
		assert.InDelta(t, imag(c), imag(center), 1e-12, "click %d", i)
		assert.Equal(t, vp.Width, vp.Height, "aspect ratio must stay square")
	}
	assert.InDelta(t, 3.0/16, vp.Width, 1e-15)
}

func TestRecenterAndZoom_DeepZoomKeepsCenter(t *testing.T) {
	vp := Mandelbrot.DefaultViewport()
	target := complex(-0.743643887037151, 0.131825904205330)
	for range 40 {
		vp.RecenterAndZoom(target, 0.5)
	}
	require.True(t, vp.Valid())
	assert.InDelta(t, real(target), real(vp.Center()), 1e-15)
	assert.InDelta(t, imag(target), imag(vp.Center()), 1e-15)
	assert.InDelta(t, math.Pow(2, 40), vp.Magnification(Mandelbrot.DefaultViewport()), 1e-3)
}

func TestRecenterAndZoom_InvalidScale(t *testing.T) {
	vp := Tricorn.DefaultViewport()
	assert.Panics(t, func() { vp.RecenterAndZoom(0, 0) })
	assert.Panics(t, func() { vp.RecenterAndZoom(0, -0.5) })
	assert.Panics(t, func() { vp.RecenterAndZoom(0, 1.5) })
	assert.Panics(t, func() { vp.RecenterAndZoom(0, math.NaN()) })
	assert.Equal(t, Tricorn.DefaultViewport(), vp, "failed zoom must not touch the viewport")

	assert.NotPanics(t, func() { vp.RecenterAndZoom(0, 1) })
	assert.Equal(t, 4.0, vp.Width)
}

func TestViewport_Reset(t *testing.T) {
	vp := Viewport{X: 1, Y: 2, Width: 0.001, Height: 0.001}
	vp.Reset(BurningShip.DefaultViewport())
	assert.Equal(t, Viewport{X: -2, Y: -2.5, Width: 4, Height: 4}, vp)
}

func TestViewport_Valid(t *testing.T) {
	assert.True(t, Mandelbrot.DefaultViewport().Valid())
	assert.False(t, Viewport{Width: 0, Height: 1}.Valid())
	assert.False(t, Viewport{Width: 1, Height: -1}.Valid())
	assert.False(t, Viewport{X: math.NaN(), Width: 1, Height: 1}.Valid())
	assert.False(t, Viewport{Width: math.Inf(1), Height: 1}.Valid())
}
