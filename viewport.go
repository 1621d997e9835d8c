package fractal

import (
	"fmt"
	"math"
)

// Viewport is the rectangle of the complex plane mapped onto a square pixel grid.
// (X, Y) is the corner mapped to pixel (0, 0); Width and Height are always positive.
type Viewport struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// PixelToComplex maps pixelIndex on an axis of size pixels to the complex plane.
// Pixels address the half-open range [0, size); pixelIndex == size is the far edge of the grid.
func PixelToComplex(size, pixelIndex int, axisOrigin, axisSpan float64) float64 {
	if size <= 0 {
		panic(fmt.Sprintf("fractal: grid size must be positive, got %d", size))
	}
	if pixelIndex < 0 || pixelIndex > size {
		panic(fmt.Sprintf("fractal: pixel index %d outside grid of size %d", pixelIndex, size))
	}
	return axisOrigin + axisSpan*float64(pixelIndex)/float64(size)
}

// Point maps pixel (px, py) of a size×size grid to a complex coordinate.
func (vp Viewport) Point(px, py, size int) complex128 {
	return complex(
		PixelToComplex(size, px, vp.X, vp.Width),
		PixelToComplex(size, py, vp.Y, vp.Height),
	)
}

// RecenterAndZoom scales the viewport by scale and centers it exactly on c.
func (vp *Viewport) RecenterAndZoom(c complex128, scale float64) {
	if !(scale > 0 && scale <= 1) {
		panic(fmt.Sprintf("fractal: zoom scale must be in (0, 1], got %v", scale))
	}
	vp.Width *= scale
	vp.Height *= scale
	vp.X = real(c) - vp.Width/2
	vp.Y = imag(c) - vp.Height/2
}

// Reset replaces the viewport with def.
func (vp *Viewport) Reset(def Viewport) {
	*vp = def
}

// Center returns the complex coordinate at the middle of the viewport.
func (vp Viewport) Center() complex128 {
	return complex(vp.X+vp.Width/2, vp.Y+vp.Height/2)
}

// Magnification is how many times narrower vp is than def.
func (vp Viewport) Magnification(def Viewport) float64 {
	return def.Width / vp.Width
}

// Valid reports whether both spans are positive and every field is finite.
func (vp Viewport) Valid() bool {
	for _, f := range []float64{vp.X, vp.Y, vp.Width, vp.Height} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return vp.Width > 0 && vp.Height > 0
}

func (vp Viewport) String() string {
	return fmt.Sprintf("[%g%+gi, %gx%g]", vp.X, vp.Y, vp.Width, vp.Height)
}
