package fractal

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownLandmark = errors.New("unknown landmark")

// Region is an axis aligned box of the complex plane.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Viewport returns the smallest square viewport centered on r that contains it.
func (r Region) Viewport() Viewport {
	side := math.Max(r.Xmax-r.Xmin, r.Ymax-r.Ymin)
	cx, cy := (r.Xmin+r.Xmax)/2, (r.Ymin+r.Ymax)/2
	return Viewport{X: cx - side/2, Y: cy - side/2, Width: side, Height: side}
}

// Landmark is a named place worth visiting.
type Landmark struct {
	Name    string
	Variant Variant
	Region  Region
}

// Classic regions / landmarks
var Landmarks = []Landmark{
	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	{Name: "seahorse-valley", Variant: Mandelbrot, Region: Region{Xmin: -0.8, Xmax: -0.7, Ymin: 0.05, Ymax: 0.15}},

	// Elephant Valley – large bulb with trunk-like tendrils
	{Name: "elephant-valley", Variant: Mandelbrot, Region: Region{Xmin: -1.85, Xmax: -1.75, Ymin: -0.10, Ymax: -0.02}},

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	{Name: "spiral-minibrot", Variant: Mandelbrot, Region: Region{Xmin: -0.7435, Xmax: -0.7420, Ymin: 0.1310, Ymax: 0.1325}},

	// Triple Spiral – threefold symmetric spiral structure
	{Name: "triple-spiral", Variant: Mandelbrot, Region: Region{Xmin: -0.7480, Xmax: -0.7450, Ymin: 0.0950, Ymax: 0.0980}},

	// Valley of the Dragon – deep, highly detailed spiral filaments
	{Name: "valley-of-the-dragon", Variant: Mandelbrot, Region: Region{Xmin: -0.7400, Xmax: -0.7350, Ymin: 0.1800, Ymax: 0.1850}},

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	{Name: "minibrot-in-mini-spiral", Variant: Mandelbrot, Region: Region{Xmin: -1.7390, Xmax: -1.7375, Ymin: -0.0235, Ymax: -0.0220}},

	// The ship's hull and mast, Burning Ship's best known detail
	{Name: "armada", Variant: BurningShip, Region: Region{Xmin: -1.80, Xmax: -1.70, Ymin: -0.09, Ymax: 0.01}},
}

// LookupLandmark finds a landmark by name.
func LookupLandmark(name string) (Landmark, error) {
	for _, l := range Landmarks {
		if l.Name == name {
			return l, nil
		}
	}
	return Landmark{}, fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
}
