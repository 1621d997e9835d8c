package fractal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

var ErrUnknownVariant = errors.New("unknown fractal variant")

// Variant selects one of the escape-time formulas.
type Variant int

const (
	Mandelbrot Variant = iota
	Tricorn
	BurningShip
)

// Variants lists every supported variant in display order.
var Variants = []Variant{Mandelbrot, Tricorn, BurningShip}

const (
	defaultMaxIterations = 2000
	escapeRadiusSq       = 4.0
)

// stepFunc advances z by one iteration for the point c.
type stepFunc func(z, c complex128) complex128

type variantDef struct {
	name     string
	title    string
	step     stepFunc
	viewport Viewport
	maxIter  int
}

var variantDefs = [...]variantDef{
	Mandelbrot: {
		name:     "mandelbrot",
		title:    "Mandelbrot",
		step:     func(z, c complex128) complex128 { return z*z + c },
		viewport: Viewport{X: -2, Y: -1.5, Width: 3, Height: 3},
		maxIter:  defaultMaxIterations,
	},
	Tricorn: {
		name:  "tricorn",
		title: "Tricorn",
		step: func(z, c complex128) complex128 {
			z = cmplx.Conj(z)
			return z*z + c
		},
		viewport: Viewport{X: -2, Y: -2, Width: 4, Height: 4},
		maxIter:  defaultMaxIterations,
	},
	BurningShip: {
		name:  "burning-ship",
		title: "Burning Ship",
		step: func(z, c complex128) complex128 {
			z = complex(math.Abs(real(z)), math.Abs(imag(z)))
			return z*z + c
		},
		viewport: Viewport{X: -2, Y: -2.5, Width: 4, Height: 4},
		maxIter:  defaultMaxIterations,
	},
}

func (v Variant) def() *variantDef {
	if v < 0 || int(v) >= len(variantDefs) {
		panic(fmt.Sprintf("fractal: invalid variant %d", int(v)))
	}
	return &variantDefs[v]
}

// Iterate runs the escape-time iteration for c, starting from z = 0.
func (v Variant) Iterate(c complex128) Result {
	d := v.def()
	return iterate(d.step, c, d.maxIter, escapeRadiusSq)
}

// iterate is the loop shared by every variant, so all of them agree on cap and threshold.
// The count is 1-indexed: EscapedAt(n) means |z_n|² > radiusSq after n steps.
func iterate(step stepFunc, c complex128, maxIter int, radiusSq float64) Result {
	var z complex128
	for n := 1; n <= maxIter; n++ {
		z = step(z, c)
		if real(z)*real(z)+imag(z)*imag(z) > radiusSq {
			return EscapedAt(n)
		}
	}
	return Bounded
}

// DefaultViewport is the region shown when the variant is selected or reset.
func (v Variant) DefaultViewport() Viewport { return v.def().viewport }

// MaxIterations is the iteration cap after which a point counts as bounded.
func (v Variant) MaxIterations() int { return v.def().maxIter }

// EscapeRadiusSq is the squared modulus beyond which an orbit has escaped.
func (v Variant) EscapeRadiusSq() float64 { return escapeRadiusSq }

// Title is the human readable name, e.g. "Burning Ship".
func (v Variant) Title() string { return v.def().title }

// Valid reports whether v is one of the declared variants.
func (v Variant) Valid() bool {
	return v >= 0 && int(v) < len(variantDefs)
}

func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return v.def().name
}

// ParseVariant accepts a variant name or title, case insensitive.
func ParseVariant(s string) (Variant, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	for _, v := range Variants {
		if variantDefs[v].name == norm || norm == strings.ReplaceAll(variantDefs[v].name, "-", "") {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Result is the outcome of an escape-time iteration: escaped after some steps, or bounded.
type Result struct {
	steps   int
	escaped bool
}

// Bounded is the result for an orbit that stayed within the escape radius up to the cap.
var Bounded = Result{}

// EscapedAt is the result for an orbit that escaped after n steps.
func EscapedAt(n int) Result {
	if n < 0 {
		panic(fmt.Sprintf("fractal: negative escape count %d", n))
	}
	return Result{steps: n, escaped: true}
}

// Escaped reports the escape count, ok is false for bounded orbits.
func (r Result) Escaped() (n int, ok bool) {
	return r.steps, r.escaped
}

func (r Result) String() string {
	if !r.escaped {
		return "Bounded"
	}
	return fmt.Sprintf("Escaped(%d)", r.steps)
}
