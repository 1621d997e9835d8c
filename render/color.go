package render

import (
	"image/color"
	"math"

	fractal "github.com/marben/fractal_explorer"
)

// Black is the color of points that never escaped.
const Black uint32 = 0x000000

// Hue maps an escape count onto the color wheel. Values above 1 wrap around in HSBToRGB,
// cycling red → yellow → green → blue → violet → red every 200 iterations.
func Hue(n int) float32 {
	return 0.7 + float32(n)/200
}

// Color is the packed 0xRRGGBB color of an iteration result.
func Color(r fractal.Result) uint32 {
	n, escaped := r.Escaped()
	if !escaped {
		return Black
	}
	return HSBToRGB(Hue(n), 1, 1)
}

// HSBToRGB converts hue, saturation and brightness to a packed 0xRRGGBB value.
// Only the fractional part of hue is used. Arithmetic is done in float32 with explicit
// rounding so the output is identical to java.awt.Color.HSBtoRGB on every platform.
func HSBToRGB(hue, saturation, brightness float32) uint32 {
	var r, g, b int32
	if saturation == 0 {
		r = channel(brightness)
		g, b = r, r
	} else {
		h := (hue - float32(math.Floor(float64(hue)))) * 6
		f := h - float32(math.Floor(float64(h)))
		p := brightness * (1 - saturation)
		q := brightness * (1 - float32(saturation*f))
		t := brightness * (1 - float32(saturation*(1-f)))
		switch int32(h) {
		case 0:
			r, g, b = channel(brightness), channel(t), channel(p)
		case 1:
			r, g, b = channel(q), channel(brightness), channel(p)
		case 2:
			r, g, b = channel(p), channel(brightness), channel(t)
		case 3:
			r, g, b = channel(p), channel(q), channel(brightness)
		case 4:
			r, g, b = channel(t), channel(p), channel(brightness)
		case 5:
			r, g, b = channel(brightness), channel(p), channel(q)
		}
	}
	return uint32(r&0xff)<<16 | uint32(g&0xff)<<8 | uint32(b&0xff)
}

func channel(v float32) int32 {
	return int32(float32(v*255) + 0.5)
}

// RGBA unpacks a 0xRRGGBB value into an opaque color.RGBA.
func RGBA(packed uint32) color.RGBA {
	return color.RGBA{R: uint8(packed >> 16), G: uint8(packed >> 8), B: uint8(packed), A: 255}
}
