package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	fractal "github.com/marben/fractal_explorer"
)

func TestHue(t *testing.T) {
	assert.Equal(t, float32(0.7), Hue(0))
	assert.InDelta(t, 1.4, Hue(140), 1e-6)
	assert.InDelta(t, 1.0, Hue(60), 1e-6)
}

func TestHSBToRGB_PrimaryHues(t *testing.T) {
	assert.Equal(t, uint32(0xff0000), HSBToRGB(0, 1, 1))
	assert.Equal(t, uint32(0x00ff00), HSBToRGB(1.0/3, 1, 1))
	assert.Equal(t, uint32(0x0000ff), HSBToRGB(2.0/3, 1, 1))
	assert.Equal(t, uint32(0xffff00), HSBToRGB(1.0/6, 1, 1))
	assert.Equal(t, uint32(0xff0000), HSBToRGB(1, 1, 1), "hue wraps at 1")
	assert.Equal(t, uint32(0xff0000), HSBToRGB(-1, 1, 1), "negative hue wraps too")
}

func TestHSBToRGB_SaturationAndBrightness(t *testing.T) {
	assert.Equal(t, uint32(0xffffff), HSBToRGB(0.3, 0, 1))
	assert.Equal(t, uint32(0x808080), HSBToRGB(0.3, 0, 0.5))
	assert.Equal(t, uint32(0x000000), HSBToRGB(0.3, 1, 0))
}

func TestColor_EscapeZeroIsViolet(t *testing.T) {
	c := RGBA(Color(fractal.EscapedAt(0)))
	assert.InDelta(t, 51, int(c.R), 1)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(255), c.B)
}

func TestColor_HueWrapsAround(t *testing.T) {
	// 0.7 + 140/200 = 1.4, wraps to 0.4: full green, some blue
	c := RGBA(Color(fractal.EscapedAt(140)))
	assert.Equal(t, uint8(0), c.R)
	assert.Equal(t, uint8(255), c.G)
	assert.InDelta(t, 102, int(c.B), 1)

	// 0.7 + 60/200 lands on the wrap point: red
	assert.Equal(t, uint32(0xff0000), Color(fractal.EscapedAt(60)))
	// one full cycle later the colors repeat
	assert.Equal(t, Color(fractal.EscapedAt(60)), Color(fractal.EscapedAt(260)))
	assert.Equal(t, Color(fractal.EscapedAt(7)), Color(fractal.EscapedAt(207)))
}

func TestColor_BoundedIsBlack(t *testing.T) {
	assert.Equal(t, Black, Color(fractal.Bounded))
}

func TestRGBA(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}, RGBA(0x123456))
}
