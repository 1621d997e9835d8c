package render

import (
	"fmt"
	"image"
	"image/color"
)

// PixelBuffer is a size×size grid of packed 0xRRGGBB colors.
// A buffer returned by a Renderer is never written again.
type PixelBuffer struct {
	size int
	pix  []uint32 // row-major
}

func newPixelBuffer(size int) *PixelBuffer {
	return &PixelBuffer{size: size, pix: make([]uint32, size*size)}
}

// Size is the side of the grid in pixels.
func (b *PixelBuffer) Size() int { return b.size }

// At returns the packed color of pixel (x, y).
func (b *PixelBuffer) At(x, y int) uint32 {
	if x < 0 || y < 0 || x >= b.size || y >= b.size {
		panic(fmt.Sprintf("render: pixel (%d, %d) outside %dx%d buffer", x, y, b.size, b.size))
	}
	return b.pix[y*b.size+x]
}

// Pixels returns a copy of the packed colors in row-major order.
func (b *PixelBuffer) Pixels() []uint32 {
	return append([]uint32(nil), b.pix...)
}

// Image converts the buffer into a new opaque RGBA image.
func (b *PixelBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.size, b.size))
	for i, c := range b.pix {
		o := i * 4
		img.Pix[o+0] = uint8(c >> 16)
		img.Pix[o+1] = uint8(c >> 8)
		img.Pix[o+2] = uint8(c)
		img.Pix[o+3] = 0xff
	}
	return img
}

// RGBAAt is At unpacked into a color.RGBA.
func (b *PixelBuffer) RGBAAt(x, y int) color.RGBA {
	return RGBA(b.At(x, y))
}

func (b *PixelBuffer) set(x, y int, c uint32) {
	b.pix[y*b.size+x] = c
}
