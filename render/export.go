package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

// MaxSupersample bounds the anti-aliasing factor accepted by RenderImage.
const MaxSupersample = 4

// RenderImage renders f as an RGBA image. With aa > 1 the frame is rendered aa times
// larger and scaled down with Catmull-Rom, smoothing the band edges.
func (r *Renderer) RenderImage(ctx context.Context, f Frame, aa int) (*image.RGBA, error) {
	if aa < 1 || aa > MaxSupersample {
		return nil, fmt.Errorf("supersample factor %d outside [1, %d]", aa, MaxSupersample)
	}
	big := f
	big.Size = f.Size * aa
	buf, err := r.RenderContext(ctx, big)
	if err != nil {
		return nil, err
	}
	img := buf.Image()
	if aa == 1 {
		return img, nil
	}
	return Downscale(img, f.Size), nil
}

// Downscale resamples src into a size×size image.
func Downscale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// EncodePNG writes img to w as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
