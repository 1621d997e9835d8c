package render

import (
	"image"
	"sync"
)

// tileScheduler hands out the tiles of one frame to the workers rendering it.
type tileScheduler struct {
	m sync.Mutex

	unstarted []image.Rectangle

	totalPixels    int
	finishedPixels int
}

func newTileScheduler(size, tileSize int) *tileScheduler {
	bounds := image.Rect(0, 0, size, size)
	return &tileScheduler{
		unstarted:   splitRectNoClip(bounds, tileSize, tileSize),
		totalPixels: size * size,
	}
}

func (ts *tileScheduler) popTile() (tile image.Rectangle, found bool) {
	ts.m.Lock()
	defer ts.m.Unlock()

	if len(ts.unstarted) == 0 {
		return image.Rectangle{}, false
	}
	tile = ts.unstarted[0]
	ts.unstarted = ts.unstarted[1:]
	return tile, true
}

// tileFinished records a rendered tile and returns the finished fraction of the frame.
func (ts *tileScheduler) tileFinished(tile image.Rectangle) float32 {
	ts.m.Lock()
	defer ts.m.Unlock()

	ts.finishedPixels += tile.Dx() * tile.Dy()
	return float32(ts.finishedPixels) / float32(ts.totalPixels)
}

func (ts *tileScheduler) tilesCount() int {
	ts.m.Lock()
	defer ts.m.Unlock()
	return len(ts.unstarted)
}

// splitRectNoClip splits r into tiles of size tileW × tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func splitRectNoClip(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	w := r.Dx()
	h := r.Dy()

	var tiles []image.Rectangle

	for oy := 0; oy < h; oy += tileH {
		th := min(tileH, h-oy)

		for ox := 0; ox < w; ox += tileW {
			tw := min(tileW, w-ox)

			tiles = append(tiles, image.Rect(
				r.Min.X+ox,
				r.Min.Y+oy,
				r.Min.X+ox+tw,
				r.Min.Y+oy+th,
			))
		}
	}

	return tiles
}
