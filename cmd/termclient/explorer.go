package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/render"
	"github.com/marben/fractal_explorer/session"
)

const upperHalfBlock = '▀'

type explorerOptions struct {
	saveSize int
	saveAA   int
	outDir   string
	logger   *slog.Logger
}

// explorer draws a session on a tcell screen and turns input into session operations.
type explorer struct {
	screen tcell.Screen
	sess   *session.Explorer
	opts   explorerOptions

	buf     *render.PixelBuffer
	pressed bool
	saved   int
	status  string
}

func newExplorer(screen tcell.Screen, sess *session.Explorer, opts explorerOptions) *explorer {
	screen.EnableMouse()
	screen.HideCursor()
	return &explorer{screen: screen, sess: sess, opts: opts}
}

// gridSize is the side of the pixel grid that fits the screen above the status line.
func (e *explorer) gridSize() int {
	w, h := e.screen.Size()
	return max(min(w, 2*(h-1)), 0)
}

func (e *explorer) run() {
	e.refresh()
	for {
		ev := e.screen.PollEvent()
		if ev == nil {
			return
		}
		if !e.handle(ev) {
			return
		}
	}
}

// handle applies one event and reports whether the explorer keeps running.
func (e *explorer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); r {
		case 'q':
			return false
		case '1', '2', '3':
			v := fractal.Variants[r-'1']
			e.sess.SelectVariant(v)
			e.status = v.Title()
			e.refresh()
		case 'r':
			e.sess.Reset()
			e.status = "reset"
			e.refresh()
		case 's':
			e.save()
			e.draw()
		}

	case *tcell.EventMouse:
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !e.pressed {
			e.click(ev.Position())
		}
		e.pressed = down

	case *tcell.EventResize:
		e.screen.Sync()
		e.refresh()
	}
	return true
}

func (e *explorer) click(cx, cy int) {
	size := e.gridSize()
	px, py := cx, 2*cy
	if size == 0 || px >= size || py >= size {
		return
	}
	e.buf = e.sess.ClickAt(px, py, size)
	c := e.sess.Viewport().Center()
	e.status = fmt.Sprintf("zoom at %.6g%+.6gi", real(c), imag(c))
	e.opts.logger.Info("zoom", "pixel_x", px, "pixel_y", py, "size", size, "center", c)
	e.draw()
}

// refresh renders the current view at the screen size and draws it.
func (e *explorer) refresh() {
	if size := e.gridSize(); size > 0 {
		e.buf = e.sess.Render(size)
	} else {
		e.buf = nil
	}
	e.draw()
}

func (e *explorer) save() {
	st := e.sess.State()
	e.saved++
	name := filepath.Join(e.opts.outDir, fmt.Sprintf("%s-%03d.png", st.Variant, e.saved))

	if err := e.writePNG(name); err != nil {
		e.status = "save failed: " + err.Error()
		e.opts.logger.Error("save failed", "file", name, "err", err)
		return
	}
	e.status = "saved " + name
	e.opts.logger.Info("image saved", "file", name, "viewport", st.Viewport)
}

func (e *explorer) writePNG(name string) error {
	img, err := e.sess.RenderImage(context.Background(), e.opts.saveSize, e.opts.saveAA)
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := render.EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *explorer) draw() {
	e.screen.Clear()
	if e.buf != nil {
		size := e.buf.Size()
		for cy := 0; 2*cy < size; cy++ {
			for cx := 0; cx < size; cx++ {
				style := tcell.StyleDefault.Foreground(cellColor(e.buf.At(cx, 2*cy)))
				if 2*cy+1 < size {
					style = style.Background(cellColor(e.buf.At(cx, 2*cy+1)))
				}
				e.screen.SetContent(cx, cy, upperHalfBlock, nil, style)
			}
		}
	}
	e.drawStatus()
	e.screen.Show()
}

func (e *explorer) drawStatus() {
	w, h := e.screen.Size()
	if h == 0 {
		return
	}
	st := e.sess.State()
	line := fmt.Sprintf(" %s  ×%.3g  %s │ click zoom  1-3 variant  r reset  s save  q quit", st.Variant.Title(), st.Magnification, e.status)
	style := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range line {
		if x >= w {
			break
		}
		e.screen.SetContent(x, h-1, r, nil, style)
		x++
	}
	for ; x < w; x++ {
		e.screen.SetContent(x, h-1, ' ', nil, style)
	}
}

func cellColor(packed uint32) tcell.Color {
	return tcell.NewRGBColor(int32(packed>>16&0xff), int32(packed>>8&0xff), int32(packed&0xff))
}
