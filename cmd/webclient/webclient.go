//go:build js && wasm

// webclient is the browser front end of the explorer server. It drives one session over
// the /ws websocket: clicks on the canvas zoom in, the buttons switch variant or reset,
// and every reply brings a fresh PNG frame.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"syscall/js"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fractal "github.com/marben/fractal_explorer"
)

const (
	canvasSize = 600

	// frames are whole PNG images, far above the default read limit
	maxFrameBytes = 32 << 20
)

// command and reply mirror the messages of the server's /ws endpoint.
type command struct {
	Op       string `json:"op"`
	Size     int    `json:"size,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Landmark string `json:"landmark,omitempty"`
}

type sessionState struct {
	ID            string           `json:"id"`
	Variant       fractal.Variant  `json:"variant"`
	Viewport      fractal.Viewport `json:"viewport"`
	Zooms         int              `json:"zooms"`
	Magnification float64          `json:"magnification"`
	Center        [2]float64       `json:"center"`
}

type reply struct {
	Session *sessionState `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func main() {
	logScreenf("Starting WASM web client...")

	id := sessionID()
	websocketURL := websocketURL(id)
	logScreenf("Connecting to %s...", websocketURL)

	ctx := context.Background()
	c, _, err := websocket.Dial(ctx, websocketURL, nil)
	if err != nil {
		logFatalf("websocket.Dial: %v", err)
	}
	c.SetReadLimit(maxFrameBytes)
	logScreenf("Connected, session %q.", id)

	initCanvas(canvasSize, canvasSize, "#3a3a6e")

	cmds := make(chan command, 4)
	bindControls(cmds)
	go writeLoop(ctx, c, cmds)
	cmds <- command{Op: "render", Size: canvasSize}

	if err := readLoop(ctx, c); err != nil {
		logFatalf("readLoop: %v", err)
	}
}

// sessionID takes ?session= from the page URL, or makes up a new one.
func sessionID() string {
	search := js.Global().Get("window").Get("location").Get("search").String()
	if q, err := url.ParseQuery(trimQuestion(search)); err == nil && q.Get("session") != "" {
		return q.Get("session")
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		logFatalf("rand.Read: %v", err)
	}
	return hex.EncodeToString(b)
}

func trimQuestion(s string) string {
	if len(s) > 0 && s[0] == '?' {
		return s[1:]
	}
	return s
}

func websocketURL(id string) string {
	loc := js.Global().Get("window").Get("location")
	proto := "ws"
	if loc.Get("protocol").String() == "https:" {
		proto = "wss"
	}
	return proto + "://" + loc.Get("host").String() + "/ws?session=" + url.QueryEscape(id)
}

func writeLoop(ctx context.Context, c *websocket.Conn, cmds <-chan command) {
	for cmd := range cmds {
		if err := wsjson.Write(ctx, c, cmd); err != nil {
			logFatalf("send %s: %v", cmd.Op, err)
		}
		hudSetBusy(true)
	}
}

// readLoop handles replies: a JSON state, then the PNG frame showing it.
func readLoop(ctx context.Context, c *websocket.Conn) error {
	for {
		var r reply
		if err := wsjson.Read(ctx, c, &r); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		if r.Error != "" {
			hudSetBusy(false)
			logScreenf("server: %s", r.Error)
			continue
		}

		typ, frame, err := c.Read(ctx)
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if typ != websocket.MessageBinary {
			return fmt.Errorf("expected a binary frame, got %s", typ)
		}
		if err := displayFrame(frame); err != nil {
			logScreenf("frame: %v", err)
		}
		hudSetState(r.Session)
		hudSetBusy(false)
	}
}

// bindControls wires the canvas and the buttons to cmds. Input arriving while the
// queue is full is dropped.
func bindControls(cmds chan<- command) {
	send := func(cmd command) {
		cmd.Size = canvasSize
		select {
		case cmds <- cmd:
		default:
			logScreenf("busy, %s dropped", cmd.Op)
		}
	}

	doc := js.Global().Get("document")
	canvas := doc.Call("getElementById", "myCanvas")
	canvas.Call("addEventListener", "click", js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		// the canvas may be scaled by CSS
		scale := float64(canvasSize) / canvas.Get("clientWidth").Float()
		x := int(ev.Get("offsetX").Float() * scale)
		y := int(ev.Get("offsetY").Float() * scale)
		send(command{Op: "click", X: min(max(x, 0), canvasSize-1), Y: min(max(y, 0), canvasSize-1)})
		return nil
	}))

	for _, v := range fractal.Variants {
		name := v.String()
		onClick(doc, "variant-"+name, func() { send(command{Op: "select", Variant: name}) })
	}
	onClick(doc, "reset", func() { send(command{Op: "reset"}) })

	landmarks := doc.Call("getElementById", "landmark")
	for _, l := range fractal.Landmarks {
		opt := doc.Call("createElement", "option")
		opt.Set("value", l.Name)
		opt.Set("textContent", fmt.Sprintf("%s (%s)", l.Name, l.Variant.Title()))
		landmarks.Call("appendChild", opt)
	}
	landmarks.Call("addEventListener", "change", js.FuncOf(func(this js.Value, args []js.Value) any {
		if name := landmarks.Get("value").String(); name != "" {
			send(command{Op: "goto", Landmark: name})
		}
		return nil
	}))
}

func onClick(doc js.Value, id string, fn func()) {
	el := doc.Call("getElementById", id)
	if el.IsNull() {
		logScreenf("no element %q", id)
		return
	}
	el.Call("addEventListener", "click", js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	}))
}

// logScreenf appends a formatted message to the log element in the DOM.
func logScreenf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)

	doc := js.Global().Get("document")
	logElem := doc.Call("getElementById", "log")
	logElem.Set("textContent", logElem.Get("textContent").String()+msg+"\n")
}

// logFatalf logs a fatal error to the log window and terminates the program.
func logFatalf(format string, a ...any) {
	logScreenf("FATAL: "+format, a...)
	log.Fatalf(format, a...)
}

func hudSetState(st *sessionState) {
	doc := js.Global().Get("document")
	set := func(id string, v any) {
		doc.Call("getElementById", id).Set("textContent", v)
	}
	set("variant", st.Variant.Title())
	set("zooms", st.Zooms)
	set("magnification", fmt.Sprintf("%.4g×", st.Magnification))
	set("center", fmt.Sprintf("%.17g %+.17gi", st.Center[0], st.Center[1]))
}

func hudSetBusy(busy bool) {
	text := ""
	if busy {
		text = "rendering…"
	}
	js.Global().Get("document").Call("getElementById", "status").Set("textContent", text)
}
