package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/render"
	"github.com/marben/fractal_explorer/session"
)

// Ops understood on the websocket.
const (
	OpRender = "render"
	OpClick  = "click"
	OpSelect = "select"
	OpReset  = "reset"
	OpGoto   = "goto"
)

// Command is one client message. Every command is answered with a text message
// holding a Reply followed, unless the reply carries an error, by a binary PNG frame.
type Command struct {
	Op       string `json:"op"`
	Size     int    `json:"size,omitempty"`
	AA       int    `json:"aa,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Landmark string `json:"landmark,omitempty"`
}

type Reply struct {
	Session *sessionView `json:"session,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// websocket handles the /ws endpoint. The session is picked with ?session=id.
func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if err := session.ValidateID(id); err != nil {
		s.writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer c.CloseNow()

	s.metrics.ClientConnected()
	defer s.metrics.ClientDisconnected()

	logger := s.logger.With("session", id, "remote", r.RemoteAddr)
	logger.Info("websocket connected")

	err = s.serveConn(r.Context(), c, id)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		logger.Info("websocket closed")
		c.Close(websocket.StatusNormalClosure, "")
	default:
		if errors.Is(err, context.Canceled) {
			logger.Info("websocket canceled")
			return
		}
		logger.Warn("websocket failed", "err", err)
		c.Close(websocket.StatusInternalError, "internal error")
	}
}

func (s *Server) serveConn(ctx context.Context, c *websocket.Conn, id string) error {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, c, &cmd); err != nil {
			return err
		}

		img, view, err := s.apply(ctx, id, cmd)
		if err != nil {
			if statusOf(err) == http.StatusInternalServerError {
				return err
			}
			if err := wsjson.Write(ctx, c, Reply{Error: err.Error()}); err != nil {
				return err
			}
			continue
		}

		if err := wsjson.Write(ctx, c, Reply{Session: &view}); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := render.EncodePNG(&buf, img); err != nil {
			return err
		}
		if err := c.Write(ctx, websocket.MessageBinary, buf.Bytes()); err != nil {
			return err
		}
	}
}

// apply runs cmd against the session and renders the resulting view.
func (s *Server) apply(ctx context.Context, id string, cmd Command) (image.Image, sessionView, error) {
	size := cmd.Size
	if size == 0 {
		size = s.imageSize
	}
	if size < 1 || size > s.maxSize {
		return nil, sessionView{}, badRequest{fmt.Errorf("size %d outside [1, %d]", size, s.maxSize)}
	}
	aa := cmd.AA
	if aa == 0 {
		aa = 1
	}
	if aa < 1 || aa > render.MaxSupersample {
		return nil, sessionView{}, badRequest{fmt.Errorf("aa %d outside [1, %d]", aa, render.MaxSupersample)}
	}

	var change func(e *session.Explorer) error
	switch cmd.Op {
	case OpRender:
	case OpClick:
		if err := s.checkClick(cmd.X, cmd.Y, size); err != nil {
			return nil, sessionView{}, err
		}
		change = func(e *session.Explorer) error {
			e.ZoomAt(cmd.X, cmd.Y, size)
			s.metrics.Click(e.Variant())
			return nil
		}
	case OpSelect:
		v, err := fractal.ParseVariant(cmd.Variant)
		if err != nil {
			return nil, sessionView{}, err
		}
		change = func(e *session.Explorer) error {
			e.SelectVariant(v)
			return nil
		}
	case OpReset:
		change = func(e *session.Explorer) error {
			e.Reset()
			return nil
		}
	case OpGoto:
		l, err := fractal.LookupLandmark(cmd.Landmark)
		if err != nil {
			return nil, sessionView{}, err
		}
		change = func(e *session.Explorer) error {
			e.Goto(l)
			return nil
		}
	default:
		return nil, sessionView{}, badRequest{fmt.Errorf("unknown op %q", cmd.Op)}
	}

	var (
		e   *session.Explorer
		err error
	)
	if change != nil {
		e, err = s.sessions.Update(ctx, id, change)
	} else {
		e, err = s.sessions.Get(ctx, id)
	}
	if err != nil {
		return nil, sessionView{}, err
	}
	s.metrics.SetSessions(s.sessions.Live())

	img, st, err := s.capture(ctx, e, size, aa)
	if err != nil {
		return nil, sessionView{}, err
	}
	return img, newSessionView(id, st), nil
}
