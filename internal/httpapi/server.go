// Package httpapi exposes explorer sessions over HTTP and websocket.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/logging"
	"github.com/marben/fractal_explorer/internal/metrics"
	"github.com/marben/fractal_explorer/render"
	"github.com/marben/fractal_explorer/session"
)

const (
	DefaultImageSize = 512
	DefaultMaxSize   = 2048

	maxBodyBytes = 1 << 16
)

// Server serves the explorer API for the sessions of one Manager.
type Server struct {
	sessions  *session.Manager
	metrics   *metrics.Metrics
	logger    *slog.Logger
	maxSize   int
	imageSize int
	staticDir string
	origins   []string
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxSize bounds the grid size clients may ask for.
func WithMaxSize(n int) Option {
	return func(s *Server) {
		s.maxSize = n
	}
}

// WithImageSize sets the size used when a request names none.
func WithImageSize(n int) Option {
	return func(s *Server) {
		s.imageSize = n
	}
}

// WithStaticDir serves the files of dir under /.
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// WithOriginPatterns sets the hosts allowed to open a websocket from another origin.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.origins = patterns
	}
}

func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		maxSize:   DefaultMaxSize,
		imageSize: DefaultImageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.imageSize > s.maxSize {
		s.imageSize = s.maxSize
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/variants", s.listVariants)
		r.Get("/landmarks", s.listLandmarks)
		r.Get("/sessions", s.listSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/variant", s.selectVariant)
			r.Post("/reset", s.reset)
			r.Post("/click", s.click)
			r.Post("/goto", s.gotoLandmark)
			r.Get("/image.png", s.image)
		})
	})
	r.Get("/ws", s.websocket)
	r.Handle("/metrics", s.metrics.Handler())

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

type variantView struct {
	Name          string           `json:"name"`
	Title         string           `json:"title"`
	Viewport      fractal.Viewport `json:"viewport"`
	MaxIterations int              `json:"max_iterations"`
}

type landmarkView struct {
	Name     string           `json:"name"`
	Variant  fractal.Variant  `json:"variant"`
	Viewport fractal.Viewport `json:"viewport"`
}

// sessionView is the state of a session as clients see it.
type sessionView struct {
	ID string `json:"id"`
	session.State
	Center [2]float64 `json:"center"`
}

func newSessionView(id string, st session.State) sessionView {
	c := st.Viewport.Center()
	return sessionView{ID: id, State: st, Center: [2]float64{real(c), imag(c)}}
}

func (s *Server) listVariants(w http.ResponseWriter, r *http.Request) {
	out := make([]variantView, 0, len(fractal.Variants))
	for _, v := range fractal.Variants {
		out = append(out, variantView{
			Name:          v.String(),
			Title:         v.Title(),
			Viewport:      v.DefaultViewport(),
			MaxIterations: v.MaxIterations(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) listLandmarks(w http.ResponseWriter, r *http.Request) {
	out := make([]landmarkView, 0, len(fractal.Landmarks))
	for _, l := range fractal.Landmarks {
		out = append(out, landmarkView{Name: l.Name, Variant: l.Variant, Viewport: l.Region.Viewport()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetSessions(s.sessions.Live())
	s.writeJSON(w, http.StatusOK, newSessionView(id, e.State()))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetSessions(s.sessions.Live())
	w.WriteHeader(http.StatusNoContent)
}

type variantRequest struct {
	Variant string `json:"variant"`
}

func (s *Server) selectVariant(w http.ResponseWriter, r *http.Request) {
	var body variantRequest
	if !s.decode(w, r, &body) {
		return
	}
	v, err := fractal.ParseVariant(body.Variant)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.update(w, r, func(e *session.Explorer) error {
		e.SelectVariant(v)
		return nil
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.update(w, r, func(e *session.Explorer) error {
		e.Reset()
		return nil
	})
}

type clickRequest struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	var body clickRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.checkClick(body.X, body.Y, body.Size); err != nil {
		s.writeError(w, err)
		return
	}
	s.update(w, r, func(e *session.Explorer) error {
		e.ZoomAt(body.X, body.Y, body.Size)
		s.metrics.Click(e.Variant())
		return nil
	})
}

type gotoRequest struct {
	Landmark string `json:"landmark"`
}

func (s *Server) gotoLandmark(w http.ResponseWriter, r *http.Request) {
	var body gotoRequest
	if !s.decode(w, r, &body) {
		return
	}
	l, err := fractal.LookupLandmark(body.Landmark)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.update(w, r, func(e *session.Explorer) error {
		e.Goto(l)
		return nil
	})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	size, err := s.queryInt(r, "size", s.imageSize, 1, s.maxSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	aa, err := s.queryInt(r, "aa", 1, 1, render.MaxSupersample)
	if err != nil {
		s.writeError(w, err)
		return
	}

	e, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	img, _, err := s.capture(r.Context(), e, size, aa)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("image write failed", "err", err)
	}
}

func (s *Server) capture(ctx context.Context, e *session.Explorer, size, aa int) (*image.RGBA, session.State, error) {
	start := time.Now()
	img, st, err := e.Capture(ctx, size, aa)
	if err != nil {
		return nil, session.State{}, err
	}
	took := time.Since(start)
	s.metrics.ObserveRender(st.Variant, took)
	s.logger.Debug("frame rendered", "variant", st.Variant, "size", size, "aa", aa, "took", took)
	return img, st, nil
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(e *session.Explorer) error) {
	id := chi.URLParam(r, "id")
	e, err := s.sessions.Update(r.Context(), id, fn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetSessions(s.sessions.Live())
	s.writeJSON(w, http.StatusOK, newSessionView(id, e.State()))
}

// badRequest marks errors caused by the request itself.
type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

func (s *Server) checkClick(x, y, size int) error {
	if size < 1 || size > s.maxSize {
		return badRequest{fmt.Errorf("size %d outside [1, %d]", size, s.maxSize)}
	}
	if x < 0 || x >= size || y < 0 || y >= size {
		return badRequest{fmt.Errorf("click (%d, %d) outside the %d×%d grid", x, y, size, size)}
	}
	return nil
}

func (s *Server) queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest{fmt.Errorf("%s: %w", name, err)}
	}
	if n < lo || n > hi {
		return 0, badRequest{fmt.Errorf("%s %d outside [%d, %d]", name, n, lo, hi)}
	}
	return n, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, badRequest{fmt.Errorf("invalid request body: %w", err)})
		return false
	}
	return true
}

func statusOf(err error) int {
	var bad badRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, session.ErrInvalidID),
		errors.Is(err, fractal.ErrUnknownVariant),
		errors.Is(err, fractal.ErrUnknownLandmark):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
