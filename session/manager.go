package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/logging"
)

// Store persists explorer states by session id.
type Store interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, id string, st State) error

	// Load retrieves the state for a given session ID.
	// Returns ErrNotFound if the session does not exist.
	Load(ctx context.Context, id string) (State, error)

	// Touch refreshes the expiry of a stored session.
	// Returns ErrNotFound if the session does not exist.
	Touch(ctx context.Context, id string) error

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, id string) error

	// List returns the ids of stored sessions.
	List(ctx context.Context) ([]string, error)
}

const (
	// DefaultIdleTimeout is how long an unused explorer stays in memory.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultCheckInterval is how often a live explorer is confirmed against the store.
	DefaultCheckInterval = time.Minute
)

// Manager hands out one live Explorer per session id and writes changes through to a Store.
// Explorers unused for the idle timeout are dropped from memory; their state stays in the store.
type Manager struct {
	store   Store
	variant fractal.Variant
	opts    []Option
	logger  *slog.Logger
	idle    time.Duration
	check   time.Duration
	now     func() time.Time

	loads singleflight.Group

	mu    sync.Mutex
	live  map[string]*entry
	swept time.Time
}

type entry struct {
	e       *Explorer
	used    time.Time
	checked time.Time
}

type ManagerOption func(*Manager)

// WithDefaultVariant sets the variant new sessions start with.
func WithDefaultVariant(v fractal.Variant) ManagerOption {
	return func(m *Manager) {
		m.variant = v
	}
}

// WithExplorerOptions sets the options every explorer is created with.
func WithExplorerOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIdleTimeout sets how long an unused explorer is kept in memory. Zero keeps it until deleted.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idle = d
	}
}

// WithCheckInterval sets how often a live explorer refreshes its stored expiry.
// Zero checks on every access.
func WithCheckInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.check = d
	}
}

func withManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		variant: fractal.Mandelbrot,
		logger:  logging.NewNop(),
		idle:    DefaultIdleTimeout,
		check:   DefaultCheckInterval,
		now:     time.Now,
		live:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the explorer of id, restoring it from the store or creating it on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Explorer, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if e, ok := m.cached(ctx, id); ok {
		return e, nil
	}

	v, err, _ := m.loads.Do(id, func() (any, error) {
		return m.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Explorer), nil
}

// cached returns the live explorer of id. Once per check interval it refreshes the
// stored expiry and drops the explorer if its state is gone from the store.
func (m *Manager) cached(ctx context.Context, id string) (*Explorer, bool) {
	now := m.now()
	m.mu.Lock()
	m.sweep(now)
	ent, ok := m.live[id]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	ent.used = now
	due := now.Sub(ent.checked) >= m.check
	m.mu.Unlock()

	if !due {
		return ent.e, true
	}
	err := m.store.Touch(ctx, id)
	switch {
	case err == nil:
		m.mu.Lock()
		ent.checked = now
		m.mu.Unlock()
		return ent.e, true

	case errors.Is(err, ErrNotFound):
		m.logger.Info("session expired", "session", id)
		m.mu.Lock()
		if m.live[id] == ent {
			delete(m.live, id)
		}
		m.mu.Unlock()
		return nil, false

	default:
		m.logger.Warn("session check failed", "session", id, "err", err)
		return ent.e, true
	}
}

// load restores id from the store, or creates it, and makes it live.
// The store is called without holding m.mu.
func (m *Manager) load(ctx context.Context, id string) (*Explorer, error) {
	m.mu.Lock()
	if ent, ok := m.live[id]; ok {
		m.mu.Unlock()
		return ent.e, nil
	}
	m.mu.Unlock()

	now := m.now()
	ent := &entry{used: now, checked: now}
	st, err := m.store.Load(ctx, id)
	switch {
	case err == nil:
		e, err := Restore(st, m.opts...)
		if err != nil {
			return nil, fmt.Errorf("restore session %q: %w", id, err)
		}
		m.logger.Debug("session restored", "session", id, "variant", st.Variant)
		ent.e = e
		// loading does not refresh the stored expiry
		ent.checked = time.Time{}

	case errors.Is(err, ErrNotFound):
		e := New(m.variant, m.opts...)
		if err := m.store.Save(ctx, id, e.State()); err != nil {
			return nil, fmt.Errorf("save new session %q: %w", id, err)
		}
		m.logger.Info("session created", "session", id, "variant", m.variant)
		ent.e = e

	default:
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}

	m.mu.Lock()
	m.live[id] = ent
	m.mu.Unlock()
	return ent.e, nil
}

// sweep drops explorers idle for longer than the idle timeout. m.mu must be held.
func (m *Manager) sweep(now time.Time) {
	if m.idle <= 0 || now.Sub(m.swept) < m.idle/2 {
		return
	}
	m.swept = now
	for id, ent := range m.live {
		if now.Sub(ent.used) >= m.idle {
			delete(m.live, id)
			m.logger.Debug("idle session evicted", "session", id)
		}
	}
}

// Update runs fn on the explorer of id and persists the result.
// If fn fails or the state cannot be saved, the explorer is put back as it was.
func (m *Manager) Update(ctx context.Context, id string, fn func(e *Explorer) error) (*Explorer, error) {
	e, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	e.txn.Lock()
	defer e.txn.Unlock()

	before := e.State()
	if err := fn(e); err != nil {
		e.restore(before)
		return nil, err
	}
	if err := m.store.Save(ctx, id, e.State()); err != nil {
		e.restore(before)
		return nil, fmt.Errorf("save session %q: %w", id, err)
	}
	return e, nil
}

// Delete forgets the session everywhere.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	m.logger.Info("session deleted", "session", id)
	return nil
}

// Live is the number of explorers held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(m.now())
	return len(m.live)
}

// List returns the ids known to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}
