package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/session"
	"github.com/marben/fractal_explorer/session/sessiontest"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	sessiontest.RunStoreContract(t, store)
}

func TestRedisStore_KeysUsePrefix(t *testing.T) {
	store, mr := newTestStore(t, WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", session.State{
		Variant:  fractal.Mandelbrot,
		Viewport: fractal.Mandelbrot.DefaultViewport(),
	}))
	assert.True(t, mr.Exists("test:s1"))
	assert.True(t, mr.Exists("test:#index"))

	raw, err := mr.Get("test:s1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"variant":"mandelbrot"`)
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Second))
	ctx := context.Background()
	start := time.Now()
	store.now = func() time.Time { return start }

	st := session.State{Variant: fractal.Tricorn, Viewport: fractal.Tricorn.DefaultViewport()}
	require.NoError(t, store.Save(ctx, "short-lived", st))
	assert.Equal(t, time.Second, mr.TTL(DefaultPrefix+"short-lived"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"short-lived"}, ids)

	mr.FastForward(2 * time.Second)
	store.now = func() time.Time { return start.Add(2 * time.Second) }

	_, err = store.Load(ctx, "short-lived")
	assert.ErrorIs(t, err, session.ErrNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_TouchExtendsTTL(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(10*time.Second))
	ctx := context.Background()
	start := time.Now()
	store.now = func() time.Time { return start }

	st := session.State{Variant: fractal.Mandelbrot, Viewport: fractal.Mandelbrot.DefaultViewport()}
	require.NoError(t, store.Save(ctx, "busy", st))

	mr.FastForward(8 * time.Second)
	store.now = func() time.Time { return start.Add(8 * time.Second) }
	require.NoError(t, store.Touch(ctx, "busy"))
	assert.Equal(t, 10*time.Second, mr.TTL(DefaultPrefix+"busy"))

	// past the first expiry, alive thanks to the touch
	mr.FastForward(8 * time.Second)
	store.now = func() time.Time { return start.Add(16 * time.Second) }
	_, err := store.Load(ctx, "busy")
	require.NoError(t, err)
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"busy"}, ids)

	mr.FastForward(11 * time.Second)
	assert.ErrorIs(t, store.Touch(ctx, "busy"), session.ErrNotFound)
}

func TestRedisStore_CorruptState(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set(DefaultPrefix+"broken", "{not json"))

	_, err := store.Load(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	client := backend.NewClient(&backend.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	store := NewFromClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, store.Ping(ctx))
	_, err := store.Load(ctx, "any")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNotFound)
}
