// Package sessiontest holds a reusable test suite for session.Store implementations.
package sessiontest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/session"
)

// RunStoreContract verifies that store behaves as session.Store requires.
// The store must be empty when passed in.
func RunStoreContract(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	st := session.State{
		Variant:       fractal.Tricorn,
		Viewport:      fractal.Viewport{X: 0.25, Y: -0.125, Width: 0.5, Height: 0.5},
		Zooms:         3,
		Magnification: 8,
		UpdatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("Save_Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "alpha", st))

		got, err := store.Load(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, st.Variant, got.Variant)
		assert.Equal(t, st.Viewport, got.Viewport)
		assert.Equal(t, st.Zooms, got.Zooms)
		assert.Equal(t, st.Magnification, got.Magnification)
		assert.True(t, st.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		next := st
		next.Variant = fractal.BurningShip
		next.Viewport = fractal.BurningShip.DefaultViewport()
		require.NoError(t, store.Save(ctx, "alpha", next))

		got, err := store.Load(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, fractal.BurningShip, got.Variant)
		assert.Equal(t, fractal.BurningShip.DefaultViewport(), got.Viewport)
	})

	t.Run("Touch", func(t *testing.T) {
		assert.NoError(t, store.Touch(ctx, "alpha"))
		assert.ErrorIs(t, store.Touch(ctx, "missing"), session.ErrNotFound)

		got, err := store.Load(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, fractal.BurningShip, got.Variant)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "beta", st))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"alpha", "beta"}, ids)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "alpha"))
		_, err := store.Load(ctx, "alpha")
		assert.ErrorIs(t, err, session.ErrNotFound)
		assert.ErrorIs(t, store.Touch(ctx, "alpha"), session.ErrNotFound)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"beta"}, ids)

		assert.NoError(t, store.Delete(ctx, "never-existed"))
	})
}
