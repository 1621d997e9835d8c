package session

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	fractal "github.com/marben/fractal_explorer"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
	ErrBadState  = errors.New("invalid session state")
)

// State is the persisted form of an Explorer.
type State struct {
	Variant       fractal.Variant  `json:"variant"`
	Viewport      fractal.Viewport `json:"viewport"`
	Zooms         int              `json:"zooms"`
	Magnification float64          `json:"magnification"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Validate checks a state read from storage before it is trusted.
func (st State) Validate() error {
	if !st.Variant.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrBadState, fractal.ErrUnknownVariant, int(st.Variant))
	}
	if !st.Viewport.Valid() {
		return fmt.Errorf("%w: viewport %s", ErrBadState, st.Viewport)
	}
	if st.Zooms < 0 {
		return fmt.Errorf("%w: negative zoom count %d", ErrBadState, st.Zooms)
	}
	return nil
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateID accepts ids of 1 to 64 letters, digits, '-' or '_'.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
