package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	fractal "github.com/marben/fractal_explorer"
)

// flags are checked before the terminal is opened
func TestCommand_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"aa zero", []string{"--aa", "0"}, "--aa must be in [1, 4], got 0"},
		{"aa too large", []string{"--aa", "9"}, "--aa must be in [1, 4], got 9"},
		{"variant", []string{"--variant", "julia"}, fractal.ErrUnknownVariant.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newCommand()
			cmd.SetArgs(tt.args)
			assert.ErrorContains(t, cmd.Execute(), tt.want)
		})
	}
}
