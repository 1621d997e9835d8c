package memory_test

import (
	"testing"

	"github.com/marben/fractal_explorer/session/sessiontest"
	"github.com/marben/fractal_explorer/store/memory"
)

func TestMemoryStore_Contract(t *testing.T) {
	sessiontest.RunStoreContract(t, memory.NewStore())
}
