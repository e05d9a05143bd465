package journal

import (
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// State is the lifecycle state of the loaded journal.
type State int

const (
	// StateUnloaded means no journal is loaded.
	StateUnloaded State = iota
	// StateLoading means Load is running; operations wait for it.
	StateLoading
	// StateReady means operations are served.
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ErrNotLoaded is returned by operations issued while no journal is loaded.
var ErrNotLoaded = jerrors.New(jerrors.ErrCodeNotLoaded, "no journal loaded", nil).
	WithSuggestion("load a journal first")
