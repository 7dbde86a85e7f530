package core

import (
	"context"
	"fmt"

	"pkt.systems/opsdeck/schema"
)

// Mode is one selectable operational screen in the navigation cycle. Modes
// are constructed once at startup into a fixed registry and never destroyed.
type Mode interface {
	ID() schema.ModeID
	Title() string
	// Enter is called when the mode becomes active.
	Enter(ctx context.Context)
	// Exit is called when leaving the mode. It must be idempotent and must
	// not assume any payload has finished.
	Exit(ctx context.Context)
	// HandleInput receives UP, DOWN, SELECT and CANCEL events routed to the
	// active mode.
	HandleInput(ctx context.Context, event schema.InputEvent)
	// Tick runs on a fixed schedule independent of input.
	Tick(ctx context.Context)
	// AllowsBackground reports whether the mode's payloads may keep running
	// after navigating away.
	AllowsBackground() bool
}

// Registry is the fixed, ordered collection of modes assembled at startup.
type Registry struct {
	modes []Mode
	index map[schema.ModeID]int
}

// NewRegistry builds a registry; mode order is navigation order.
func NewRegistry(modes ...Mode) (*Registry, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("at least one mode is required")
	}
	index := make(map[schema.ModeID]int, len(modes))
	for i, mode := range modes {
		if mode.ID() == "" {
			return nil, fmt.Errorf("mode %d has an empty id", i)
		}
		if _, dup := index[mode.ID()]; dup {
			return nil, fmt.Errorf("duplicate mode id %s", mode.ID())
		}
		index[mode.ID()] = i
	}
	return &Registry{modes: modes, index: index}, nil
}

// Len returns the number of registered modes.
func (r *Registry) Len() int { return len(r.modes) }

// At returns the mode at position i (wrapping).
func (r *Registry) At(i int) Mode {
	n := len(r.modes)
	return r.modes[((i%n)+n)%n]
}

// Lookup finds a mode by id.
func (r *Registry) Lookup(id schema.ModeID) (Mode, int, error) {
	i, ok := r.index[id]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", schema.ErrUnknownMode, id)
	}
	return r.modes[i], i, nil
}
