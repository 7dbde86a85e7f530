package schema

import "errors"

var (
	// ErrResourceBusy indicates the exclusive resource class is already held
	// by a non-terminal job.
	ErrResourceBusy = errors.New("resource busy")
	// ErrJobNotFound indicates a requested job could not be found.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnknownMode indicates an unregistered mode identifier.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrModeBusy indicates navigation away from a mode that owns a running
	// payload without background continuation.
	ErrModeBusy = errors.New("payload running, cancel first")
	// ErrEmptyCommand indicates a payload request without a command.
	ErrEmptyCommand = errors.New("empty command")
	// ErrStateCorruption indicates an internal invariant violation, e.g. two
	// jobs holding the same resource class.
	ErrStateCorruption = errors.New("state corruption")
	// ErrShuttingDown indicates the controller is closed.
	ErrShuttingDown = errors.New("shutting down")
)
