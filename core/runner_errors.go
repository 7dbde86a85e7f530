package core

import "fmt"

// SpawnError reports that an external process could not be started at all
// (binary missing, permission denied). It is returned synchronously from
// Start; no job is registered when it occurs.
type SpawnError struct {
	Command string
	Err     error
}

// NewSpawnError wraps a spawn failure for the given command.
func NewSpawnError(command string, err error) *SpawnError {
	return &SpawnError{Command: command, Err: err}
}

func (e *SpawnError) Error() string {
	if e == nil {
		return "spawn error"
	}
	if e.Err != nil {
		return fmt.Sprintf("spawn %s: %s", e.Command, e.Err)
	}
	return fmt.Sprintf("spawn %s failed", e.Command)
}

func (e *SpawnError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
