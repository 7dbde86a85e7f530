package core

import "context"

// Runner starts external tool processes and exposes their lifecycle. The
// manager never touches os/exec directly; everything below it is swappable
// for tests.
type Runner interface {
	Start(ctx context.Context, req StartProcessRequest) (ProcessHandle, error)
}

// StartProcessRequest describes one external process invocation.
type StartProcessRequest struct {
	Command string
	Args    []string
	// OutputPath receives combined stdout/stderr. Empty discards output.
	OutputPath string
	Env        []string
}

// ProcessSignal indicates which signal to send to the process group.
type ProcessSignal string

const (
	// ProcessSignalTERM requests graceful termination.
	ProcessSignalTERM ProcessSignal = "TERM"
	// ProcessSignalKILL requests immediate termination.
	ProcessSignalKILL ProcessSignal = "KILL"
)

// ProcessResult describes the process outcome.
type ProcessResult struct {
	ExitCode int
	Signal   string
}

// ProcessHandle exposes lifecycle controls for a started process.
type ProcessHandle interface {
	PID() int
	Signal(ctx context.Context, sig ProcessSignal) error
	Wait(ctx context.Context) (ProcessResult, error)
	Close() error
}
