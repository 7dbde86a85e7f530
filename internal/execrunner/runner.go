// Package execrunner implements core.Runner on top of os/exec. Each payload
// runs in its own process group so that signals reach the whole tool
// pipeline, not just the direct child.
package execrunner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"pkt.systems/opsdeck/core"
	"pkt.systems/pslog"
)

// Config controls how payload processes are invoked.
type Config struct {
	// Env entries are appended to the inherited environment.
	Env []string
}

// Runner implements core.Runner.
type Runner struct {
	cfg Config
}

// New constructs an exec runner.
func New(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Start spawns the requested process. Spawn failures (missing binary,
// permission denied, unwritable output path) are reported synchronously.
func (r *Runner) Start(ctx context.Context, req core.StartProcessRequest) (core.ProcessHandle, error) {
	if req.Command == "" {
		return nil, fmt.Errorf("command is required")
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		return nil, err
	}

	log := pslog.Ctx(ctx)
	cmd := exec.Command(path, req.Args...)
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.Env = append(cmd.Env, req.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var output *os.File
	if req.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o750); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		output, err = os.OpenFile(req.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		cmd.Stdout = output
		cmd.Stderr = output
	}

	if err := cmd.Start(); err != nil {
		if output != nil {
			_ = output.Close()
			_ = os.Remove(req.OutputPath)
		}
		return nil, err
	}
	log.Debug("process started", "command", req.Command, "pid", cmd.Process.Pid, "output", req.OutputPath)

	return &processHandle{
		cmd:     cmd,
		output:  output,
		log:     log,
		started: time.Now(),
	}, nil
}

type processHandle struct {
	cmd     *exec.Cmd
	output  *os.File
	log     pslog.Logger
	started time.Time
}

func (h *processHandle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Signal delivers the signal to the whole process group, falling back to
// the direct child if the group is already gone.
func (h *processHandle) Signal(ctx context.Context, sig core.ProcessSignal) error {
	_ = ctx
	if h.cmd == nil || h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	var signo unix.Signal
	switch sig {
	case core.ProcessSignalTERM:
		signo = unix.SIGTERM
	case core.ProcessSignalKILL:
		signo = unix.SIGKILL
	default:
		return fmt.Errorf("unsupported signal: %s", sig)
	}
	if err := unix.Kill(-h.cmd.Process.Pid, signo); err != nil {
		return h.cmd.Process.Signal(signo)
	}
	return nil
}

// Wait blocks until the process exits and reports its outcome. A process
// killed by signal reports the signal name with a nonzero exit code.
func (h *processHandle) Wait(ctx context.Context) (core.ProcessResult, error) {
	_ = ctx
	if h.cmd == nil {
		return core.ProcessResult{}, fmt.Errorf("process not started")
	}
	err := h.cmd.Wait()
	if h.output != nil {
		_ = h.output.Sync()
	}
	result := core.ProcessResult{}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return core.ProcessResult{ExitCode: -1}, err
		}
		result.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			result.Signal = status.Signal().String()
			if result.ExitCode < 0 {
				result.ExitCode = 128 + int(status.Signal())
			}
		}
	}
	h.log.Debug("process finished",
		"pid", h.PID(),
		"exit_code", result.ExitCode,
		"duration_ms", time.Since(h.started).Milliseconds(),
	)
	return result, nil
}

func (h *processHandle) Close() error {
	if h.output != nil {
		return h.output.Close()
	}
	return nil
}
