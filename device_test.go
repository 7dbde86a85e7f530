package opsdeck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/appconfig"
	"pkt.systems/opsdeck/schema"
)

type nopHandle struct{ done chan struct{} }

func (h *nopHandle) PID() int { return 4242 }
func (h *nopHandle) Signal(context.Context, core.ProcessSignal) error {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	return nil
}
func (h *nopHandle) Wait(ctx context.Context) (core.ProcessResult, error) {
	select {
	case <-h.done:
		return core.ProcessResult{}, nil
	case <-ctx.Done():
		return core.ProcessResult{}, ctx.Err()
	}
}
func (h *nopHandle) Close() error { return nil }

type nopRunner struct{}

func (nopRunner) Start(context.Context, core.StartProcessRequest) (core.ProcessHandle, error) {
	return &nopHandle{done: make(chan struct{})}, nil
}

func testAppConfig(t *testing.T) appconfig.Config {
	t.Helper()
	base := t.TempDir()
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.LootRoot = filepath.Join(base, "loot")
	cfg.StateDir = filepath.Join(base, "state")
	cfg.ProfileDir = filepath.Join(base, "profiles")
	cfg.Alerts.JournalPath = filepath.Join(base, "state", "alerts.jsonl")
	cfg.SSH.Enabled = false
	return cfg
}

func TestDeviceLifecycle(t *testing.T) {
	cfg := testAppConfig(t)
	device, err := New(cfg, Deps{Runner: nopRunner{}})
	if err != nil {
		t.Fatalf("new device: %v", err)
	}

	ctx := context.Background()
	if err := device.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := device.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}

	snap := device.Store().Snapshot()
	if snap.ActiveMode != "system" {
		t.Fatalf("active mode = %s, want system", snap.ActiveMode)
	}

	if err := device.Controller().DispatchInput(ctx, schema.InputNext); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := device.Store().Snapshot().ActiveMode; got != "network" {
		t.Fatalf("active mode = %s after NEXT, want network", got)
	}

	if err := device.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := device.Controller().DispatchInput(ctx, schema.InputNext); err == nil {
		t.Fatal("dispatch after stop should fail")
	}

	for _, category := range schema.LootCategories {
		if _, err := os.Stat(filepath.Join(cfg.LootRoot, category)); err != nil {
			t.Fatalf("loot category %s missing: %v", category, err)
		}
	}
}

func TestDeviceWaitReturnsOnCancel(t *testing.T) {
	device, err := New(testAppConfig(t), Deps{Runner: nopRunner{}})
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := device.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- device.Wait() }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after cancel")
	}
	_ = device.Stop(context.Background())
}
