package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/opsdeck/schema"
)

type scriptedMode struct {
	id         schema.ModeID
	title      string
	background bool

	mu     sync.Mutex
	enters int
	exits  int
	inputs []schema.InputEvent
	ticks  int
}

func (m *scriptedMode) ID() schema.ModeID     { return m.id }
func (m *scriptedMode) Title() string         { return m.title }
func (m *scriptedMode) AllowsBackground() bool { return m.background }

func (m *scriptedMode) Enter(context.Context) {
	m.mu.Lock()
	m.enters++
	m.mu.Unlock()
}

func (m *scriptedMode) Exit(context.Context) {
	m.mu.Lock()
	m.exits++
	m.mu.Unlock()
}

func (m *scriptedMode) HandleInput(_ context.Context, event schema.InputEvent) {
	m.mu.Lock()
	m.inputs = append(m.inputs, event)
	m.mu.Unlock()
}

func (m *scriptedMode) Tick(context.Context) {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func newTestController(t *testing.T, modes ...Mode) (*ModeController, *fakeRunner, *StateStore) {
	t.Helper()
	cfg := testConfig(t)
	runner := &fakeRunner{}
	store := NewStateStore(schema.DefaultAlertCapacity, StateDeps{})
	payloads := NewPayloadManager(cfg, runner, store, nil)
	registry, err := NewRegistry(modes...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewModeController(cfg, registry, store, payloads, nil), runner, store
}

func TestNavigationWrapsAndRunsLifecycle(t *testing.T) {
	a := &scriptedMode{id: "system", title: "SYSTEM"}
	b := &scriptedMode{id: "network", title: "NETWORK"}
	c, _, store := newTestController(t, a, b)
	ctx := context.Background()
	c.Start(ctx)
	if a.enters != 1 {
		t.Fatalf("expected first mode entered on start")
	}

	if err := c.DispatchInput(ctx, schema.InputNext); err != nil {
		t.Fatalf("next: %v", err)
	}
	if c.Active().ID() != "network" || a.exits != 1 || b.enters != 1 {
		t.Fatalf("next did not switch modes: active=%s", c.Active().ID())
	}
	if store.Snapshot().ModeTitle != "NETWORK" {
		t.Fatalf("snapshot title not updated")
	}

	// Prev from the last mode wraps back past the first.
	if err := c.DispatchInput(ctx, schema.InputPrev); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if err := c.DispatchInput(ctx, schema.InputPrev); err != nil {
		t.Fatalf("prev wrap: %v", err)
	}
	if c.Active().ID() != "network" {
		t.Fatalf("expected wrap to last mode, got %s", c.Active().ID())
	}
}

func TestNavigationBlockedByForegroundPayload(t *testing.T) {
	a := &scriptedMode{id: "nmap", title: "NMAP SCAN"}
	b := &scriptedMode{id: "wifi", title: "WIFI ATTACK"}
	c, _, store := newTestController(t, a, b)
	ctx := context.Background()
	c.Start(ctx)

	if _, err := c.payloads.Start(ctx, StartRequest{Mode: "nmap", Name: "Full Scan", Command: "nmap"}); err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if err := c.DispatchInput(ctx, schema.InputNext); !errors.Is(err, schema.ErrModeBusy) {
		t.Fatalf("expected ErrModeBusy, got %v", err)
	}
	if c.Active().ID() != "nmap" || a.exits != 0 {
		t.Fatalf("blocked navigation must not switch modes")
	}
	alerts := store.Snapshot().Alerts
	if len(alerts) == 0 || alerts[len(alerts)-1].Message != "Payload running - cancel first" {
		t.Fatalf("expected warning alert, got %+v", alerts)
	}
}

func TestBackgroundModeAllowsNavigation(t *testing.T) {
	a := &scriptedMode{id: "shells", title: "REVERSE SHELLS", background: true}
	b := &scriptedMode{id: "loot", title: "LOOT BROWSER"}
	c, _, _ := newTestController(t, a, b)
	ctx := context.Background()
	c.Start(ctx)

	if _, err := c.payloads.Start(ctx, StartRequest{Mode: "shells", Name: "Listener", Command: "nc"}); err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if err := c.DispatchInput(ctx, schema.InputNext); err != nil {
		t.Fatalf("background mode must allow navigation: %v", err)
	}
	if c.Active().ID() != "loot" {
		t.Fatalf("expected switch to loot, got %s", c.Active().ID())
	}
}

func TestWakeSwallowsInput(t *testing.T) {
	a := &scriptedMode{id: "system", title: "SYSTEM"}
	c, _, store := newTestController(t, a)
	ctx := context.Background()
	c.Start(ctx)
	store.SetBacklight(false)

	if err := c.DispatchInput(ctx, schema.InputSelect); err != nil {
		t.Fatalf("wake dispatch: %v", err)
	}
	if !store.Backlight() {
		t.Fatalf("expected backlight on after wake")
	}
	if len(a.inputs) != 0 {
		t.Fatalf("wake input must not reach the mode, got %v", a.inputs)
	}

	// The next event is handled normally.
	if err := c.DispatchInput(ctx, schema.InputSelect); err != nil {
		t.Fatalf("dispatch after wake: %v", err)
	}
	if len(a.inputs) != 1 || a.inputs[0] != schema.InputSelect {
		t.Fatalf("expected select delivered after wake, got %v", a.inputs)
	}
}

func TestCancelRoutesToRunningPayload(t *testing.T) {
	a := &scriptedMode{id: "mitm", title: "MITM"}
	c, _, _ := newTestController(t, a)
	ctx := context.Background()
	c.Start(ctx)

	id, err := c.payloads.Start(ctx, StartRequest{Mode: "mitm", Name: "Spoof", Command: "arpspoof"})
	if err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if err := c.DispatchInput(ctx, schema.InputCancel); err != nil {
		t.Fatalf("cancel dispatch: %v", err)
	}
	waitForPhase(t, c.payloads, id, schema.JobCancelled)
	if len(a.inputs) != 0 {
		t.Fatalf("cancel must not reach the mode while a payload runs")
	}

	// With nothing running, cancel goes to the mode for menu backout.
	if err := c.DispatchInput(ctx, schema.InputCancel); err != nil {
		t.Fatalf("cancel dispatch idle: %v", err)
	}
	if len(a.inputs) != 1 || a.inputs[0] != schema.InputCancel {
		t.Fatalf("expected cancel delivered to mode, got %v", a.inputs)
	}
}

func TestTickTimesOutBacklight(t *testing.T) {
	a := &scriptedMode{id: "system", title: "SYSTEM"}
	c, _, store := newTestController(t, a)
	c.cfg.BacklightTimeout = time.Millisecond
	ctx := context.Background()
	c.Start(ctx)

	time.Sleep(5 * time.Millisecond)
	c.Tick(ctx)
	if store.Backlight() {
		t.Fatalf("expected backlight off after idle timeout")
	}
	if a.ticks != 1 {
		t.Fatalf("expected mode tick, got %d", a.ticks)
	}
}

func TestCloseRejectsFurtherInput(t *testing.T) {
	a := &scriptedMode{id: "system", title: "SYSTEM"}
	c, _, _ := newTestController(t, a)
	ctx := context.Background()
	c.Start(ctx)

	id, err := c.payloads.Start(ctx, StartRequest{Mode: "system", Name: "Job", Command: "sleep"})
	if err != nil {
		t.Fatalf("start payload: %v", err)
	}
	c.Close(ctx)
	if a.exits != 1 {
		t.Fatalf("expected active mode exited on close")
	}
	waitForPhase(t, c.payloads, id, schema.JobCancelled)

	if err := c.DispatchInput(ctx, schema.InputNext); !errors.Is(err, schema.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}
