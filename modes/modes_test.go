package modes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

type fakeHandle struct {
	pid    int
	result core.ProcessResult
	done   chan struct{}
	once   sync.Once
}

func newFakeHandle(pid, exitCode int) *fakeHandle {
	return &fakeHandle{pid: pid, result: core.ProcessResult{ExitCode: exitCode}, done: make(chan struct{})}
}

func (h *fakeHandle) exit() { h.once.Do(func() { close(h.done) }) }

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Signal(_ context.Context, sig core.ProcessSignal) error {
	h.exit()
	return nil
}

func (h *fakeHandle) Wait(ctx context.Context) (core.ProcessResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return core.ProcessResult{}, ctx.Err()
	}
}

func (h *fakeHandle) Close() error { return nil }

// fakeRunner records start requests. With autoExit set the handle exits
// immediately, so jobs complete without external prodding.
type fakeRunner struct {
	mu       sync.Mutex
	requests []core.StartProcessRequest
	autoExit bool
}

func (r *fakeRunner) Start(_ context.Context, req core.StartProcessRequest) (core.ProcessHandle, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	n := len(r.requests)
	r.mu.Unlock()
	h := newFakeHandle(1000+n, 0)
	if r.autoExit {
		h.exit()
	}
	return h, nil
}

func (r *fakeRunner) recorded() []core.StartProcessRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.StartProcessRequest(nil), r.requests...)
}

func testEnv(t *testing.T, runner core.Runner) Env {
	t.Helper()
	cfg, err := schema.NormalizeServiceConfig(schema.ServiceConfig{
		LootRoot:      filepath.Join(t.TempDir(), "loot"),
		ConfirmWindow: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	store := core.NewStateStore(cfg.AlertCapacity, core.StateDeps{})
	payloads := core.NewPayloadManager(cfg, runner, store, nil)
	return Env{
		Cfg:        cfg,
		Store:      store,
		Payloads:   payloads,
		ProfileDir: filepath.Join(t.TempDir(), "profiles"),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasAlert(store *core.StateStore, substr string) bool {
	for _, a := range store.Snapshot().Alerts {
		if strings.Contains(a.Message, substr) {
			return true
		}
	}
	return false
}

func TestMenuWrapsAtBothEnds(t *testing.T) {
	env := testEnv(t, &fakeRunner{})
	m := newMenu("TEST", env.Store)
	m.reset([]menuItem{{label: "a"}, {label: "b"}, {label: "c"}})

	ctx := context.Background()
	m.handle(ctx, schema.InputUp)
	if m.selected != 2 {
		t.Fatalf("selected = %d after wrapping up, want 2", m.selected)
	}
	m.handle(ctx, schema.InputDown)
	if m.selected != 0 {
		t.Fatalf("selected = %d after wrapping down, want 0", m.selected)
	}

	menu := env.Store.Snapshot().Menu
	if menu.Title != "TEST" || len(menu.Items) != 3 || menu.Selected != 0 {
		t.Fatalf("published menu = %+v", menu)
	}
}

func TestSystemRebootRequiresSecondSelect(t *testing.T) {
	runner := &fakeRunner{autoExit: true}
	env := testEnv(t, runner)
	m := NewSystemMode(env)
	ctx := context.Background()
	m.Enter(ctx)

	m.HandleInput(ctx, schema.InputSelect)
	if got := runner.recorded(); len(got) != 0 {
		t.Fatalf("first select started %d payloads, want 0", len(got))
	}
	if !hasAlert(env.Store, "Press again to reboot") {
		t.Fatal("expected arm alert after first select")
	}

	m.HandleInput(ctx, schema.InputSelect)
	got := runner.recorded()
	if len(got) != 1 {
		t.Fatalf("second select started %d payloads, want 1", len(got))
	}
	if got[0].Command != "sudo" || got[0].Args[0] != "reboot" {
		t.Fatalf("started %s %v, want sudo reboot", got[0].Command, got[0].Args)
	}
}

func TestNmapPresetScansDetectedTarget(t *testing.T) {
	runner := &fakeRunner{autoExit: true}
	env := testEnv(t, runner)
	m := NewNmapMode(env)
	ctx := context.Background()
	m.Enter(ctx)

	if m.target == "" {
		t.Fatal("no target detected on enter")
	}
	m.HandleInput(ctx, schema.InputSelect)

	got := runner.recorded()
	if len(got) != 1 {
		t.Fatalf("started %d payloads, want 1", len(got))
	}
	if got[0].Command != "nmap" {
		t.Fatalf("command = %s, want nmap", got[0].Command)
	}
	args := got[0].Args
	if args[len(args)-1] != m.target {
		t.Fatalf("last arg = %s, want target %s", args[len(args)-1], m.target)
	}
	if args[0] != "-T4" || args[1] != "-F" {
		t.Fatalf("quick scan args = %v", args)
	}
	if !strings.Contains(got[0].OutputPath, string(filepath.Separator)+"scans"+string(filepath.Separator)) {
		t.Fatalf("output path %s not under scans", got[0].OutputPath)
	}
}

func TestLootBrowseDrillsInAndBacksOut(t *testing.T) {
	env := testEnv(t, &fakeRunner{})
	if err := core.EnsureLootTree(env.Cfg.LootRoot, schema.LootCategories); err != nil {
		t.Fatalf("ensure loot tree: %v", err)
	}
	capture := filepath.Join(env.Cfg.LootRoot, "scans", "job-000001-20260829_120000.txt")
	if err := os.WriteFile(capture, []byte("open ports\n"), 0o640); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	m := NewLootMode(env)
	ctx := context.Background()
	m.Enter(ctx)

	menu := env.Store.Snapshot().Menu
	if menu.Items[0] != "scans (1)" {
		t.Fatalf("category row = %q, want scans (1)", menu.Items[0])
	}

	m.HandleInput(ctx, schema.InputSelect)
	menu = env.Store.Snapshot().Menu
	if menu.Title != "LOOT/scans" {
		t.Fatalf("title = %q after drilling in", menu.Title)
	}
	if menu.Items[0] != filepath.Base(capture) {
		t.Fatalf("file row = %q", menu.Items[0])
	}

	m.HandleInput(ctx, schema.InputCancel)
	menu = env.Store.Snapshot().Menu
	if menu.Title != "LOOT" {
		t.Fatalf("title = %q after backing out, want LOOT", menu.Title)
	}
}

func TestProcessesListsCachedMetrics(t *testing.T) {
	env := testEnv(t, &fakeRunner{})
	env.Store.SetMetrics(schema.SystemMetrics{
		Processes: []schema.ProcessInfo{
			{PID: 123, Name: "nmap", CPU: 42},
			{PID: 456, Name: "responder", CPU: 7},
		},
	})

	m := NewProcessesMode(env)
	m.Enter(context.Background())

	menu := env.Store.Snapshot().Menu
	if len(menu.Items) != 3 {
		t.Fatalf("menu has %d rows, want 3", len(menu.Items))
	}
	if menu.Items[1] != "123 nmap 42%" {
		t.Fatalf("process row = %q", menu.Items[1])
	}
}

func TestAlertsShowsNewestFirst(t *testing.T) {
	env := testEnv(t, &fakeRunner{})
	env.Store.AddAlert("first", schema.AlertInfo)
	env.Store.AddAlert("second", schema.AlertWarn)

	m := NewAlertsMode(env, "")
	m.Enter(context.Background())

	menu := env.Store.Snapshot().Menu
	if !strings.HasSuffix(menu.Items[0], "[warn] second") {
		t.Fatalf("top row = %q, want newest alert", menu.Items[0])
	}
	if !strings.HasSuffix(menu.Items[1], "[info] first") {
		t.Fatalf("second row = %q", menu.Items[1])
	}
}

func TestProfilesRunStepsInOrder(t *testing.T) {
	runner := &fakeRunner{autoExit: true}
	env := testEnv(t, runner)
	profile := `name = "Sweep"

[[steps]]
name = "Quick"
command = "nmap"
args = ["-F", "192.168.1.0/24"]
timeout = "90s"

[[steps]]
name = "Service"
command = "nmap"
args = ["-sV", "192.168.1.0/24"]
timeout = "90s"
`
	if err := os.MkdirAll(env.ProfileDir, 0o750); err != nil {
		t.Fatalf("mkdir profiles: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.ProfileDir, "sweep.toml"), []byte(profile), 0o640); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	m := NewProfilesMode(env)
	ctx := context.Background()
	m.Enter(ctx)

	menu := env.Store.Snapshot().Menu
	if menu.Items[1] != "Sweep (2 steps)" {
		t.Fatalf("profile row = %q", menu.Items[1])
	}

	m.HandleInput(ctx, schema.InputDown)
	m.HandleInput(ctx, schema.InputSelect)

	waitFor(t, "profile completion", func() bool {
		return hasAlert(env.Store, "Profile Sweep complete")
	})
	got := runner.recorded()
	if len(got) != 2 {
		t.Fatalf("ran %d steps, want 2", len(got))
	}
	if got[0].Args[0] != "-F" || got[1].Args[0] != "-sV" {
		t.Fatalf("steps out of order: %v then %v", got[0].Args, got[1].Args)
	}
}

func TestProfilesDoubleCancelIsSafe(t *testing.T) {
	runner := &fakeRunner{}
	env := testEnv(t, runner)
	profile := `name = "Sweep"

[[steps]]
name = "Quick"
command = "nmap"
args = ["-F", "192.168.1.0/24"]
timeout = "90s"
`
	if err := os.MkdirAll(env.ProfileDir, 0o750); err != nil {
		t.Fatalf("mkdir profiles: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.ProfileDir, "sweep.toml"), []byte(profile), 0o640); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	m := NewProfilesMode(env)
	ctx := context.Background()
	m.Enter(ctx)
	m.HandleInput(ctx, schema.InputDown)
	m.HandleInput(ctx, schema.InputSelect)

	waitFor(t, "step launch", func() bool {
		return len(runner.recorded()) == 1
	})

	// A second CANCEL while the runner winds down must be a no-op,
	// not a close of an already closed channel.
	m.HandleInput(ctx, schema.InputCancel)
	time.Sleep(10 * time.Millisecond)
	m.HandleInput(ctx, schema.InputCancel)

	waitFor(t, "profile abort", func() bool {
		return hasAlert(env.Store, "Profile Sweep aborted")
	})
	waitFor(t, "runner idle", func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return !m.running
	})
}

func TestNmapRefreshTargetUpdatesTitle(t *testing.T) {
	runner := &fakeRunner{autoExit: true}
	env := testEnv(t, runner)
	m := NewNmapMode(env)
	ctx := context.Background()
	m.Enter(ctx)

	m.menu.title = "NMAP RECON stale"
	m.menu.publish()

	m.HandleInput(ctx, schema.InputUp)
	m.HandleInput(ctx, schema.InputSelect)

	want := "NMAP RECON " + m.target
	if got := env.Store.Snapshot().Menu.Title; got != want {
		t.Fatalf("menu title = %q, want %q", got, want)
	}
}

func TestRegistryNavigationOrder(t *testing.T) {
	env := testEnv(t, &fakeRunner{})
	registry, err := NewRegistry(env, "")
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if registry.Len() != 13 {
		t.Fatalf("registry has %d modes, want 13", registry.Len())
	}
	if registry.At(0).ID() != "system" {
		t.Fatalf("first mode = %s, want system", registry.At(0).ID())
	}
	if registry.At(-1).ID() != "alerts" {
		t.Fatalf("last mode = %s, want alerts", registry.At(-1).ID())
	}
}
