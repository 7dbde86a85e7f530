package modes

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
	"pkt.systems/opsdeck/schema"
)

// ProcessesMode lists the top processes from the cached metrics and kills
// the selected one. Kills are confirm-to-arm; the second SELECT inside the
// window sends SIGTERM.
type ProcessesMode struct {
	env  Env
	menu *menu
}

// NewProcessesMode constructs the process list screen.
func NewProcessesMode(env Env) *ProcessesMode {
	return &ProcessesMode{env: env, menu: newMenu("PROCESSES", env.Store)}
}

func (m *ProcessesMode) ID() schema.ModeID      { return "processes" }
func (m *ProcessesMode) Title() string          { return "PROCESSES" }
func (m *ProcessesMode) AllowsBackground() bool { return false }

func (m *ProcessesMode) Enter(ctx context.Context) {
	m.refresh(ctx)
}

func (m *ProcessesMode) Exit(context.Context) {}

func (m *ProcessesMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *ProcessesMode) Tick(ctx context.Context) {
	// Rebuild only while the cursor is at the top so the list does not
	// shift under a user lining up a kill.
	if m.menu.selected == 0 {
		m.refresh(ctx)
	}
}

func (m *ProcessesMode) refresh(ctx context.Context) {
	procs := m.env.Store.Snapshot().Metrics.Processes
	items := make([]menuItem, 0, len(procs)+1)
	items = append(items, menuItem{label: "Refresh List", run: m.refresh})
	for _, p := range procs {
		proc := p
		items = append(items, menuItem{
			label: fmt.Sprintf("%d %s %.0f%%", proc.PID, proc.Name, proc.CPU),
			run:   func(ctx context.Context) { m.kill(ctx, proc) },
		})
	}
	m.menu.reset(items)
}

func (m *ProcessesMode) kill(ctx context.Context, proc schema.ProcessInfo) {
	action := fmt.Sprintf("kill %d", proc.PID)
	if !m.env.Store.RequestConfirm(action, m.env.Cfg.ConfirmWindow) {
		m.env.Store.AddAlert(fmt.Sprintf("Press again to kill %s", proc.Name), schema.AlertWarn)
		return
	}
	if err := unix.Kill(int(proc.PID), unix.SIGTERM); err != nil {
		m.env.Store.AddAlert(fmt.Sprintf("kill %d: %v", proc.PID, err), schema.AlertError)
		return
	}
	m.env.Store.AddAlert(fmt.Sprintf("Sent TERM to %s (%d)", proc.Name, proc.PID), schema.AlertInfo)
	m.refresh(ctx)
}
