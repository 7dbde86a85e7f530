package modes

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// SystemMode shows device health and exposes the destructive controls.
// Reboot, shutdown and update are armed on first SELECT and fire only on a
// second SELECT inside the confirm window.
type SystemMode struct {
	env  Env
	menu *menu
}

// NewSystemMode constructs the system screen.
func NewSystemMode(env Env) *SystemMode {
	m := &SystemMode{env: env, menu: newMenu("SYSTEM", env.Store)}
	return m
}

func (m *SystemMode) ID() schema.ModeID      { return "system" }
func (m *SystemMode) Title() string          { return "SYSTEM" }
func (m *SystemMode) AllowsBackground() bool { return false }

func (m *SystemMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "Reboot", run: m.reboot},
		{label: "Shutdown", run: m.shutdown},
		{label: "Kill All Tools", run: m.killAll},
		{label: "Update & Relaunch", run: m.update},
	})
}

func (m *SystemMode) Exit(context.Context) {}

func (m *SystemMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *SystemMode) Tick(context.Context) {}

func (m *SystemMode) confirm(action string) bool {
	if m.env.Store.RequestConfirm(action, m.env.Cfg.ConfirmWindow) {
		return true
	}
	m.env.Store.AddAlert(fmt.Sprintf("Press again to %s", action), schema.AlertWarn)
	return false
}

func (m *SystemMode) reboot(ctx context.Context) {
	if !m.confirm("reboot") {
		return
	}
	m.env.Store.AddAlert("Rebooting...", schema.AlertWarn)
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Reboot",
		Command: "sudo", Args: []string{"reboot"},
		Timeout: 30 * time.Second,
	})
}

func (m *SystemMode) shutdown(ctx context.Context) {
	if !m.confirm("shutdown") {
		return
	}
	m.env.Store.AddAlert("Shutting down...", schema.AlertWarn)
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Shutdown",
		Command: "sudo", Args: []string{"shutdown", "-h", "now"},
		Timeout: 30 * time.Second,
	})
}

func (m *SystemMode) killAll(ctx context.Context) {
	m.env.Payloads.KillTools(ctx)
}

func (m *SystemMode) update(ctx context.Context) {
	if !m.confirm("update") {
		return
	}
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Update & Relaunch",
		Command: "sh",
		Args: []string{"-c",
			"timeout 120 git fetch origin main && git reset --hard origin/main && sudo reboot"},
		Timeout:  150 * time.Second,
		Category: "captures", Ext: "log",
	})
}
