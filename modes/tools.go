package modes

import (
	"context"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

const toolTimeout = time.Hour

// ToolsMode is the quick launcher for standalone capture and service
// tools that do not warrant a full attack screen.
type ToolsMode struct {
	env  Env
	menu *menu
}

// NewToolsMode constructs the tools launcher.
func NewToolsMode(env Env) *ToolsMode {
	m := &ToolsMode{env: env, menu: newMenu("TOOLS", env.Store)}
	return m
}

func (m *ToolsMode) ID() schema.ModeID      { return "tools" }
func (m *ToolsMode) Title() string          { return "TOOLS" }
func (m *ToolsMode) AllowsBackground() bool { return true }

func (m *ToolsMode) Enter(ctx context.Context) {
	net := m.env.iface(schema.ResourceNetwork)
	m.menu.reset([]menuItem{
		{label: "tcpdump " + net, run: m.tcpdump},
		{label: "tshark " + net, run: m.tshark},
		{label: "Bettercap", run: m.bettercap},
		{label: "SSH Server ON", run: func(ctx context.Context) { m.sshd(ctx, "start") }},
		{label: "SSH Server OFF", run: func(ctx context.Context) { m.sshd(ctx, "stop") }},
		{label: "Stop All Tools", run: m.stopAll},
	})
}

func (m *ToolsMode) Exit(context.Context) {}

func (m *ToolsMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *ToolsMode) Tick(context.Context) {}

func (m *ToolsMode) tcpdump(ctx context.Context) {
	iface := m.env.iface(schema.ResourceNetwork)
	m.env.start(ctx, core.StartRequest{
		Mode:     m.ID(),
		Name:     "tcpdump " + iface,
		Command:  "sudo",
		Args:     []string{"tcpdump", "-i", iface, "-w", "-"},
		Resource: schema.ResourceNetwork,
		Timeout:  toolTimeout,
		Category: "captures",
		Ext:      "pcap",
	})
}

func (m *ToolsMode) tshark(ctx context.Context) {
	iface := m.env.iface(schema.ResourceNetwork)
	m.env.start(ctx, core.StartRequest{
		Mode:     m.ID(),
		Name:     "tshark " + iface,
		Command:  "sudo",
		Args:     []string{"tshark", "-i", iface},
		Resource: schema.ResourceNetwork,
		Timeout:  toolTimeout,
		Category: "captures",
		Ext:      "txt",
	})
}

func (m *ToolsMode) bettercap(ctx context.Context) {
	iface := m.env.iface(schema.ResourceNetwork)
	m.env.start(ctx, core.StartRequest{
		Mode:     m.ID(),
		Name:     "bettercap",
		Command:  "sudo",
		Args:     []string{"bettercap", "-iface", iface, "-eval", "net.probe on; net.sniff on"},
		Resource: schema.ResourceNetwork,
		Timeout:  toolTimeout,
		Category: "captures",
		Ext:      "txt",
	})
}

// sshd toggles the host sshd. No resource lock: it does not contend with
// captures on the interface.
func (m *ToolsMode) sshd(ctx context.Context, action string) {
	m.env.start(ctx, core.StartRequest{
		Mode:    m.ID(),
		Name:    "sshd " + action,
		Command: "sudo",
		Args:    []string{"systemctl", action, "ssh"},
		Timeout: 30 * time.Second,
	})
}

func (m *ToolsMode) stopAll(ctx context.Context) {
	m.env.Payloads.KillTools(ctx)
	m.env.Store.AddAlert("Stopping all tools", schema.AlertInfo)
}
