package modes

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// scanPreset defines one nmap invocation template. The target network is
// filled in on entry from the detected CIDR.
type scanPreset struct {
	label   string
	args    []string
	timeout time.Duration
}

var nmapPresets = []scanPreset{
	{"Quick Scan", []string{"-T4", "-F"}, 3 * time.Minute},
	{"Full Port Scan", []string{"-p-"}, 10 * time.Minute},
	{"Service Scan", []string{"-sV", "-sC"}, 5 * time.Minute},
	{"Vuln Scan", []string{"--script", "vuln"}, 10 * time.Minute},
	{"OS Detection", []string{"-O"}, 5 * time.Minute},
	{"Stealth SYN", []string{"-sS", "-T2"}, 10 * time.Minute},
	{"UDP Scan", []string{"-sU", "--top-ports", "100"}, 10 * time.Minute},
}

// NmapMode offers recon scan presets against the auto-detected network.
type NmapMode struct {
	env    Env
	menu   *menu
	target string
}

// NewNmapMode constructs the recon screen.
func NewNmapMode(env Env) *NmapMode {
	return &NmapMode{env: env, menu: newMenu("NMAP RECON", env.Store)}
}

func (m *NmapMode) ID() schema.ModeID      { return "nmap" }
func (m *NmapMode) Title() string          { return "NMAP RECON" }
func (m *NmapMode) AllowsBackground() bool { return false }

func (m *NmapMode) Enter(ctx context.Context) {
	m.target = networkCIDR()
	items := make([]menuItem, 0, len(nmapPresets)+1)
	for _, preset := range nmapPresets {
		preset := preset
		items = append(items, menuItem{label: preset.label, run: func(ctx context.Context) {
			m.scan(ctx, preset)
		}})
	}
	items = append(items, menuItem{label: "Refresh Target", run: func(context.Context) {
		m.target = networkCIDR()
		m.menu.title = fmt.Sprintf("NMAP RECON %s", m.target)
		m.menu.publish()
		m.env.Store.AddAlert("Target: "+m.target, schema.AlertInfo)
	}})
	m.menu.title = fmt.Sprintf("NMAP RECON %s", m.target)
	m.menu.reset(items)
}

func (m *NmapMode) Exit(context.Context) {}

func (m *NmapMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *NmapMode) Tick(context.Context) {}

func (m *NmapMode) scan(ctx context.Context, preset scanPreset) {
	args := append(append([]string{}, preset.args...), m.target)
	m.env.start(ctx, core.StartRequest{
		Mode:     m.ID(),
		Name:     preset.label,
		Command:  "nmap",
		Args:     args,
		Resource: schema.ResourceNetwork,
		Timeout:  preset.timeout,
		Category: "scans",
		Ext:      "txt",
	})
}
