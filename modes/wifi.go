package modes

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// WiFiMode drives the monitor-mode adapter: scanning, deauth and
// handshake capture. Attacks hold the wifi resource class so only one
// radio operation runs at a time.
type WiFiMode struct {
	env  Env
	menu *menu
}

// NewWiFiMode constructs the wireless attack screen.
func NewWiFiMode(env Env) *WiFiMode {
	return &WiFiMode{env: env, menu: newMenu("WIFI ATTACK", env.Store)}
}

func (m *WiFiMode) ID() schema.ModeID      { return "wifi" }
func (m *WiFiMode) Title() string          { return "WIFI ATTACK" }
func (m *WiFiMode) AllowsBackground() bool { return false }

func (m *WiFiMode) iface() string { return m.env.iface(schema.ResourceWiFi) }

// monitorIface is the interface name airmon-ng creates.
func (m *WiFiMode) monitorIface() string { return m.iface() + "mon" }

func (m *WiFiMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "Monitor Mode ON", run: m.enableMonitor},
		{label: "Monitor Mode OFF", run: m.disableMonitor},
		{label: "WiFi Scan", run: m.scan},
		{label: "Deauth Attack", run: m.deauth},
		{label: "Capture Handshake", run: m.handshake},
		{label: "MAC Randomise", run: m.randomiseMAC},
	})
}

func (m *WiFiMode) Exit(context.Context) {}

func (m *WiFiMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *WiFiMode) Tick(context.Context) {}

func (m *WiFiMode) enableMonitor(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Enable Monitor",
		Command: "sh",
		Args: []string{"-c", fmt.Sprintf(
			"sudo airmon-ng check kill && sudo airmon-ng start %s", shellQuote(m.iface()))},
		Resource: schema.ResourceWiFi,
		Timeout:  30 * time.Second,
		Category: "wifi", Ext: "log",
	})
}

func (m *WiFiMode) disableMonitor(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Disable Monitor",
		Command: "sh",
		Args: []string{"-c", fmt.Sprintf(
			"sudo airmon-ng stop %s && sudo systemctl restart NetworkManager", shellQuote(m.monitorIface()))},
		Resource: schema.ResourceWiFi,
		Timeout:  30 * time.Second,
		Category: "wifi", Ext: "log",
	})
}

func (m *WiFiMode) scan(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "WiFi Scan",
		Command:  "sudo",
		Args:     []string{"airodump-ng", m.monitorIface()},
		Resource: schema.ResourceWiFi,
		Timeout:  25 * time.Second,
		Category: "wifi", Ext: "csv",
	})
}

func (m *WiFiMode) deauth(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Deauth Attack",
		Command:  "sudo",
		Args:     []string{"aireplay-ng", "--deauth", "10", "-a", "FF:FF:FF:FF:FF:FF", m.monitorIface()},
		Resource: schema.ResourceWiFi,
		Timeout:  65 * time.Second,
		Category: "deauth", Ext: "log",
	})
}

func (m *WiFiMode) handshake(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Capture Handshake",
		Command:  "sudo",
		Args:     []string{"airodump-ng", m.monitorIface(), "--output-format", "pcap"},
		Resource: schema.ResourceWiFi,
		Timeout:  65 * time.Second,
		Category: "wifi", Ext: "cap",
	})
}

func (m *WiFiMode) randomiseMAC(ctx context.Context) {
	iface := shellQuote(m.iface())
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "MAC Randomise",
		Command: "sh",
		Args: []string{"-c", fmt.Sprintf(
			"sudo ip link set %s down && sudo macchanger -r %s && sudo ip link set %s up",
			iface, iface, iface)},
		Resource: schema.ResourceWiFi,
		Timeout:  10 * time.Second,
		Category: "wifi", Ext: "log",
	})
}
