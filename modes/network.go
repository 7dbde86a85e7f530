package modes

import (
	"context"
	"fmt"
	"strings"

	gnet "github.com/shirou/gopsutil/v4/net"
	"pkt.systems/opsdeck/schema"
)

// NetworkMode is a read-only view of interface state: addresses, link
// status and traffic counters, plus gateway and DNS. Refreshed on the
// tick path; SELECT forces a refresh.
type NetworkMode struct {
	env  Env
	menu *menu
}

// NewNetworkMode constructs the network status screen.
func NewNetworkMode(env Env) *NetworkMode {
	return &NetworkMode{env: env, menu: newMenu("NETWORK", env.Store)}
}

func (m *NetworkMode) ID() schema.ModeID      { return "network" }
func (m *NetworkMode) Title() string          { return "NETWORK" }
func (m *NetworkMode) AllowsBackground() bool { return false }

func (m *NetworkMode) Enter(ctx context.Context) {
	m.refresh(ctx)
}

func (m *NetworkMode) Exit(context.Context) {}

func (m *NetworkMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	if event == schema.InputSelect {
		m.refresh(ctx)
		return
	}
	m.menu.handle(ctx, event)
}

func (m *NetworkMode) Tick(ctx context.Context) {
	m.refresh(ctx)
}

// refresh rebuilds the info lines. They are published through the menu
// snapshot so every render surface shows the same rows.
func (m *NetworkMode) refresh(ctx context.Context) {
	lines := make([]menuItem, 0, 8)

	counters, err := gnet.IOCountersWithContext(ctx, true)
	if err != nil {
		m.env.logger().Debug("net counters failed", "err", err)
	}
	byName := make(map[string]gnet.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}
	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		m.env.logger().Debug("net interfaces failed", "err", err)
	}

	for _, class := range []schema.ResourceClass{schema.ResourceNetwork, schema.ResourceWiFi, schema.ResourceUSB} {
		name := m.env.iface(class)
		line := fmt.Sprintf("%s: down", name)
		for _, iface := range ifaces {
			if iface.Name != name {
				continue
			}
			addr := "no addr"
			for _, a := range iface.Addrs {
				if strings.Contains(a.Addr, ".") {
					addr = a.Addr
					break
				}
			}
			state := "down"
			for _, flag := range iface.Flags {
				if flag == "up" {
					state = "up"
				}
			}
			line = fmt.Sprintf("%s: %s %s", name, state, addr)
			if c, ok := byName[name]; ok {
				line += fmt.Sprintf(" ^%s v%s", formatBytes(c.BytesSent), formatBytes(c.BytesRecv))
			}
		}
		lines = append(lines, menuItem{label: line})
	}

	if dns := dnsServers(); len(dns) > 0 {
		lines = append(lines, menuItem{label: "DNS: " + strings.Join(dns, " ")})
	}
	m.menu.reset(lines)
}
