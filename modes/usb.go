package modes

import (
	"context"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// USBMode manages the USB gadget port: HID keyboard, mass storage and
// ethernet gadget personalities. Gadget reconfiguration holds the usb
// resource class.
type USBMode struct {
	env  Env
	menu *menu
}

// NewUSBMode constructs the gadget screen.
func NewUSBMode(env Env) *USBMode {
	return &USBMode{env: env, menu: newMenu("USB ATTACK", env.Store)}
}

func (m *USBMode) ID() schema.ModeID      { return "usb" }
func (m *USBMode) Title() string          { return "USB ATTACK" }
func (m *USBMode) AllowsBackground() bool { return false }

func (m *USBMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "Setup HID Gadget", run: m.setupHID},
		{label: "Mass Storage", run: m.massStorage},
		{label: "Ethernet Gadget", run: m.ethernet},
		{label: "Disable Gadget", run: m.disable},
	})
}

func (m *USBMode) Exit(context.Context) {}

func (m *USBMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *USBMode) Tick(context.Context) {}

func (m *USBMode) setupHID(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Setup HID Gadget",
		Command:  "sudo",
		Args:     []string{"opsdeck-hid-setup"},
		Resource: schema.ResourceUSB,
		Timeout:  30 * time.Second,
		Category: "captures", Ext: "log",
	})
}

func (m *USBMode) massStorage(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Mass Storage",
		Command: "sh",
		Args: []string{"-c",
			"sudo modprobe g_mass_storage file=/tmp/usb_disk.img stall=0 removable=1 || " +
				"(dd if=/dev/zero of=/tmp/usb_disk.img bs=1M count=64 && mkfs.vfat /tmp/usb_disk.img && " +
				"sudo modprobe g_mass_storage file=/tmp/usb_disk.img stall=0 removable=1)"},
		Resource: schema.ResourceUSB,
		Timeout:  60 * time.Second,
		Category: "captures", Ext: "log",
	})
}

func (m *USBMode) ethernet(ctx context.Context) {
	iface := shellQuote(m.env.iface(schema.ResourceUSB))
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Ethernet Gadget",
		Command: "sh",
		Args: []string{"-c",
			"sudo modprobe g_ether && sudo ip link set " + iface + " up && " +
				"sudo ip addr add 192.168.7.2/24 dev " + iface},
		Resource: schema.ResourceUSB,
		Timeout:  30 * time.Second,
		Category: "captures", Ext: "log",
	})
}

func (m *USBMode) disable(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Disable Gadget",
		Command: "sh",
		Args: []string{"-c",
			"sudo modprobe -r g_hid g_mass_storage g_ether g_serial; " +
				"sudo rm -rf /sys/kernel/config/usb_gadget/opsdeck || true"},
		Resource: schema.ResourceUSB,
		Timeout:  10 * time.Second,
	})
}
