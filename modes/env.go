// Package modes implements the operational screens behind the keypad
// navigation cycle. Each mode owns its menu and translates selections
// into payload starts; none of them touch process state directly.
package modes

import (
	"context"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// Env bundles the shared services every mode needs.
type Env struct {
	Cfg        schema.ServiceConfig
	Store      *core.StateStore
	Payloads   *core.PayloadManager
	ProfileDir string
	Logger     pslog.Logger
}

func (e Env) logger() pslog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return pslog.Ctx(context.Background())
}

// start launches a payload and surfaces synchronous failures as alerts so
// the operator sees them on the display without a log console.
func (e Env) start(ctx context.Context, req core.StartRequest) {
	if _, err := e.Payloads.Start(ctx, req); err != nil {
		e.Store.AddAlert(req.Name+": "+err.Error(), schema.AlertError)
	}
}

// iface resolves a resource class to its configured interface name.
func (e Env) iface(class schema.ResourceClass) string {
	return e.Cfg.Resources[class]
}
