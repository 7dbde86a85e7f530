package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/term"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/eventbus"
	"pkt.systems/opsdeck/internal/render"
	"pkt.systems/opsdeck/internal/terminput"
	"pkt.systems/pslog"
)

// runConsole drives the local terminal display. It is the development
// stand-in for the physical LCD and keypad: same frames, same key routing
// as the SSH mirror.
func runConsole(ctx context.Context, controller *core.ModeController, store *core.StateStore, bus *eventbus.Bus, logger pslog.Logger) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	width := render.DefaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	screen := render.NewScreen(os.Stdout)
	screen.EnterAltScreen()
	defer screen.ExitAltScreen()

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	keys := make(chan terminput.Key, 8)
	go terminput.ReadKeys(os.Stdin, keys)

	redraw := func() {
		if err := screen.Render(render.Frame(store.Snapshot(), width)); err != nil {
			logger.Debug("console render failed", "err", err)
		}
	}
	redraw()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-keys:
			if !ok || key.Quit {
				return nil
			}
			if err := controller.DispatchInput(ctx, key.Event); err != nil {
				logger.Debug("console input rejected", "event", key.Event, "err", err)
			}
			redraw()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type == eventbus.EventSnapshot {
				if err := screen.Render(render.Frame(event.Snapshot, width)); err != nil {
					return err
				}
			}
		case <-ticker.C:
			redraw()
		}
	}
}
