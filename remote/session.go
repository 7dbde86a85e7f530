package remote

import (
	"context"
	"sync"
	"time"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/eventbus"
	"pkt.systems/opsdeck/internal/render"
	"pkt.systems/opsdeck/internal/terminput"
	"pkt.systems/pslog"
)

// mirrorRedrawInterval bounds staleness between snapshot events: elapsed
// timers on the job line keep moving even when nothing else changes.
const mirrorRedrawInterval = time.Second

// mirrorSession renders display frames to one SSH session and feeds its
// keystrokes into the shared controller.
type mirrorSession struct {
	sess       gliderssh.Session
	controller *core.ModeController
	store      *core.StateStore
	events     <-chan eventbus.Event
	screen     *render.Screen
	log        pslog.Logger

	mu    sync.Mutex
	width int
}

func newMirrorSession(sess gliderssh.Session, controller *core.ModeController, store *core.StateStore, events <-chan eventbus.Event, log pslog.Logger) *mirrorSession {
	return &mirrorSession{
		sess:       sess,
		controller: controller,
		store:      store,
		events:     events,
		screen:     render.NewScreen(sess),
		log:        log,
		width:      render.DefaultWidth,
	}
}

func (m *mirrorSession) setWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width > 0 {
		m.width = width
	}
}

func (m *mirrorSession) frameWidth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width
}

// run drives the session until the client disconnects or quits. Input
// decoding happens on its own goroutine; redraws are serialized here.
func (m *mirrorSession) run(ctx context.Context, winCh <-chan gliderssh.Window) {
	keys := make(chan terminput.Key, 8)
	go terminput.ReadKeys(m.sess, keys)

	m.screen.EnterAltScreen()
	defer m.screen.ExitAltScreen()
	m.redraw()

	ticker := time.NewTicker(mirrorRedrawInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case win, ok := <-winCh:
			if !ok {
				return
			}
			m.setWidth(win.Width)
			m.redraw()
		case key, ok := <-keys:
			if !ok {
				return
			}
			if key.Quit {
				return
			}
			if err := m.controller.DispatchInput(ctx, key.Event); err != nil {
				m.log.Debug("mirror input rejected", "event", key.Event, "err", err)
			}
			m.redraw()
		case event, ok := <-m.events:
			if !ok {
				return
			}
			if event.Type == eventbus.EventSnapshot {
				if err := m.screen.Render(render.Frame(event.Snapshot, m.frameWidth())); err != nil {
					return
				}
			}
		case <-ticker.C:
			m.redraw()
		}
	}
}

func (m *mirrorSession) redraw() {
	if err := m.screen.Render(render.Frame(m.store.Snapshot(), m.frameWidth())); err != nil {
		m.log.Debug("mirror render failed", "err", err)
	}
}
