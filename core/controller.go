package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/opsdeck/internal/logx"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// ModeController is the finite-state machine over the registered modes. It
// serializes navigation against payload activity: leaving a mode that owns
// a running payload is rejected unless the mode allows background
// continuation. Mode lifecycle hooks run outside the controller lock; they
// may call back into the payload manager and state store.
type ModeController struct {
	registry *Registry
	store    *StateStore
	payloads *PayloadManager
	cfg      schema.ServiceConfig
	logger   pslog.Logger

	mu     sync.Mutex
	active int
	closed bool

	// hookMu serializes mode lifecycle hooks across the input and tick
	// goroutines; modes themselves stay lock-free.
	hookMu sync.Mutex
}

// NewModeController constructs the controller. Start must be called to
// activate the first mode.
func NewModeController(cfg schema.ServiceConfig, registry *Registry, store *StateStore, payloads *PayloadManager, logger pslog.Logger) *ModeController {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &ModeController{
		registry: registry,
		store:    store,
		payloads: payloads,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start enters the first mode in registration order.
func (c *ModeController) Start(ctx context.Context) {
	mode := c.registry.At(0)
	c.store.SetActiveMode(mode.ID(), mode.Title())
	c.hookMu.Lock()
	mode.Enter(ctx)
	c.hookMu.Unlock()
	c.logger.Info("controller started", "modes", c.registry.Len(), "active", mode.ID())
}

// Active returns the currently active mode.
func (c *ModeController) Active() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.At(c.active)
}

// DispatchInput routes one operator event. It never blocks on process I/O;
// all payload work happens on watcher goroutines.
func (c *ModeController) DispatchInput(ctx context.Context, event schema.InputEvent) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.ErrShuttingDown
	}
	c.mu.Unlock()

	// First input while the backlight is off only wakes the display.
	if !c.store.Backlight() {
		c.store.TouchInput()
		c.store.SetBacklight(true)
		return nil
	}
	c.store.TouchInput()

	log := logx.WithMode(ctx, c.Active().ID())
	switch event {
	case schema.InputToggleBacklight:
		c.store.SetBacklight(!c.store.Backlight())
		return nil
	case schema.InputPrev:
		return c.navigate(ctx, -1)
	case schema.InputNext:
		return c.navigate(ctx, +1)
	case schema.InputCancel:
		if c.payloads.CancelActive() {
			log.Debug("cancel dispatched to running payload")
			return nil
		}
		c.store.CancelConfirm()
		c.hookMu.Lock()
		c.Active().HandleInput(ctx, event)
		c.hookMu.Unlock()
		return nil
	case schema.InputUp, schema.InputDown, schema.InputSelect:
		c.hookMu.Lock()
		c.Active().HandleInput(ctx, event)
		c.hookMu.Unlock()
		return nil
	default:
		log.Debug("ignoring unknown input event", "event", event)
		return nil
	}
}

// navigate moves the active mode pointer by delta after the transition
// guard passes. Lifecycle hooks run outside the lock.
func (c *ModeController) navigate(ctx context.Context, delta int) error {
	c.mu.Lock()
	old := c.registry.At(c.active)
	if id, owns := c.payloads.ActiveJobFor(old.ID()); owns && !old.AllowsBackground() {
		c.mu.Unlock()
		c.store.AddAlert("Payload running - cancel first", schema.AlertWarn)
		logx.WithMode(ctx, old.ID()).Debug("navigation blocked by running payload", "job", id)
		return schema.ErrModeBusy
	}
	c.active += delta
	next := c.registry.At(c.active)
	c.mu.Unlock()

	c.hookMu.Lock()
	old.Exit(ctx)
	c.store.SetActiveMode(next.ID(), next.Title())
	next.Enter(ctx)
	c.hookMu.Unlock()
	logx.WithMode(ctx, next.ID()).Debug("mode changed", "from", old.ID())
	return nil
}

// Activate switches directly to a mode by id, subject to the same guard.
func (c *ModeController) Activate(ctx context.Context, id schema.ModeID) error {
	_, target, err := c.registry.Lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if target == ((c.active%c.registry.Len())+c.registry.Len())%c.registry.Len() {
		c.mu.Unlock()
		return nil
	}
	old := c.registry.At(c.active)
	if _, owns := c.payloads.ActiveJobFor(old.ID()); owns && !old.AllowsBackground() {
		c.mu.Unlock()
		c.store.AddAlert("Payload running - cancel first", schema.AlertWarn)
		return schema.ErrModeBusy
	}
	c.active = target
	next := c.registry.At(c.active)
	c.mu.Unlock()

	c.hookMu.Lock()
	old.Exit(ctx)
	c.store.SetActiveMode(next.ID(), next.Title())
	next.Enter(ctx)
	c.hookMu.Unlock()
	return nil
}

// Tick drives periodic work: the active mode's poll hook and the backlight
// idle timeout. Invoked on a fixed schedule independent of input.
func (c *ModeController) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	mode := c.registry.At(c.active)
	c.mu.Unlock()

	if c.store.Backlight() && time.Since(c.store.LastInput()) > c.cfg.BacklightTimeout {
		c.store.SetBacklight(false)
	}
	c.hookMu.Lock()
	mode.Tick(ctx)
	c.hookMu.Unlock()
}

// Close exits the active mode and cancels all jobs. Safe to call once at
// shutdown; subsequent dispatches fail with ErrShuttingDown.
func (c *ModeController) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	mode := c.registry.At(c.active)
	c.mu.Unlock()

	c.hookMu.Lock()
	mode.Exit(ctx)
	c.hookMu.Unlock()
	c.payloads.CancelAll(ctx)
	c.logger.Info("controller closed")
}
