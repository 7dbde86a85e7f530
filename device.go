// Package opsdeck composes the field kit runtime: state store, payload
// supervision, mode navigation, metric collection and the SSH display
// mirror, wired together from one configuration.
package opsdeck

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/alertsink"
	"pkt.systems/opsdeck/internal/appconfig"
	"pkt.systems/opsdeck/internal/eventbus"
	"pkt.systems/opsdeck/internal/execrunner"
	"pkt.systems/opsdeck/internal/sysmon"
	"pkt.systems/opsdeck/modes"
	"pkt.systems/opsdeck/remote"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// Deps captures swappable dependencies. A nil Runner selects the os/exec
// runner; tests substitute a fake.
type Deps struct {
	Runner core.Runner
	Logger pslog.Logger
}

// Option toggles device components.
type Option func(*deviceOptions)

type deviceOptions struct {
	enableSSH bool
}

// WithSSH enables the SSH display mirror.
func WithSSH() Option {
	return func(o *deviceOptions) { o.enableSSH = true }
}

// Device is the composed runtime behind every display surface.
type Device struct {
	cfg     appconfig.Config
	service schema.ServiceConfig
	options deviceOptions
	logger  pslog.Logger

	journal    *alertsink.Journal
	bus        *eventbus.Bus
	store      *core.StateStore
	payloads   *core.PayloadManager
	controller *core.ModeController
	monitor    *sysmon.Monitor
	ssh        *remote.Server

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

// New builds a device from the application config. Nothing runs until
// Start is called.
func New(cfg appconfig.Config, deps Deps, opts ...Option) (*Device, error) {
	options := deviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	serviceCfg, err := cfg.ToServiceConfig()
	if err != nil {
		return nil, err
	}
	if err := core.EnsureLootTree(serviceCfg.LootRoot, schema.LootCategories); err != nil {
		return nil, err
	}
	if cfg.StateDir != "" {
		if err := os.MkdirAll(cfg.StateDir, 0o750); err != nil {
			return nil, err
		}
	}

	var journal *alertsink.Journal
	if cfg.Alerts.JournalPath != "" {
		journal, err = alertsink.Open(cfg.Alerts.JournalPath, logger)
		if err != nil {
			return nil, err
		}
	}

	bus := eventbus.New(logger)
	stateDeps := core.StateDeps{EventSink: bus, Logger: logger}
	if journal != nil {
		stateDeps.AlertSink = journal
	}
	store := core.NewStateStore(serviceCfg.AlertCapacity, stateDeps)

	runner := deps.Runner
	if runner == nil {
		runner = execrunner.New(execrunner.Config{})
	}
	payloads := core.NewPayloadManager(serviceCfg, runner, store, logger)

	registry, err := modes.NewRegistry(modes.Env{
		Cfg:        serviceCfg,
		Store:      store,
		Payloads:   payloads,
		ProfileDir: cfg.ProfileDir,
		Logger:     logger,
	}, cfg.Alerts.JournalPath)
	if err != nil {
		return nil, err
	}
	controller := core.NewModeController(serviceCfg, registry, store, payloads, logger)

	monitor := sysmon.New(sysmon.Config{
		Interval:     time.Duration(cfg.Sysmon.IntervalSeconds) * time.Second,
		TopProcesses: cfg.Sysmon.TopProcesses,
		ThermalZone:  cfg.Sysmon.ThermalZone,
	}, store, logger)

	var ssh *remote.Server
	if options.enableSSH {
		ssh = &remote.Server{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
			Controller:         controller,
			Store:              store,
			Bus:                bus,
			Logger:             logger,
		}
	}

	return &Device{
		cfg:        cfg,
		service:    serviceCfg,
		options:    options,
		logger:     logger,
		journal:    journal,
		bus:        bus,
		store:      store,
		payloads:   payloads,
		controller: controller,
		monitor:    monitor,
		ssh:        ssh,
	}, nil
}

// Controller exposes the mode controller for display surfaces.
func (d *Device) Controller() *core.ModeController { return d.controller }

// Store exposes the state store for display surfaces.
func (d *Device) Store() *core.StateStore { return d.store }

// Bus exposes the render event bus for display surfaces.
func (d *Device) Bus() *eventbus.Bus { return d.bus }

// Start activates the first mode and launches the background loops.
func (d *Device) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("device already started")
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.errCh = make(chan error, 1)
	d.started = true
	d.mu.Unlock()

	d.controller.Start(d.ctx)
	go d.monitor.Run(d.ctx)
	go d.tickLoop()

	if d.ssh != nil {
		d.logger.Info("ssh mirror starting", "addr", d.ssh.Addr)
		go func() {
			if err := d.ssh.ListenAndServe(d.ctx); err != nil {
				d.logger.Error("ssh mirror failed", "err", err)
				d.errCh <- err
			}
		}()
	}
	return nil
}

func (d *Device) tickLoop() {
	ticker := time.NewTicker(d.service.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.controller.Tick(d.ctx)
		}
	}
}

// Wait blocks until the device stops or a component fails.
func (d *Device) Wait() error {
	d.mu.Lock()
	ctx := d.ctx
	errCh := d.errCh
	started := d.started
	d.mu.Unlock()
	if !started {
		return errors.New("device not started")
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the device down: the active mode exits, all payloads are
// cancelled and the alert journal is flushed.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.controller.Close(ctx)
	if cancel != nil {
		cancel()
	}
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.logger.Warn("alert journal close failed", "err", err)
		}
	}
	d.logger.Info("device stopped")
	return nil
}
