package modes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/profiles"
	"pkt.systems/opsdeck/schema"
)

// profilePollInterval is how often the step runner checks job status.
const profilePollInterval = 500 * time.Millisecond

// ProfilesMode runs operator-defined action sets: TOML files describing a
// sequence of payload steps. Steps run one at a time; a step that ends in
// anything but completed aborts the rest of the profile.
type ProfilesMode struct {
	env  Env
	menu *menu

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewProfilesMode constructs the profile runner screen.
func NewProfilesMode(env Env) *ProfilesMode {
	return &ProfilesMode{env: env, menu: newMenu("PROFILES", env.Store)}
}

func (m *ProfilesMode) ID() schema.ModeID      { return "profiles" }
func (m *ProfilesMode) Title() string          { return "PROFILES" }
func (m *ProfilesMode) AllowsBackground() bool { return true }

func (m *ProfilesMode) Enter(ctx context.Context) {
	m.refresh(ctx)
}

func (m *ProfilesMode) Exit(context.Context) {}

func (m *ProfilesMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	if event == schema.InputCancel {
		m.abort()
		return
	}
	m.menu.handle(ctx, event)
}

func (m *ProfilesMode) Tick(context.Context) {}

func (m *ProfilesMode) refresh(ctx context.Context) {
	loaded, err := profiles.LoadDir(m.env.ProfileDir)
	if err != nil {
		m.env.Store.AddAlert("profiles: "+err.Error(), schema.AlertError)
	}
	items := make([]menuItem, 0, len(loaded)+1)
	items = append(items, menuItem{label: "Reload Profiles", run: m.refresh})
	for _, profile := range loaded {
		p := profile
		items = append(items, menuItem{
			label: fmt.Sprintf("%s (%d steps)", p.Name, len(p.Steps)),
			run:   func(ctx context.Context) { m.launch(ctx, p) },
		})
	}
	m.menu.reset(items)
}

// launch starts the step runner goroutine for one profile. Only one
// profile runs at a time; the payload resource locks still apply per step.
func (m *ProfilesMode) launch(_ context.Context, profile profiles.Profile) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.env.Store.AddAlert("Profile already running - cancel first", schema.AlertWarn)
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.env.Store.AddAlert(fmt.Sprintf("Profile %s: %d steps", profile.Name, len(profile.Steps)), schema.AlertInfo)
	go m.runSteps(profile, stop)
}

// abort stops the step runner and cancels the step in flight.
func (m *ProfilesMode) abort() {
	m.mu.Lock()
	if !m.running || m.stop == nil {
		m.mu.Unlock()
		return
	}
	// A second CANCEL can land here before the runner winds down; nil
	// marks the channel as already closed.
	close(m.stop)
	m.stop = nil
	m.mu.Unlock()
	m.env.Payloads.CancelActive()
}

func (m *ProfilesMode) runSteps(profile profiles.Profile, stop <-chan struct{}) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.stop = nil
		m.mu.Unlock()
	}()

	for i, step := range profile.Steps {
		select {
		case <-stop:
			m.env.Store.AddAlert(fmt.Sprintf("Profile %s aborted", profile.Name), schema.AlertWarn)
			return
		default:
		}

		id, err := m.env.Payloads.Start(context.Background(), core.StartRequest{
			Mode:     m.ID(),
			Name:     step.Name,
			Command:  step.Command,
			Args:     step.Args,
			Resource: step.Resource,
			Timeout:  step.TimeoutDuration(),
			Category: step.Category,
			Ext:      step.Ext,
		})
		if err != nil {
			m.env.Store.AddAlert(fmt.Sprintf("Profile %s step %d: %v", profile.Name, i+1, err), schema.AlertError)
			return
		}

		phase := m.waitTerminal(id, stop)
		if phase != schema.JobCompleted {
			m.env.Store.AddAlert(
				fmt.Sprintf("Profile %s stopped at step %d (%s)", profile.Name, i+1, phase), schema.AlertWarn)
			return
		}
	}
	m.env.Store.AddAlert(fmt.Sprintf("Profile %s complete", profile.Name), schema.AlertOK)
}

func (m *ProfilesMode) waitTerminal(id schema.JobID, stop <-chan struct{}) schema.JobPhase {
	ticker := time.NewTicker(profilePollInterval)
	defer ticker.Stop()
	for {
		phase, _, err := m.env.Payloads.Status(id)
		if err != nil {
			return schema.JobFailed
		}
		if phase.Terminal() {
			return phase
		}
		select {
		case <-stop:
			// The in-flight step was cancelled by abort; wait for its
			// terminal phase so the resource is released before returning.
			<-ticker.C
		case <-ticker.C:
		}
	}
}
