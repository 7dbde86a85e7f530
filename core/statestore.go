package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// AlertSink receives alerts for durable storage. Implementations must not
// block; delivery is best-effort and happens off the mutation path.
type AlertSink interface {
	Persist(alert schema.Alert)
}

// EventSink observes state changes for render transports.
type EventSink interface {
	OnAlert(alert schema.Alert)
	OnSnapshot(snapshot schema.StateSnapshot)
}

// StateDeps captures optional dependencies for the state store.
type StateDeps struct {
	EventSink EventSink
	AlertSink AlertSink
	Logger    pslog.Logger
}

// StateStore is the single source of truth for cross-goroutine-visible
// status. Mutations are serialized under one mutex which is held only for
// in-memory updates, never I/O.
type StateStore struct {
	sink      EventSink
	alertSink AlertSink
	logger    pslog.Logger
	now       func() time.Time

	mu             sync.Mutex
	activeMode     schema.ModeID
	modeTitle      string
	backlight      bool
	lastInput      time.Time
	confirmAction  string
	confirmExpires time.Time
	menu           schema.MenuSnapshot
	metrics        schema.SystemMetrics
	jobs           map[schema.JobID]schema.JobSnapshot
	jobOrder       []schema.JobID
	alerts         *alertLog
}

// NewStateStore constructs a state store with a bounded alert journal.
func NewStateStore(alertCapacity int, deps StateDeps) *StateStore {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &StateStore{
		sink:      deps.EventSink,
		alertSink: deps.AlertSink,
		logger:    logger,
		now:       time.Now,
		backlight: true,
		lastInput: time.Now(),
		jobs:      make(map[schema.JobID]schema.JobSnapshot),
		alerts:    newAlertLog(alertCapacity),
	}
}

// Snapshot returns a consistent point-in-time copy of the state. Always
// succeeds; the result is never mutated afterwards.
func (s *StateStore) Snapshot() schema.StateSnapshot {
	s.mu.Lock()
	now := s.now()
	snapshot := schema.StateSnapshot{
		ActiveMode: s.activeMode,
		ModeTitle:  s.modeTitle,
		Backlight:  s.backlight,
		LastInput:  s.lastInput,
		Metrics:    s.metrics,
		Menu:       s.menuCopyLocked(),
		Jobs:       make([]schema.JobSnapshot, 0, len(s.jobOrder)),
	}
	if s.confirmAction != "" && now.Before(s.confirmExpires) {
		snapshot.ConfirmPending = s.confirmAction
	}
	for _, id := range s.jobOrder {
		job := s.jobs[id]
		if !job.Phase.Terminal() && !job.Started.IsZero() {
			job.Elapsed = now.Sub(job.Started)
		}
		snapshot.Jobs = append(snapshot.Jobs, job)
	}
	s.mu.Unlock()
	snapshot.Alerts = s.alerts.All()
	return snapshot
}

func (s *StateStore) menuCopyLocked() schema.MenuSnapshot {
	menu := s.menu
	menu.Items = append([]string(nil), s.menu.Items...)
	return menu
}

// SetActiveMode records the active mode for rendering.
func (s *StateStore) SetActiveMode(id schema.ModeID, title string) {
	s.mu.Lock()
	s.activeMode = id
	s.modeTitle = title
	s.menu = schema.MenuSnapshot{}
	s.mu.Unlock()
	s.emitSnapshot()
}

// SetBacklight records the backlight state.
func (s *StateStore) SetBacklight(on bool) {
	s.mu.Lock()
	s.backlight = on
	s.mu.Unlock()
	s.emitSnapshot()
}

// Backlight reports the current backlight state.
func (s *StateStore) Backlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backlight
}

// TouchInput records operator activity for the backlight timeout.
func (s *StateStore) TouchInput() {
	s.mu.Lock()
	s.lastInput = s.now()
	s.mu.Unlock()
}

// LastInput returns the most recent operator activity timestamp.
func (s *StateStore) LastInput() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInput
}

// SetMenu publishes the active mode's menu for rendering.
func (s *StateStore) SetMenu(menu schema.MenuSnapshot) {
	s.mu.Lock()
	menu.Items = append([]string(nil), menu.Items...)
	s.menu = menu
	s.mu.Unlock()
	s.emitSnapshot()
}

// SetMetrics publishes refreshed system metrics.
func (s *StateStore) SetMetrics(metrics schema.SystemMetrics) {
	s.mu.Lock()
	s.metrics = metrics
	s.mu.Unlock()
	s.emitSnapshot()
}

// AddAlert appends to the alert journal. Durable persistence is handed to
// the alert sink and cannot block or fail this path.
func (s *StateStore) AddAlert(message string, level schema.AlertLevel) {
	alert := schema.Alert{Time: s.now(), Level: level, Message: message}
	s.alerts.Append(alert)
	switch level {
	case schema.AlertError:
		s.logger.Error("alert", "msg", message)
	case schema.AlertWarn:
		s.logger.Warn("alert", "msg", message)
	default:
		s.logger.Info("alert", "msg", message)
	}
	if s.alertSink != nil {
		s.alertSink.Persist(alert)
	}
	if s.sink != nil {
		s.sink.OnAlert(alert)
	}
	s.emitSnapshot()
}

// RecordJob publishes a job-state change into the snapshot.
func (s *StateStore) RecordJob(job schema.JobSnapshot) {
	s.mu.Lock()
	if _, seen := s.jobs[job.ID]; !seen {
		s.jobOrder = append(s.jobOrder, job.ID)
	}
	s.jobs[job.ID] = job
	s.mu.Unlock()
	s.emitSnapshot()
}

// RequestConfirm implements confirm-to-arm for destructive actions. The
// first call arms the action and returns false; a second call for the same
// action inside the window confirms and returns true.
func (s *StateStore) RequestConfirm(action string, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.confirmAction == action && now.Before(s.confirmExpires) {
		s.confirmAction = ""
		return true
	}
	s.confirmAction = action
	s.confirmExpires = now.Add(window)
	return false
}

// CancelConfirm clears any pending confirmation.
func (s *StateStore) CancelConfirm() {
	s.mu.Lock()
	s.confirmAction = ""
	s.mu.Unlock()
}

func (s *StateStore) emitSnapshot() {
	if s.sink == nil {
		return
	}
	s.sink.OnSnapshot(s.Snapshot())
}
