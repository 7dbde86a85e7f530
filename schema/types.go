package schema

import "time"

// ModeID identifies an operational mode.
type ModeID string

// JobID identifies a payload job.
type JobID string

// ResourceClass names an exclusive hardware or software resource that at
// most one non-terminal job may hold.
type ResourceClass string

const (
	// ResourceNetwork is the primary uplink interface.
	ResourceNetwork ResourceClass = "network"
	// ResourceWiFi is the monitor-mode wireless adapter.
	ResourceWiFi ResourceClass = "wifi"
	// ResourceUSB is the USB gadget interface.
	ResourceUSB ResourceClass = "usb"
)

// AlertLevel grades alert severity.
type AlertLevel string

const (
	// AlertInfo is an informational alert.
	AlertInfo AlertLevel = "info"
	// AlertOK reports a successful operation.
	AlertOK AlertLevel = "ok"
	// AlertWarn reports a recoverable problem.
	AlertWarn AlertLevel = "warn"
	// AlertError reports a failure.
	AlertError AlertLevel = "error"
)

// Alert is a single journal entry. Immutable once appended.
type Alert struct {
	Time    time.Time  `json:"time"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

// InputEvent is a discrete operator input from the keypad or a remote mirror.
type InputEvent string

const (
	// InputPrev navigates to the previous mode.
	InputPrev InputEvent = "prev"
	// InputNext navigates to the next mode.
	InputNext InputEvent = "next"
	// InputUp moves the menu cursor up.
	InputUp InputEvent = "up"
	// InputDown moves the menu cursor down.
	InputDown InputEvent = "down"
	// InputSelect executes the selected menu entry.
	InputSelect InputEvent = "select"
	// InputCancel cancels the running payload or the pending confirmation.
	InputCancel InputEvent = "cancel"
	// InputToggleBacklight toggles the display backlight.
	InputToggleBacklight InputEvent = "backlight"
)

// JobPhase describes where a payload job is in its lifecycle.
type JobPhase string

const (
	// JobPending indicates the job is registered but not yet spawned.
	JobPending JobPhase = "pending"
	// JobRunning indicates the external process is alive.
	JobRunning JobPhase = "running"
	// JobCompleted indicates the process exited with code zero.
	JobCompleted JobPhase = "completed"
	// JobFailed indicates the process exited nonzero or died.
	JobFailed JobPhase = "failed"
	// JobTimedOut indicates the job exceeded its deadline and was killed.
	JobTimedOut JobPhase = "timed_out"
	// JobCancelled indicates the operator cancelled the job.
	JobCancelled JobPhase = "cancelled"
)

// Terminal reports whether the phase is final. No transitions leave a
// terminal phase.
func (p JobPhase) Terminal() bool {
	switch p {
	case JobCompleted, JobFailed, JobTimedOut, JobCancelled:
		return true
	}
	return false
}
