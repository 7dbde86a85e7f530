package schema

import "time"

// JobSnapshot is a read-only view of one payload job for rendering.
type JobSnapshot struct {
	ID         JobID
	Mode       ModeID
	Name       string
	Command    string
	Resource   ResourceClass
	Phase      JobPhase
	Started    time.Time
	Elapsed    time.Duration
	ExitCode   int
	OutputPath string
}

// ProcessInfo describes one running process for the process list view.
type ProcessInfo struct {
	PID    int32
	Name   string
	CPU    float64
	Memory float32
}

// SystemMetrics is the cached system status refreshed on the tick path.
type SystemMetrics struct {
	Hostname    string
	IP          string
	CPUPercent  float64
	MemPercent  float64
	DiskPercent float64
	Load1       float64
	TempC       float64
	Uptime      time.Duration
	Processes   []ProcessInfo
	Collected   time.Time
}

// MenuSnapshot is the active mode's menu as published for rendering.
type MenuSnapshot struct {
	Title    string
	Items    []string
	Selected int
}

// StateSnapshot is a consistent point-in-time copy of shared state. It is
// never mutated after being handed out; renderers may hold it across frames.
type StateSnapshot struct {
	ActiveMode     ModeID
	ModeTitle      string
	Backlight      bool
	LastInput      time.Time
	ConfirmPending string
	Menu           MenuSnapshot
	Alerts         []Alert
	Jobs           []JobSnapshot
	Metrics        SystemMetrics
}

// RunningJob returns the most recent non-terminal job, if any.
func (s StateSnapshot) RunningJob() (JobSnapshot, bool) {
	for i := len(s.Jobs) - 1; i >= 0; i-- {
		if !s.Jobs[i].Phase.Terminal() {
			return s.Jobs[i], true
		}
	}
	return JobSnapshot{}, false
}
