package core

import (
	"sync"

	"pkt.systems/opsdeck/schema"
)

// alertLog is a bounded, append-only journal of alerts. Appending past the
// capacity evicts the oldest entry.
type alertLog struct {
	mu       sync.Mutex
	entries  []schema.Alert
	capacity int
}

func newAlertLog(capacity int) *alertLog {
	if capacity <= 0 {
		capacity = schema.DefaultAlertCapacity
	}
	return &alertLog{capacity: capacity}
}

func (l *alertLog) Append(alert schema.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, alert)
	if len(l.entries) > l.capacity {
		trim := len(l.entries) - l.capacity
		l.entries = append(l.entries[:0], l.entries[trim:]...)
	}
}

// All returns a copy of the journal, oldest first.
func (l *alertLog) All() []schema.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schema.Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns up to n entries, newest first.
func (l *alertLog) Recent(n int) []schema.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]schema.Alert, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

func (l *alertLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
