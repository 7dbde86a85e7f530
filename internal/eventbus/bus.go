package eventbus

import (
	"context"
	"sync"

	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventAlert carries one alert journal entry.
	EventAlert EventType = "alert"
	// EventSnapshot carries a full state snapshot for rendering.
	EventSnapshot EventType = "snapshot"
)

// Event represents a render-facing event emitted by the state store.
type Event struct {
	Type     EventType
	Alert    schema.Alert
	Snapshot schema.StateSnapshot
}

// Bus fanouts state events to display transports (local terminal, SSH
// sessions). Slow subscribers drop events instead of stalling publishers;
// a dropped snapshot is recovered by the next one.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 64,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		_, ok := b.subs[ch]
		if ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
		if ok && b.log != nil {
			b.log.Debug("eventbus unsubscribe")
		}
	}
}

// OnAlert publishes an alert event.
func (b *Bus) OnAlert(alert schema.Alert) {
	b.publish(Event{Type: EventAlert, Alert: alert})
}

// OnSnapshot publishes a state snapshot.
func (b *Bus) OnSnapshot(snapshot schema.StateSnapshot) {
	b.publish(Event{Type: EventSnapshot, Snapshot: snapshot})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	// Sends are non-blocking, so the mutex is held across the fanout;
	// unsubscribe can then never close a channel mid-send.
	b.mu.Lock()
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
