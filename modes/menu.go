package modes

import (
	"context"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// menuItem is one selectable entry.
type menuItem struct {
	label string
	run   func(ctx context.Context)
}

// menu is the shared cursor-and-select helper for menu-driven modes. The
// cursor wraps at both ends, matching the original keypad behavior.
type menu struct {
	title    string
	items    []menuItem
	selected int
	store    *core.StateStore
}

func newMenu(title string, store *core.StateStore) *menu {
	return &menu{title: title, store: store}
}

// reset replaces the items and clamps the cursor.
func (m *menu) reset(items []menuItem) {
	m.items = items
	if m.selected >= len(items) {
		m.selected = 0
	}
	m.publish()
}

func (m *menu) publish() {
	labels := make([]string, len(m.items))
	for i, item := range m.items {
		labels[i] = item.label
	}
	m.store.SetMenu(schema.MenuSnapshot{Title: m.title, Items: labels, Selected: m.selected})
}

// handle processes UP, DOWN and SELECT. Other events are ignored; CANCEL
// routing happens above the mode layer.
func (m *menu) handle(ctx context.Context, event schema.InputEvent) {
	if len(m.items) == 0 {
		return
	}
	switch event {
	case schema.InputUp:
		m.selected--
		if m.selected < 0 {
			m.selected = len(m.items) - 1
		}
		m.publish()
	case schema.InputDown:
		m.selected++
		if m.selected >= len(m.items) {
			m.selected = 0
		}
		m.publish()
	case schema.InputSelect:
		if run := m.items[m.selected].run; run != nil {
			run(ctx)
		}
	}
}
