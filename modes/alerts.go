package modes

import (
	"context"

	"pkt.systems/opsdeck/internal/alertsink"
	"pkt.systems/opsdeck/schema"
)

// alertHistoryLimit caps how much of the journal the scroll view loads.
const alertHistoryLimit = 200

// AlertsMode scrolls through alert history. It shows the in-memory ring
// first and falls back to the on-disk journal for anything older.
type AlertsMode struct {
	env         Env
	menu        *menu
	journalPath string
}

// NewAlertsMode constructs the alert history screen. journalPath may be
// empty when journaling is disabled.
func NewAlertsMode(env Env, journalPath string) *AlertsMode {
	return &AlertsMode{env: env, menu: newMenu("ALERTS", env.Store), journalPath: journalPath}
}

func (m *AlertsMode) ID() schema.ModeID      { return "alerts" }
func (m *AlertsMode) Title() string          { return "ALERTS" }
func (m *AlertsMode) AllowsBackground() bool { return false }

func (m *AlertsMode) Enter(ctx context.Context) {
	m.refresh(ctx)
}

func (m *AlertsMode) Exit(context.Context) {}

func (m *AlertsMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	if event == schema.InputSelect {
		m.refresh(ctx)
		return
	}
	m.menu.handle(ctx, event)
}

func (m *AlertsMode) Tick(context.Context) {}

func (m *AlertsMode) refresh(context.Context) {
	alerts := m.env.Store.Snapshot().Alerts
	if m.journalPath != "" {
		if journal, err := alertsink.Load(m.journalPath, alertHistoryLimit); err == nil && len(journal) > len(alerts) {
			alerts = journal
		}
	}

	items := make([]menuItem, 0, len(alerts))
	// Newest first.
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		items = append(items, menuItem{
			label: a.Time.Format("15:04:05") + " [" + string(a.Level) + "] " + a.Message,
		})
	}
	if len(items) == 0 {
		items = append(items, menuItem{label: "(no alerts)"})
	}
	m.menu.reset(items)
}
