package modes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/schema"
)

// lootMaxAge is the purge threshold for old captures.
const lootMaxAge = 7 * 24 * time.Hour

// LootMode browses the capture tree. The top level lists categories with
// file counts; SELECT drills into a category, CANCEL steps back out.
type LootMode struct {
	env      Env
	menu     *menu
	category string
}

// NewLootMode constructs the loot browser.
func NewLootMode(env Env) *LootMode {
	return &LootMode{env: env, menu: newMenu("LOOT", env.Store)}
}

func (m *LootMode) ID() schema.ModeID      { return "loot" }
func (m *LootMode) Title() string          { return "LOOT" }
func (m *LootMode) AllowsBackground() bool { return false }

func (m *LootMode) Enter(ctx context.Context) {
	m.category = ""
	m.showCategories(ctx)
}

func (m *LootMode) Exit(context.Context) {}

func (m *LootMode) HandleInput(ctx context.Context, event schema.InputEvent) {
	if event == schema.InputCancel && m.category != "" {
		m.category = ""
		m.showCategories(ctx)
		return
	}
	m.menu.handle(ctx, event)
}

func (m *LootMode) Tick(context.Context) {}

func (m *LootMode) showCategories(ctx context.Context) {
	items := make([]menuItem, 0, len(schema.LootCategories)+1)
	for _, category := range schema.LootCategories {
		cat := category
		names, err := core.ListLoot(m.env.Cfg.LootRoot, cat)
		if err != nil {
			m.env.logger().Debug("list loot failed", "category", cat, "err", err)
		}
		items = append(items, menuItem{
			label: fmt.Sprintf("%s (%d)", cat, len(names)),
			run:   func(ctx context.Context) { m.showFiles(ctx, cat) },
		})
	}
	items = append(items, menuItem{label: "Purge > 7 days", run: m.purge})
	m.menu.title = "LOOT"
	m.menu.reset(items)
}

func (m *LootMode) showFiles(ctx context.Context, category string) {
	m.category = category
	names, err := core.ListLoot(m.env.Cfg.LootRoot, category)
	if err != nil {
		m.env.Store.AddAlert(fmt.Sprintf("loot %s: %v", category, err), schema.AlertError)
		return
	}
	items := make([]menuItem, 0, len(names))
	for _, name := range names {
		file := name
		items = append(items, menuItem{
			label: file,
			run:   func(ctx context.Context) { m.describe(ctx, category, file) },
		})
	}
	if len(items) == 0 {
		items = append(items, menuItem{label: "(empty)"})
	}
	m.menu.title = "LOOT/" + category
	m.menu.reset(items)
}

// describe surfaces size and age for one capture as an alert.
func (m *LootMode) describe(_ context.Context, category, name string) {
	info, err := os.Stat(filepath.Join(m.env.Cfg.LootRoot, category, name))
	if err != nil {
		m.env.Store.AddAlert(fmt.Sprintf("stat %s: %v", name, err), schema.AlertError)
		return
	}
	m.env.Store.AddAlert(
		fmt.Sprintf("%s %s %s", name, formatBytes(uint64(info.Size())), info.ModTime().Format("Jan 2 15:04")),
		schema.AlertInfo)
}

// purge removes captures older than lootMaxAge across all categories.
// Confirm-to-arm: the first SELECT arms, the second inside the window fires.
func (m *LootMode) purge(ctx context.Context) {
	if !m.env.Store.RequestConfirm("purge loot", m.env.Cfg.ConfirmWindow) {
		m.env.Store.AddAlert("Press again to purge old loot", schema.AlertWarn)
		return
	}
	cutoff := time.Now().Add(-lootMaxAge)
	removed := 0
	for _, category := range schema.LootCategories {
		dir := filepath.Join(m.env.Cfg.LootRoot, category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	m.env.Store.AddAlert(fmt.Sprintf("Purged %d old captures", removed), schema.AlertInfo)
	m.showCategories(ctx)
}
