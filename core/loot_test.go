package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/opsdeck/schema"
)

func TestEnsureLootTreeCreatesCategories(t *testing.T) {
	root := t.TempDir()
	if err := EnsureLootTree(root, schema.LootCategories); err != nil {
		t.Fatalf("ensure loot tree: %v", err)
	}
	for _, category := range schema.LootCategories {
		info, err := os.Stat(filepath.Join(root, category))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing loot dir %s: %v", category, err)
		}
	}
	if err := EnsureLootTree("", schema.LootCategories); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestLootPathFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 2, 0, time.UTC)
	path := LootPath("/loot", "scans", "job-000007", ts, "xml")
	if path != filepath.Join("/loot", "scans", "job-000007-20260314_150902.xml") {
		t.Fatalf("unexpected path %s", path)
	}
	// Defaults for empty category and extension.
	path = LootPath("/loot", "", "job-000008", ts, "")
	if path != filepath.Join("/loot", "captures", "job-000008-20260314_150902.txt") {
		t.Fatalf("unexpected default path %s", path)
	}
}

func TestListLootNewestFirst(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "creds")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"job-000001-20260101_000000.txt", "job-000002-20260102_000000.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o640); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	names, err := ListLoot(root, "creds")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "job-000002-20260102_000000.txt" {
		t.Fatalf("expected newest first, got %v", names)
	}

	// Missing category is not an error, just empty.
	names, err = ListLoot(root, "shells")
	if err != nil || len(names) != 0 {
		t.Fatalf("expected empty listing, got %v (%v)", names, err)
	}
}
