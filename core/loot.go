package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/opsdeck/schema"
)

// EnsureLootTree creates the loot root and one subdirectory per category.
func EnsureLootTree(root string, categories []string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("loot root is required")
	}
	for _, category := range categories {
		if err := os.MkdirAll(filepath.Join(root, category), 0o750); err != nil {
			return fmt.Errorf("create loot dir %s: %w", category, err)
		}
	}
	return nil
}

// LootPath builds the capture path for a job: <category>/<job_id>-<timestamp>.<ext>.
func LootPath(root, category string, id schema.JobID, ts time.Time, ext string) string {
	if category == "" {
		category = "captures"
	}
	if ext == "" {
		ext = "txt"
	}
	name := fmt.Sprintf("%s-%s.%s", id, ts.Format("20060102_150405"), ext)
	return filepath.Join(root, category, name)
}

// ListLoot returns capture file names for a category, newest first.
func ListLoot(root, category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, category))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, nil
}
