package profiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleProfile = `
name = "Internal Recon"
description = "Passive then active discovery"

[[steps]]
name = "Quick Scan"
command = "nmap"
args = ["-T4", "-F", "10.0.0.0/24"]
resource = "network"
category = "scans"
ext = "txt"
timeout = "90s"

[[steps]]
command = "netdiscover"
args = ["-P"]
resource = "network"
`

func TestParseProfile(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "Internal Recon" || len(p.Steps) != 2 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Steps[0].TimeoutDuration() != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %s", p.Steps[0].TimeoutDuration())
	}
	// A step with no name falls back to its command.
	if p.Steps[1].Name != "netdiscover" {
		t.Fatalf("expected command fallback name, got %q", p.Steps[1].Name)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name":    "[[steps]]\ncommand = \"nmap\"\n",
		"no steps":        "name = \"empty\"\n",
		"missing command": "name = \"bad\"\n[[steps]]\nname = \"x\"\n",
	}
	for label, content := range cases {
		if _, err := Parse([]byte(content)); err == nil {
			t.Fatalf("%s: expected parse error", label)
		}
	}
}

func TestLoadDirSortsAndReportsBroken(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b.toml", "name = \"Bravo\"\n[[steps]]\ncommand = \"nmap\"\n")
	write("a.toml", "name = \"Alpha\"\n[[steps]]\ncommand = \"nmap\"\n")
	write("broken.toml", "name = ")
	write("ignored.txt", "not a profile")

	profiles, err := LoadDir(dir)
	if err == nil || !strings.Contains(err.Error(), "broken.toml") {
		t.Fatalf("expected broken profile reported, got %v", err)
	}
	if len(profiles) != 2 || profiles[0].Name != "Alpha" || profiles[1].Name != "Bravo" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}

func TestLoadDirMissing(t *testing.T) {
	profiles, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || profiles != nil {
		t.Fatalf("expected empty result, got %v (%v)", profiles, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	path, err := Save(dir, p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "internal-recon.toml" {
		t.Fatalf("unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got.Name != p.Name || len(got.Steps) != len(p.Steps) || got.Steps[0].TimeoutDuration() != 90*time.Second {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
