package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesOverridesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
loot_root: /loot
payload:
  default_timeout_minutes: 10
resources:
  wifi: wlan9
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LootRoot != "/loot" {
		t.Fatalf("expected loot_root override, got %q", cfg.LootRoot)
	}
	if cfg.Payload.DefaultTimeoutMinutes != 10 {
		t.Fatalf("expected timeout override, got %d", cfg.Payload.DefaultTimeoutMinutes)
	}
	if cfg.Resources.WiFi != "wlan9" || cfg.Resources.Network != "eth0" {
		t.Fatalf("expected partial resource override, got %+v", cfg.Resources)
	}

	svc, err := cfg.ToServiceConfig()
	if err != nil {
		t.Fatalf("to service config: %v", err)
	}
	if svc.DefaultTimeout != 10*time.Minute {
		t.Fatalf("expected converted timeout, got %s", svc.DefaultTimeout)
	}
	if svc.Resources["wifi"] != "wlan9" {
		t.Fatalf("expected wifi resource, got %+v", svc.Resources)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected default config version, got %d", cfg.ConfigVersion)
	}
	if cfg.Sysmon.IntervalSeconds != 5 {
		t.Fatalf("expected default sysmon interval, got %d", cfg.Sysmon.IntervalSeconds)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersionWhenFilePresent(t *testing.T) {
	path := writeConfig(t, `
loot_root: /loot
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
