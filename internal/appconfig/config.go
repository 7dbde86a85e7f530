package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/opsdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	LootRoot      string          `mapstructure:"loot_root" yaml:"loot_root"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	ProfileDir    string          `mapstructure:"profile_dir" yaml:"profile_dir"`
	Payload       PayloadConfig   `mapstructure:"payload" yaml:"payload"`
	Alerts        AlertsConfig    `mapstructure:"alerts" yaml:"alerts"`
	Input         InputConfig     `mapstructure:"input" yaml:"input"`
	Resources     ResourcesConfig `mapstructure:"resources" yaml:"resources"`
	SSH           SSHConfig       `mapstructure:"ssh" yaml:"ssh"`
	Sysmon        SysmonConfig    `mapstructure:"sysmon" yaml:"sysmon"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// PayloadConfig controls external tool supervision.
type PayloadConfig struct {
	DefaultTimeoutMinutes int `mapstructure:"default_timeout_minutes" yaml:"default_timeout_minutes"`
	CancelGraceSeconds    int `mapstructure:"cancel_grace_seconds" yaml:"cancel_grace_seconds"`
	TickIntervalSeconds   int `mapstructure:"tick_interval_seconds" yaml:"tick_interval_seconds"`
}

// AlertsConfig controls the alert journal.
type AlertsConfig struct {
	Capacity    int    `mapstructure:"capacity" yaml:"capacity"`
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`
}

// InputConfig controls keypad and display behavior.
type InputConfig struct {
	BacklightTimeoutSeconds int `mapstructure:"backlight_timeout_seconds" yaml:"backlight_timeout_seconds"`
	ConfirmWindowSeconds    int `mapstructure:"confirm_window_seconds" yaml:"confirm_window_seconds"`
}

// ResourcesConfig maps exclusive resource classes to interface names.
type ResourcesConfig struct {
	Network string `mapstructure:"network" yaml:"network"`
	WiFi    string `mapstructure:"wifi" yaml:"wifi"`
	USB     string `mapstructure:"usb" yaml:"usb"`
}

// SSHConfig configures the remote mirror server.
type SSHConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
}

// SysmonConfig configures system metric collection.
type SysmonConfig struct {
	IntervalSeconds int    `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	TopProcesses    int    `mapstructure:"top_processes" yaml:"top_processes"`
	ThermalZone     string `mapstructure:"thermal_zone" yaml:"thermal_zone"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".opsdeck")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		LootRoot:      filepath.Join(base, "loot"),
		StateDir:      filepath.Join(base, "state"),
		ProfileDir:    filepath.Join(base, "profiles"),
		Payload: PayloadConfig{
			DefaultTimeoutMinutes: 5,
			CancelGraceSeconds:    3,
			TickIntervalSeconds:   2,
		},
		Alerts: AlertsConfig{
			Capacity:    schema.DefaultAlertCapacity,
			JournalPath: filepath.Join(base, "state", "alerts.jsonl"),
		},
		Input: InputConfig{
			BacklightTimeoutSeconds: 60,
			ConfirmWindowSeconds:    3,
		},
		Resources: ResourcesConfig{
			Network: "eth0",
			WiFi:    "wlan1",
			USB:     "usb0",
		},
		SSH: SSHConfig{
			Enabled:            true,
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(base, "ssh_host_key"),
			AuthorizedKeysPath: filepath.Join(base, "authorized_keys"),
		},
		Sysmon: SysmonConfig{
			IntervalSeconds: 5,
			TopProcesses:    5,
			ThermalZone:     "/sys/class/thermal/thermal_zone0/temp",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".opsdeck", "config.yaml"), nil
}

// ToServiceConfig converts the file representation into the normalized
// runtime configuration used by the core packages.
func (c Config) ToServiceConfig() (schema.ServiceConfig, error) {
	return schema.NormalizeServiceConfig(schema.ServiceConfig{
		LootRoot:         c.LootRoot,
		AlertCapacity:    c.Alerts.Capacity,
		DefaultTimeout:   time.Duration(c.Payload.DefaultTimeoutMinutes) * time.Minute,
		CancelGrace:      time.Duration(c.Payload.CancelGraceSeconds) * time.Second,
		TickInterval:     time.Duration(c.Payload.TickIntervalSeconds) * time.Second,
		BacklightTimeout: time.Duration(c.Input.BacklightTimeoutSeconds) * time.Second,
		ConfirmWindow:    time.Duration(c.Input.ConfirmWindowSeconds) * time.Second,
		Resources: map[schema.ResourceClass]string{
			schema.ResourceNetwork: c.Resources.Network,
			schema.ResourceWiFi:    c.Resources.WiFi,
			schema.ResourceUSB:     c.Resources.USB,
		},
	})
}
