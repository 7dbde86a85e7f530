package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("loot_root", cfg.LootRoot)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("profile_dir", cfg.ProfileDir)
	v.SetDefault("payload.default_timeout_minutes", cfg.Payload.DefaultTimeoutMinutes)
	v.SetDefault("payload.cancel_grace_seconds", cfg.Payload.CancelGraceSeconds)
	v.SetDefault("payload.tick_interval_seconds", cfg.Payload.TickIntervalSeconds)
	v.SetDefault("alerts.capacity", cfg.Alerts.Capacity)
	v.SetDefault("alerts.journal_path", cfg.Alerts.JournalPath)
	v.SetDefault("input.backlight_timeout_seconds", cfg.Input.BacklightTimeoutSeconds)
	v.SetDefault("input.confirm_window_seconds", cfg.Input.ConfirmWindowSeconds)
	v.SetDefault("resources.network", cfg.Resources.Network)
	v.SetDefault("resources.wifi", cfg.Resources.WiFi)
	v.SetDefault("resources.usb", cfg.Resources.USB)
	v.SetDefault("ssh.enabled", cfg.SSH.Enabled)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("sysmon.interval_seconds", cfg.Sysmon.IntervalSeconds)
	v.SetDefault("sysmon.top_processes", cfg.Sysmon.TopProcesses)
	v.SetDefault("sysmon.thermal_zone", cfg.Sysmon.ThermalZone)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		// A missing config file runs on defaults; anything else is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	return cfg, nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.LootRoot = expandEnv(cfg.LootRoot)
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.ProfileDir = expandEnv(cfg.ProfileDir)
	cfg.Alerts.JournalPath = expandEnv(cfg.Alerts.JournalPath)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
	cfg.Sysmon.ThermalZone = expandEnv(cfg.Sysmon.ThermalZone)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
