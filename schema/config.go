package schema

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ServiceConfig defines defaults and limits for the runtime core.
type ServiceConfig struct {
	LootRoot         string
	AlertCapacity    int
	DefaultTimeout   time.Duration
	CancelGrace      time.Duration
	TickInterval     time.Duration
	BacklightTimeout time.Duration
	ConfirmWindow    time.Duration
	// Resources maps each exclusive resource class to the interface that
	// backs it (e.g. wifi -> wlan1).
	Resources map[ResourceClass]string
}

// DefaultAlertCapacity is the default bounded alert journal size.
const DefaultAlertCapacity = 50

// LootCategories are the capture subdirectories, one per tool category.
var LootCategories = []string{"scans", "creds", "mitm", "deauth", "wifi", "shells", "captures"}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.LootRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ServiceConfig{}, err
		}
		cfg.LootRoot = filepath.Join(home, ".opsdeck", "loot")
	}
	if cfg.AlertCapacity <= 0 {
		cfg.AlertCapacity = DefaultAlertCapacity
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = 3 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 2 * time.Second
	}
	if cfg.BacklightTimeout <= 0 {
		cfg.BacklightTimeout = time.Minute
	}
	if cfg.ConfirmWindow <= 0 {
		cfg.ConfirmWindow = 3 * time.Second
	}
	if cfg.Resources == nil {
		cfg.Resources = map[ResourceClass]string{
			ResourceNetwork: "eth0",
			ResourceWiFi:    "wlan1",
			ResourceUSB:     "usb0",
		}
	}
	for class, iface := range cfg.Resources {
		if class == "" || iface == "" {
			return ServiceConfig{}, errors.New("resource classes and interfaces must be non-empty")
		}
	}
	if cfg.CancelGrace >= cfg.DefaultTimeout {
		return ServiceConfig{}, errors.New("cancel grace must be shorter than the default timeout")
	}
	return cfg, nil
}
