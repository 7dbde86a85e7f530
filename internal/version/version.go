// Package version resolves the binary's reported version from build
// metadata.
package version

import (
	"runtime/debug"
	"strings"
)

const defaultModule = "pkt.systems/opsdeck"

// buildVersion is set via -ldflags "-X pkt.systems/opsdeck/internal/version.buildVersion=...".
var buildVersion = ""

// Module returns the module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Current returns the injected build version, then the module version
// stamped by the toolchain, then the VCS revision.
func Current() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "v0.0.0-unknown"
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return v
	}
	if rev := revisionFromSettings(info.Settings); rev != "" {
		return "devel-" + rev
	}
	return "v0.0.0-unknown"
}

func revisionFromSettings(settings []debug.BuildSetting) string {
	for _, setting := range settings {
		if setting.Key != "vcs.revision" {
			continue
		}
		rev := strings.TrimSpace(setting.Value)
		if len(rev) > 12 {
			rev = rev[:12]
		}
		return rev
	}
	return ""
}
