// Package profiles loads mission profiles: named sequences of payload
// steps stored as TOML files, selectable from the profile mode. A profile
// replaces typing a common engagement playbook step by step on the keypad.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"pkt.systems/opsdeck/schema"
)

// Step is one payload invocation inside a profile.
type Step struct {
	Name     string               `toml:"name"`
	Command  string               `toml:"command"`
	Args     []string             `toml:"args,omitempty"`
	Resource schema.ResourceClass `toml:"resource,omitempty"`
	Category string               `toml:"category,omitempty"`
	Ext      string               `toml:"ext,omitempty"`
	Timeout  duration             `toml:"timeout,omitempty"`
}

// Profile is a named sequence of steps run one after another.
type Profile struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Steps       []Step `toml:"steps"`
}

// duration wraps time.Duration for TOML string values like "90s".
type duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler so saved profiles keep the
// "90s" form.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// TimeoutDuration returns the step's timeout as a time.Duration.
func (s Step) TimeoutDuration() time.Duration { return time.Duration(s.Timeout) }

// Parse decodes and validates one profile.
func Parse(data []byte) (Profile, error) {
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("profile: parse TOML: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Profile{}, fmt.Errorf("profile: missing required field 'name'")
	}
	if len(p.Steps) == 0 {
		return Profile{}, fmt.Errorf("profile %s: at least one step is required", p.Name)
	}
	for i, step := range p.Steps {
		if strings.TrimSpace(step.Command) == "" {
			return Profile{}, fmt.Errorf("profile %s: step %d has no command", p.Name, i+1)
		}
		if strings.TrimSpace(step.Name) == "" {
			p.Steps[i].Name = step.Command
		}
	}
	return p, nil
}

// LoadDir reads all *.toml profiles from dir, sorted by name. A missing
// directory yields an empty list. Unparsable files are reported together
// so one broken profile does not hide the rest.
func LoadDir(dir string) ([]Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var profiles []Profile
	var broken []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			broken = append(broken, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		p, err := Parse(data)
		if err != nil {
			broken = append(broken, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	if len(broken) > 0 {
		return profiles, fmt.Errorf("profiles: %s", strings.Join(broken, "; "))
	}
	return profiles, nil
}

// Save writes a profile to dir as <slug>.toml.
func Save(dir string, p Profile) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p.Name), " ", "-"))
	path := filepath.Join(dir, slug+".toml")
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return "", fmt.Errorf("profile: encode TOML: %w", err)
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o640); err != nil {
		return "", err
	}
	return path, nil
}
