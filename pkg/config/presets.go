package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPreset is the item set used when no configuration file exists.
const DefaultPreset = "system"

// Preset returns the items of a named preset.
// If the name is not recognized, the "system" preset is returned.
func Preset(name string) []ItemConfig {
	switch name {
	case "minimal":
		return minimalPreset()
	case "system":
		return systemPreset()
	default:
		return systemPreset()
	}
}

// PresetNames returns the known preset names.
func PresetNames() []string {
	names := []string{"minimal", "system"}
	sort.Strings(names)
	return names
}

// minimalPreset shows just a clock.
//
//	[time]
func minimalPreset() []ItemConfig {
	return []ItemConfig{
		{Type: "time", Options: options(map[string]any{
			"format":       "2006-01-02 15:04:05",
			"format_short": "15:04",
		})},
	}
}

// systemPreset shows machine load and a clock.
//
//	[cpu] [mem] [disk /] [load] [time]
func systemPreset() []ItemConfig {
	return []ItemConfig{
		{Type: "cpu", Interval: every(2 * time.Second)},
		{Type: "mem", Interval: every(5 * time.Second)},
		{Type: "disk", Interval: every(time.Minute), Options: options(map[string]any{"path": "/"})},
		{Type: "load", Interval: every(5 * time.Second)},
		{Type: "time", Interval: every(time.Second), Options: options(map[string]any{
			"format":       "2006-01-02 15:04:05",
			"format_short": "15:04",
		})},
	}
}

func every(d time.Duration) *Duration {
	return &Duration{d}
}

func options(m map[string]any) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		data, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("preset option %q: %v", k, err))
		}
		out[k] = data
	}
	return out
}

// EncodeTOML writes cfg as a TOML document.
func EncodeTOML(cfg *Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
