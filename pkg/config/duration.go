// Package config loads the bar's configuration from TOML, YAML or JSON
// files, following include directives and applying environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration with string parsing.
// Supports standard Go duration strings: "1s", "30s", "5m", "1h", "15m", etc.
// A bare number counts seconds.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	if secs < 0 {
		return fmt.Errorf("negative duration %s not allowed", data)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
