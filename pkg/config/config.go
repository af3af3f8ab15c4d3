package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/click"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// Config is the bar configuration.
type Config struct {
	// Socket is the control socket path. The command line takes precedence.
	Socket string `json:"socket,omitempty"`
	// Theme selects and customizes the color theme.
	Theme ThemeSetting `json:"theme"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
	// Overlap is the policy for refreshes requested while an item is busy:
	// "skip" or "merge".
	Overlap string `json:"overlap,omitempty"`
	// Items are the bar items in declaration order.
	Items []ItemConfig `json:"items"`

	// Include lists further files merged into this one.
	Include []string `json:"include,omitempty"`

	// Path is the file the configuration was loaded from, if any.
	Path string `json:"-"`
}

// ThemeSetting is either the name of a built-in theme, the path of a TOML
// theme file, or a table of colors layered on a base theme named by its
// "name" key.
type ThemeSetting struct {
	Name      string
	File      string
	Overrides map[string]any
}

// UnmarshalJSON accepts a string or a table.
func (t *ThemeSetting) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ThemeSetting{}
		if strings.HasSuffix(strings.ToLower(s), ".toml") {
			t.File = s
		} else {
			t.Name = s
		}
		return nil
	}

	var table map[string]any
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("theme must be a name or a table: %w", err)
	}
	*t = ThemeSetting{}
	if name, ok := table["name"].(string); ok {
		t.Name = name
		delete(table, "name")
	}
	if len(table) > 0 {
		t.Overrides = table
	}
	return nil
}

// MarshalJSON writes the setting back in the shortest form.
func (t ThemeSetting) MarshalJSON() ([]byte, error) {
	switch {
	case t.File != "":
		return json.Marshal(t.File)
	case len(t.Overrides) == 0:
		return json.Marshal(t.Name)
	}
	table := make(map[string]any, len(t.Overrides)+1)
	for k, v := range t.Overrides {
		table[k] = v
	}
	if t.Name != "" {
		table["name"] = t.Name
	}
	return json.Marshal(table)
}

// Resolve builds the theme. Relative theme files are resolved against the
// directory of the configuration file.
func (c *Config) Resolve() (theme.Theme, error) {
	ts := c.Theme
	if path := c.ThemeFile(); path != "" {
		return theme.LoadFile(path)
	}

	name := ts.Name
	if name == "" {
		name = theme.DefaultName
	}
	base, ok := theme.Lookup(name)
	if !ok {
		return theme.Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(theme.Names(), ", "))
	}
	if len(ts.Overrides) == 0 {
		return base, nil
	}

	var tree any
	data, err := json.Marshal(base)
	if err != nil {
		return theme.Theme{}, err
	}
	if err := json.Unmarshal(data, &tree); err != nil {
		return theme.Theme{}, err
	}
	merged := merge(tree, ts.Overrides, false)
	th, err := base.Set("", merged)
	if err != nil {
		return theme.Theme{}, err
	}
	return th, nil
}

// ThemeFile returns the path of the theme file, or "" when the theme is
// not read from a file.
func (c *Config) ThemeFile() string {
	path := c.Theme.File
	if path == "" {
		return ""
	}
	path = expandHome(path)
	if !filepath.IsAbs(path) && c.Path != "" {
		path = filepath.Join(filepath.Dir(c.Path), path)
	}
	return path
}

// knownItemKeys are the item keys handled by the scheduler. Every other key
// is an option of the item type.
var knownItemKeys = map[string]bool{
	"type": true, "name": true, "index": true, "hidden": true,
	"interval": true, "signal": true, "separator": true, "actions": true,
}

// ItemConfig configures one bar item.
type ItemConfig struct {
	Type      string        `json:"type"`
	Name      string        `json:"name,omitempty"`
	Index     *int          `json:"index,omitempty"`
	Hidden    bool          `json:"hidden,omitempty"`
	Interval  *Duration     `json:"interval,omitempty"`
	Signals   Signals       `json:"signal,omitempty"`
	Separator *bool         `json:"separator,omitempty"`
	Actions   click.Actions `json:"actions,omitempty"`

	// Options holds the type-specific keys.
	Options map[string]json.RawMessage `json:"-"`
}

type plainItem ItemConfig

// UnmarshalJSON splits the common keys from the type-specific options.
func (ic *ItemConfig) UnmarshalJSON(data []byte) error {
	var p plainItem
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if knownItemKeys[k] {
			continue
		}
		if p.Options == nil {
			p.Options = make(map[string]json.RawMessage)
		}
		p.Options[k] = v
	}
	*ic = ItemConfig(p)
	return nil
}

// MarshalJSON writes the common keys and the options as one object.
func (ic ItemConfig) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainItem(ic))
	if err != nil {
		return nil, err
	}
	if len(ic.Options) == 0 {
		return data, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range ic.Options {
		out[k] = v
	}
	return json.Marshal(out)
}

// DisplayName is the configured name, or the type when no name is set.
func (ic ItemConfig) DisplayName() string {
	if ic.Name != "" {
		return ic.Name
	}
	return ic.Type
}

// DecodeOptions decodes the type-specific options into v. Unknown keys are
// an error.
func (ic ItemConfig) DecodeOptions(v any) error {
	if len(ic.Options) == 0 {
		return nil
	}
	data, err := json.Marshal(ic.Options)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("item %q: %w", ic.DisplayName(), err)
	}
	return nil
}

// Signals is one signal offset or a list of them.
type Signals []int

// UnmarshalJSON accepts a number or a list of numbers.
func (s *Signals) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []int
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one int
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("signal must be a number or a list of numbers: %w", err)
	}
	*s = Signals{one}
	return nil
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]int)
	for i, it := range c.Items {
		if it.Type == "" {
			errs = append(errs, fmt.Errorf("items[%d]: missing type", i))
		}
		if it.Index != nil && *it.Index < 0 {
			errs = append(errs, fmt.Errorf("items[%d]: negative index %d", i, *it.Index))
		}
		if err := it.Actions.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("items[%d]: %w", i, err))
		}
		if it.Name == "" {
			continue
		}
		if j, dup := seen[it.Name]; dup {
			errs = append(errs, fmt.Errorf("item names must be unique, items[%d] and items[%d] share the same name: %s", j, i, it.Name))
			continue
		}
		seen[it.Name] = i
	}
	switch c.Overlap {
	case "", "skip", "merge":
	default:
		errs = append(errs, fmt.Errorf("overlap: unknown policy %q", c.Overlap))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}
