// Package theme holds the bar's color palette and the powerline color
// cycle, with a registry of built-in themes and helpers to load and edit
// themes at runtime.
package theme

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "nord"

// PowerlinePair is one step of the powerline color cycle.
type PowerlinePair struct {
	Fg string `json:"fg" toml:"fg" yaml:"fg"`
	Bg string `json:"bg" toml:"bg" yaml:"bg"`
}

// Theme defines the colors items and the renderer draw with. Colors are
// "#rrggbb" hex strings.
type Theme struct {
	Name string `json:"name" toml:"name" yaml:"name"`

	// Base colors
	Bg  string `json:"bg" toml:"bg" yaml:"bg"`
	Fg  string `json:"fg" toml:"fg" yaml:"fg"`
	Dim string `json:"dim" toml:"dim" yaml:"dim"`

	// Accents, used by items for state
	Red    string `json:"red" toml:"red" yaml:"red"`
	Orange string `json:"orange" toml:"orange" yaml:"orange"`
	Yellow string `json:"yellow" toml:"yellow" yaml:"yellow"`
	Green  string `json:"green" toml:"green" yaml:"green"`
	Purple string `json:"purple" toml:"purple" yaml:"purple"`
	Blue   string `json:"blue" toml:"blue" yaml:"blue"`

	// Urgent items
	UrgentFg string `json:"urgent_fg" toml:"urgent_fg" yaml:"urgent_fg"`
	UrgentBg string `json:"urgent_bg" toml:"urgent_bg" yaml:"urgent_bg"`

	// Powerline
	PowerlineEnable    bool            `json:"powerline_enable" toml:"powerline_enable" yaml:"powerline_enable"`
	PowerlineSeparator string          `json:"powerline_separator" toml:"powerline_separator" yaml:"powerline_separator"`
	Powerline          []PowerlinePair `json:"powerline" toml:"powerline" yaml:"powerline"`
}

// Clone returns a deep copy of t.
func (t Theme) Clone() Theme {
	t.Powerline = append([]PowerlinePair(nil), t.Powerline...)
	return t
}

// Validate checks every color and the powerline cycle.
func (t Theme) Validate() error {
	var errs []error
	for field, c := range map[string]string{
		"bg": t.Bg, "fg": t.Fg, "dim": t.Dim,
		"red": t.Red, "orange": t.Orange, "yellow": t.Yellow,
		"green": t.Green, "purple": t.Purple, "blue": t.Blue,
		"urgent_fg": t.UrgentFg, "urgent_bg": t.UrgentBg,
	} {
		if !IsHexColor(c) {
			errs = append(errs, fmt.Errorf("%s: invalid color %q", field, c))
		}
	}
	if len(t.Powerline) < 2 {
		errs = append(errs, errors.New("powerline must contain at least two entries"))
	}
	for i, p := range t.Powerline {
		if !IsHexColor(p.Fg) {
			errs = append(errs, fmt.Errorf("powerline.%d.fg: invalid color %q", i, p.Fg))
		}
		if !IsHexColor(p.Bg) {
			errs = append(errs, fmt.Errorf("powerline.%d.bg: invalid color %q", i, p.Bg))
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	thRegisterBuiltins()
}

// Get returns a copy of a named theme, falling back to the default theme if
// the name is unknown.
func Get(name string) Theme {
	t, ok := Lookup(name)
	if !ok {
		t, _ = Lookup(DefaultName)
	}
	return t
}

// Lookup returns a copy of a named theme.
func Lookup(name string) (Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[strings.ToLower(name)]
	if !ok {
		return Theme{}, false
	}
	return t.Clone(), true
}

// Default returns a copy of the default theme.
func Default() Theme {
	return Get(DefaultName)
}

// Names returns all available theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a theme under its lowercase name.
func Register(t Theme) error {
	if t.Name == "" {
		return errors.New("theme: name is required")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("theme %q: %w", t.Name, err)
	}
	thRegister(t)
	return nil
}

// thRegister adds a theme to the registry under its lowercase name.
func thRegister(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t.Clone()
}
