package i3

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Button is the mouse button number reported by the bar.
type Button int

const (
	ButtonLeft        Button = 1
	ButtonMiddle      Button = 2
	ButtonRight       Button = 3
	ButtonScrollUp    Button = 4
	ButtonScrollDown  Button = 5
	ButtonScrollRight Button = 6
	ButtonScrollLeft  Button = 7
)

var buttonNames = map[Button]string{
	ButtonLeft:        "left",
	ButtonMiddle:      "middle",
	ButtonRight:       "right",
	ButtonScrollUp:    "scroll_up",
	ButtonScrollDown:  "scroll_down",
	ButtonScrollRight: "scroll_right",
	ButtonScrollLeft:  "scroll_left",
}

func (b Button) String() string {
	if n, ok := buttonNames[b]; ok {
		return n
	}
	return "button" + strconv.Itoa(int(b))
}

// ParseButton accepts a button number or one of the names returned by
// Button.String.
func ParseButton(s string) (Button, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("invalid button %d", n)
		}
		return Button(n), nil
	}
	for b, name := range buttonNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// Modifier is a keyboard modifier held during a click.
type Modifier string

const (
	ModMod1    Modifier = "Mod1"
	ModMod2    Modifier = "Mod2"
	ModMod3    Modifier = "Mod3"
	ModMod4    Modifier = "Mod4"
	ModMod5    Modifier = "Mod5"
	ModShift   Modifier = "Shift"
	ModControl Modifier = "Control"
)

// ParseModifier normalizes the case of a modifier name. Unknown names are
// rejected.
func ParseModifier(s string) (Modifier, error) {
	for _, m := range []Modifier{ModMod1, ModMod2, ModMod3, ModMod4, ModMod5, ModShift, ModControl} {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown modifier %q", s)
}

// SameModifiers reports whether a and b hold the same set of modifiers,
// ignoring order and duplicates.
func SameModifiers(a, b []Modifier) bool {
	return strings.Join(sortedModifiers(a), ",") == strings.Join(sortedModifiers(b), ",")
}

func sortedModifiers(mods []Modifier) []string {
	seen := make(map[Modifier]bool, len(mods))
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// ClickEvent is a click reported by the bar. Clicks synthesized by the
// control socket carry zero geometry.
type ClickEvent struct {
	Name      string     `json:"name,omitempty"`
	Instance  string     `json:"instance,omitempty"`
	Button    Button     `json:"button"`
	Modifiers []Modifier `json:"modifiers"`
	X         int        `json:"x"`
	Y         int        `json:"y"`
	RelativeX int        `json:"relative_x"`
	RelativeY int        `json:"relative_y"`
	OutputX   int        `json:"output_x"`
	OutputY   int        `json:"output_y"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
}

// HasModifier reports whether m was held during the click.
func (e ClickEvent) HasModifier(m Modifier) bool {
	for _, have := range e.Modifiers {
		if have == m {
			return true
		}
	}
	return false
}

// Env returns the environment passed to commands run for this click.
func (e ClickEvent) Env() map[string]string {
	mods := make([]string, len(e.Modifiers))
	for i, m := range e.Modifiers {
		mods[i] = string(m)
	}
	return map[string]string{
		"I3_NAME":       e.Name,
		"I3_MODIFIERS":  strings.Join(mods, ","),
		"I3_BUTTON":     strconv.Itoa(int(e.Button)),
		"I3_X":          strconv.Itoa(e.X),
		"I3_Y":          strconv.Itoa(e.Y),
		"I3_RELATIVE_X": strconv.Itoa(e.RelativeX),
		"I3_RELATIVE_Y": strconv.Itoa(e.RelativeY),
		"I3_OUTPUT_X":   strconv.Itoa(e.OutputX),
		"I3_OUTPUT_Y":   strconv.Itoa(e.OutputY),
		"I3_WIDTH":      strconv.Itoa(e.Width),
		"I3_HEIGHT":     strconv.Itoa(e.Height),
	}
}

// ParseClickLine decodes one line of the click stream. The stream is an
// endless JSON array, so the opening bracket, leading commas and blank lines
// are skipped; ok is false for those.
func ParseClickLine(line []byte) (ev ClickEvent, ok bool, err error) {
	s := strings.TrimSpace(string(line))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimPrefix(strings.TrimSpace(s), ",")
	s = strings.TrimSpace(s)
	if s == "" || s == "]" {
		return ClickEvent{}, false, nil
	}
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return ClickEvent{}, false, fmt.Errorf("parse click event: %w", err)
	}
	return ev, true, nil
}
