// Package click reads click events from the bar and matches them against
// the actions configured for each item.
package click

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
)

// Kind is the kind of click an action is bound to.
type Kind string

const (
	LeftClick   Kind = "left_click"
	MiddleClick Kind = "middle_click"
	RightClick  Kind = "right_click"
	ScrollUp    Kind = "scroll_up"
	ScrollDown  Kind = "scroll_down"
)

var kindByButton = map[i3.Button]Kind{
	i3.ButtonLeft:       LeftClick,
	i3.ButtonMiddle:     MiddleClick,
	i3.ButtonRight:      RightClick,
	i3.ButtonScrollUp:   ScrollUp,
	i3.ButtonScrollDown: ScrollDown,
}

// KindOf maps a button to the kind of click it produces. Buttons without a
// kind cannot have actions bound to them.
func KindOf(b i3.Button) (Kind, bool) {
	k, ok := kindByButton[b]
	return k, ok
}

func (k Kind) valid() bool {
	for _, known := range kindByButton {
		if k == known {
			return true
		}
	}
	return false
}

// Action is a command bound to a click. With no modifiers it runs for any
// modifier combination; otherwise the held modifiers must match exactly.
type Action struct {
	Command   string        `json:"command"`
	Modifiers []i3.Modifier `json:"modifiers,omitempty"`
}

// Matches reports whether the action applies to a click with mods held.
func (a Action) Matches(mods []i3.Modifier) bool {
	if len(a.Modifiers) == 0 {
		return true
	}
	return i3.SameModifiers(a.Modifiers, mods)
}

// UnmarshalJSON accepts a bare command string or an object.
func (a *Action) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*a = Action{}
		return json.Unmarshal(data, &a.Command)
	}

	type plain Action
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for i, m := range p.Modifiers {
		norm, err := i3.ParseModifier(string(m))
		if err != nil {
			return err
		}
		p.Modifiers[i] = norm
	}
	*a = Action(p)
	return nil
}

// ActionList is one or more actions bound to the same kind of click.
type ActionList []Action

// UnmarshalJSON accepts a single action or a list of them.
func (l *ActionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var many []Action
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	var one Action
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = ActionList{one}
	return nil
}

// Actions maps each kind of click to its actions.
type Actions map[Kind]ActionList

// Validate rejects unknown click kinds and empty commands.
func (a Actions) Validate() error {
	kinds := make([]string, 0, len(a))
	for k := range a {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if !Kind(k).valid() {
			return fmt.Errorf("unknown click kind %q", k)
		}
		for i, act := range a[Kind(k)] {
			if act.Command == "" {
				return fmt.Errorf("%s[%d]: empty command", k, i)
			}
		}
	}
	return nil
}

// Match returns the commands to run for a click, in configuration order.
// An empty result means the click goes to the item.
func (a Actions) Match(ev i3.ClickEvent) []string {
	kind, ok := KindOf(ev.Button)
	if !ok {
		return nil
	}
	var cmds []string
	for _, act := range a[kind] {
		if act.Matches(ev.Modifiers) {
			cmds = append(cmds, act.Command)
		}
	}
	return cmds
}
