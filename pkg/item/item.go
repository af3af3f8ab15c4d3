// Package item defines the capability interface every status bar item
// implements, and the context the scheduler hands to each call.
//
// Items never see the registry or each other. Each call receives an Env
// describing why it runs and returns the item's new Block; the scheduler
// stores the Block and re-renders the bar.
package item

import (
	"context"
	"errors"
	"strings"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// ErrUnsupported is returned by items that do not handle custom events.
var ErrUnsupported = errors.New("not supported by this item")

// Trigger names the stimulus behind a call.
type Trigger int

const (
	TriggerInitial Trigger = iota
	TriggerTimer
	TriggerSignal
	TriggerRefresh
	TriggerClick
	TriggerCustom
)

func (t Trigger) String() string {
	switch t {
	case TriggerInitial:
		return "initial"
	case TriggerTimer:
		return "timer"
	case TriggerSignal:
		return "signal"
	case TriggerRefresh:
		return "refresh"
	case TriggerClick:
		return "click"
	case TriggerCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Env is passed to every item call.
type Env struct {
	Trigger Trigger
	Name    string
	Index   int
	// Theme is a snapshot taken when the call was started.
	Theme theme.Theme
}

// Signalled reports whether the call was caused by a realtime signal or an
// explicit refresh request.
func (e Env) Signalled() bool {
	return e.Trigger == TriggerSignal || e.Trigger == TriggerRefresh
}

// Reply is the result of a custom event. Payload is returned to the control
// client; a non-nil Block replaces the item's current block.
type Reply struct {
	Payload any
	Block   *i3.Block
}

// Item is a schedulable source of one Block.
//
// The scheduler never runs two calls on the same item at once, so
// implementations may keep unsynchronized state between calls. Calls may
// block; they run off the scheduler goroutine.
type Item interface {
	// Refresh produces a fresh Block.
	Refresh(ctx context.Context, env Env) (*i3.Block, error)

	// Click handles a click that no configured action claimed. Returning
	// ErrUnsupported makes the scheduler refresh the item instead. A nil
	// Block with a nil error leaves the current Block unchanged.
	Click(ctx context.Context, env Env, ev i3.ClickEvent) (*i3.Block, error)

	// Custom handles an event sent through the control socket.
	Custom(ctx context.Context, env Env, args []string) (Reply, error)
}

// Base provides default Click and Custom behavior for items that only
// refresh. Embed it and implement Refresh.
type Base struct{}

// Click returns ErrUnsupported, so a click refreshes the item.
func (Base) Click(context.Context, Env, i3.ClickEvent) (*i3.Block, error) {
	return nil, ErrUnsupported
}

// Custom returns ErrUnsupported.
func (Base) Custom(context.Context, Env, []string) (Reply, error) {
	return Reply{}, ErrUnsupported
}

// Usage builds the error returned for a malformed custom event.
func Usage(lines ...string) error {
	return &UsageError{Help: strings.Join(lines, "\n")}
}

// UsageError reports invalid arguments to a custom event.
type UsageError struct {
	Help string
}

func (e *UsageError) Error() string { return "usage: " + e.Help }
