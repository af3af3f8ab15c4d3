package items

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
)

// Default clock layouts.
const (
	DefaultTimeFormat      = "2006-01-02 15:04:05"
	DefaultTimeFormatShort = "15:04"
)

type clockOptions struct {
	Format      string `json:"format"`
	FormatShort string `json:"format_short"`
}

// Clock shows the local time. A left click toggles between the long and
// the short layout.
type Clock struct {
	item.Base
	format    string
	short     string
	showShort bool
	now       func() time.Time
}

// NewClock returns a clock using Go time layouts. Empty layouts use the
// defaults.
func NewClock(format, short string) *Clock {
	if format == "" {
		format = DefaultTimeFormat
	}
	if short == "" {
		short = DefaultTimeFormatShort
	}
	return &Clock{format: format, short: short, now: time.Now}
}

func newClock(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	var opts clockOptions
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return NewClock(opts.Format, opts.FormatShort), nil
}

// Refresh formats the current time.
func (c *Clock) Refresh(context.Context, item.Env) (*i3.Block, error) {
	now := c.now()
	b := i3.NewBlock(now.Format(c.format))
	b.ShortText = now.Format(c.short)
	if c.showShort {
		b.FullText = b.ShortText
	}
	return b, nil
}

// Click toggles the layout on a left click.
func (c *Clock) Click(ctx context.Context, env item.Env, ev i3.ClickEvent) (*i3.Block, error) {
	if ev.Button != i3.ButtonLeft {
		return nil, item.ErrUnsupported
	}
	c.showShort = !c.showShort
	return c.Refresh(ctx, env)
}
