// Package render turns the registry's current blocks into the status line
// the bar draws, applying urgent styling and the optional powerline look.
package render

import (
	"strings"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// Extra keys set on rendered blocks.
const (
	KeyUrgent       = "urgent"
	KeyPowerlineSep = "powerline_sep"
)

// Renderer styles blocks with a theme. It caches the dim color adjuster,
// keyed by the theme colors it was built from. A Renderer is not safe for
// concurrent use.
type Renderer struct {
	adjBg, adjDim string
	adjust        func(string) string
}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render returns the blocks to emit for one update. Input blocks are never
// modified.
func (r *Renderer) Render(blocks []*i3.Block, th theme.Theme) []*i3.Block {
	if th.PowerlineEnable && len(th.Powerline) > 0 {
		return r.powerline(blocks, th)
	}
	return plain(blocks, th)
}

func plain(blocks []*i3.Block, th theme.Theme) []*i3.Block {
	out := make([]*i3.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Urgent {
			b = b.Clone()
			b.Color = th.UrgentFg
			b.Background = th.UrgentBg
			// Styled by us; the bar's own urgent look is suppressed.
			b.Urgent = false
			b.Set(KeyUrgent, true)
		}
		out = append(out, b)
	}
	return out
}

func (r *Renderer) powerline(blocks []*i3.Block, th theme.Theme) []*i3.Block {
	visible := 0
	for _, b := range blocks {
		if b.FullText != "" {
			visible++
		}
	}

	// Start so that the rightmost item always gets the same colors.
	n := len(th.Powerline)
	idx := n - visible%n
	adjust := r.adjuster(th)

	out := make([]*i3.Block, 0, 2*visible)
	prevBg := ""
	for _, b := range blocks {
		if b.FullText == "" {
			continue
		}
		this := th.Powerline[(idx+1)%n]
		idx++

		fg, bg := this.Fg, this.Bg
		if b.Background != "" {
			bg = b.Background
		}
		if b.Urgent {
			fg, bg = th.UrgentFg, th.UrgentBg
		}

		sep := &i3.Block{
			FullText:            th.PowerlineSeparator,
			Color:               bg,
			Background:          prevBg,
			Instance:            b.Instance,
			Separator:           i3.Bool(false),
			SeparatorBlockWidth: i3.Int(0),
			Markup:              i3.MarkupPango,
		}
		sep.Set(KeyPowerlineSep, true)
		out = append(out, sep)

		dim := adjust(bg)
		item := b.Clone()
		text := b.FullText
		if th.Dim != "" {
			text = strings.ReplaceAll(text, th.Dim, dim)
		}
		item.FullText = " " + text + " "
		switch {
		case b.Urgent:
			item.Color = fg
		case theme.SameColor(b.Color, th.Dim):
			item.Color = dim
		case b.Color != "":
		default:
			item.Color = fg
		}
		item.Background = bg
		item.Separator = i3.Bool(false)
		item.SeparatorBlockWidth = i3.Int(0)
		if b.Urgent {
			item.Urgent = false
			item.Set(KeyUrgent, true)
		}
		out = append(out, item)

		prevBg = bg
	}
	return out
}

func (r *Renderer) adjuster(th theme.Theme) func(string) string {
	if r.adjust == nil || r.adjBg != th.Bg || r.adjDim != th.Dim {
		r.adjBg, r.adjDim = th.Bg, th.Dim
		r.adjust = theme.DimAdjuster(th.Bg, th.Dim)
	}
	return r.adjust
}
