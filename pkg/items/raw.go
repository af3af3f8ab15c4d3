package items

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
)

// Raw shows a fixed block taken from its configuration. The text can be
// replaced at runtime with the custom event "set".
type Raw struct {
	item.Base
	block *i3.Block
}

// NewRaw returns an item showing b.
func NewRaw(b *i3.Block) *Raw {
	if b == nil {
		b = i3.NewBlock("")
	}
	return &Raw{block: b.Clone()}
}

func newRaw(ic config.ItemConfig, _ *slog.Logger) (item.Item, error) {
	var b i3.Block
	if err := ic.DecodeOptions(&b); err != nil {
		return nil, err
	}
	return NewRaw(&b), nil
}

// Refresh returns the current block.
func (r *Raw) Refresh(context.Context, item.Env) (*i3.Block, error) {
	return r.block.Clone(), nil
}

// Custom handles "set <text>" and "get".
func (r *Raw) Custom(_ context.Context, _ item.Env, args []string) (item.Reply, error) {
	if len(args) == 0 {
		return item.Reply{}, rawUsage()
	}
	switch args[0] {
	case "set":
		if len(args) < 2 {
			return item.Reply{}, rawUsage()
		}
		r.block.FullText = strings.Join(args[1:], " ")
		return item.Reply{Payload: r.block.Clone(), Block: r.block.Clone()}, nil
	case "get":
		return item.Reply{Payload: r.block.Clone()}, nil
	default:
		return item.Reply{}, fmt.Errorf("unknown command %q: %w", args[0], rawUsage())
	}
}

func rawUsage() error {
	return item.Usage(
		"set <text>   replace the text",
		"get          print the current block",
	)
}
