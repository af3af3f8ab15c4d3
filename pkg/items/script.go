package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/shell"
)

// Script output formats.
const (
	OutputSimple = "simple"
	OutputJSON   = "json"
)

type scriptOptions struct {
	Command string    `json:"command"`
	Output  string    `json:"output"`
	Markup  i3.Markup `json:"markup"`
}

// Script runs a shell command and shows what it prints.
//
// The command sees I3_SIGNAL=true after a signal or refresh request, and
// the I3_* click variables after a click. The variables persist until the
// next signal or click replaces them.
type Script struct {
	item.Base
	command string
	output  string
	markup  i3.Markup
	env     map[string]string
	logger  *slog.Logger
}

// NewScript returns a script item. output is OutputSimple or OutputJSON.
func NewScript(command, output string, markup i3.Markup, logger *slog.Logger) (*Script, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("script: command is required")
	}
	switch output {
	case "":
		output = OutputSimple
	case OutputSimple, OutputJSON:
	default:
		return nil, fmt.Errorf("script: unknown output format %q", output)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Script{
		command: command,
		output:  output,
		markup:  markup,
		env:     map[string]string{},
		logger:  logger,
	}, nil
}

func newScript(ic config.ItemConfig, logger *slog.Logger) (item.Item, error) {
	var opts scriptOptions
	if err := ic.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return NewScript(opts.Command, opts.Output, opts.Markup, logger)
}

// Refresh runs the command.
func (s *Script) Refresh(ctx context.Context, env item.Env) (*i3.Block, error) {
	if env.Signalled() {
		s.env["I3_SIGNAL"] = "true"
	}
	return s.run(ctx, env)
}

// Click runs the command with the click described in its environment.
func (s *Script) Click(ctx context.Context, env item.Env, ev i3.ClickEvent) (*i3.Block, error) {
	s.env = ev.Env()
	return s.run(ctx, env)
}

func (s *Script) run(ctx context.Context, env item.Env) (*i3.Block, error) {
	out, err := shell.Output(ctx, s.command, s.env)
	if err != nil {
		var exitErr *shell.ExitError
		if !errors.As(err, &exitErr) || len(strings.TrimSpace(string(out))) == 0 {
			return nil, err
		}
		s.logger.Debug("script exited with error", "error", err)
	}
	text := strings.TrimSpace(string(out))

	var b *i3.Block
	switch s.output {
	case OutputJSON:
		b = &i3.Block{}
		if err := json.Unmarshal([]byte(text), b); err != nil {
			s.logger.Warn("failed to parse script json output", "error", err)
			b = i3.NewBlock("ERROR")
			b.Background = env.Theme.Red
		}
	default:
		b = i3.NewBlock(ansi.Strip(text))
	}
	if s.markup != "" {
		b.Markup = s.markup
	}
	return b, nil
}
