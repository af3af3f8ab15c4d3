// bar-pulse is a status line generator for i3bar and swaybar.
//
// It runs a set of configurable bar items, refreshes them on timers,
// realtime signals, clicks and control requests, and writes the i3bar
// protocol to stdout. A control socket lets other processes click, refresh
// and reconfigure the running bar.
//
// Usage:
//
//	bar-pulse [flags]              run the bar (from i3/sway's status_command)
//	bar-pulse ipc <command>        talk to a running bar
//	bar-pulse signals [send N]     show or send realtime signals
//	bar-pulse config example       print an example configuration
//	bar-pulse version              print version and exit
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// rootOptions are the flags shared by the bar and the client commands.
type rootOptions struct {
	configPath string
	socket     string
	logLevel   string
	logFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bar-pulse",
		Short: "Status line generator for i3bar and swaybar",
		Long: `Status line generator for i3bar and swaybar.

Without a subcommand, bar-pulse runs the bar: it writes the i3bar protocol to
stdout and reads click events from stdin. Point i3 or sway at it with

    bar {
        status_command bar-pulse
    }
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBar(cmd.Context(), o, cmd.OutOrStdout(), cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&o.configPath, "config", "c", "",
		"Path to the configuration file (default: $XDG_CONFIG_HOME/bar-pulse/config.toml)")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the config)")
	cmd.Flags().StringVar(&o.logFile, "log-file", "",
		"Also write logs to this file")
	cmd.PersistentFlags().StringVarP(&o.socket, "socket", "s", "",
		"Path of the control socket")

	cmd.AddCommand(
		newIPCCmd(o),
		newSignalsCmd(o),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// newLogger builds the process logger. Logs go to stderr, and also to
// logFile when one is given; stdout belongs to the bar protocol.
func newLogger(stderr io.Writer, logFile, level string) (*slog.Logger, func(), error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	w := stderr
	closeFn := func() {}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(stderr, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	return logger, closeFn, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", s)
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
