package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/daemon"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/items"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/signals"
)

func newSignalsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Print the usable realtime signal offsets",
		Long: `Print the usable realtime signal offsets as JSON.

Offset n in an item's "signal" setting stands for SIGRTMIN+n.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := signals.SignalRange()
			if err != nil {
				return err
			}
			data, err := json.Marshal(rng)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	var pid int
	send := &cobra.Command{
		Use:   "send <offset>",
		Short: "Send SIGRTMIN+offset to a running bar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid offset %q", args[0])
			}
			if pid == 0 {
				configured := ""
				if cfg, err := config.Load(root.configPath); err == nil {
					configured = cfg.Socket
				}
				pid, err = daemon.ReadPID(daemon.PIDPath(ipc.SocketPath(root.socket, configured)))
				if err != nil {
					return fmt.Errorf("%w (is the bar running? use --pid to name it)", err)
				}
			}
			return signals.Send(pid, offset)
		},
	}
	send.Flags().IntVar(&pid, "pid", 0, "Process to signal (default: read from the bar's PID file)")
	send.Flags().StringVarP(&root.configPath, "config", "c", "", "Configuration file to read the socket path from")
	cmd.AddCommand(send)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:       "example [preset]",
			Short:     "Print an example configuration in TOML",
			Long:      "Print an example configuration in TOML. Presets: " + strings.Join(config.PresetNames(), ", ") + ".",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: config.PresetNames(),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.DefaultConfig()
				if len(args) == 1 {
					cfg.Items = config.Preset(args[0])
				}
				data, err := config.EncodeTOML(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "check [path]",
			Short: "Load a configuration and build its items without running them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := ""
				if len(args) == 1 {
					path = args[0]
				}
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				if _, err := cfg.Resolve(); err != nil {
					return fmt.Errorf("theme: %w", err)
				}
				specs, err := items.Build(cfg.Items, nil)
				if err != nil {
					return err
				}
				reg := registry.New(specs)
				if _, err := signals.NewRouter(signalBindings(reg), nil); err != nil {
					return err
				}
				source := cfg.Path
				if source == "" {
					source = "built-in defaults"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items OK\n", source, reg.Len())
				return err
			},
		},
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "bar-pulse %s (%s) built %s\n", version, commit, date)
			return err
		},
	}
}
