package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// ipcOptions are the flags of the ipc command tree.
type ipcOptions struct {
	root *rootOptions
	json bool
}

// client connects to the socket named by --socket, or the default socket.
func (o *ipcOptions) client() *ipc.Client {
	configured := ""
	if o.root.socket == "" {
		// The socket may be set in the config file; a missing or broken
		// config simply means the default path.
		if cfg, err := config.Load(o.root.configPath); err == nil {
			configured = cfg.Socket
		}
	}
	return ipc.NewClient(ipc.SocketPath(o.root.socket, configured))
}

// send issues req and prints the response payload.
func (o *ipcOptions) send(cmd *cobra.Command, req ipc.Request) error {
	resp, err := o.client().Send(req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return printPayload(cmd.OutOrStdout(), resp.Payload, !o.json && isTerminal(cmd.OutOrStdout()))
}

func newIPCCmd(root *rootOptions) *cobra.Command {
	o := &ipcOptions{root: root}

	cmd := &cobra.Command{
		Use:   "ipc",
		Short: "Send a command to a running bar",
		Long: `Send a command to a running bar over its control socket.

Responses are printed as JSON: indented on a terminal, one line otherwise.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&o.json, "json", false, "Always print compact JSON")
	cmd.PersistentFlags().StringVarP(&root.configPath, "config", "c", "",
		"Configuration file to read the socket path from")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "List the bar items",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var infos []registry.Info
				if err := o.client().Call(ipc.Request{Command: ipc.CmdGetBarItems}, &infos); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if o.json || !isTerminal(out) {
					data, err := json.Marshal(infos)
					if err != nil {
						return err
					}
					return printPayload(out, data, false)
				}
				_, err := fmt.Fprintln(out, renderItemTable(infos, theme.Default()))
				return err
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Refresh every item, hidden ones included",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdRefreshAll})
			},
		},
		newIPCClickCmd(o),
		&cobra.Command{
			Use:   "signal <item>",
			Short: "Refresh one item as if its signal had arrived",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdSignal, Target: args[0]})
			},
		},
		&cobra.Command{
			Use:   "custom <item> [event] [args...]",
			Short: "Send a custom event to an item",
			Example: `  bar-pulse ipc custom greeting set "hello world"
  bar-pulse ipc custom greeting get`,
			Args: cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				req := ipc.Request{Command: ipc.CmdCustom, Target: args[0]}
				if len(args) > 1 {
					req.Event = args[1]
					req.Args = args[2:]
				}
				return o.send(cmd, req)
			},
		},
		&cobra.Command{
			Use:   "get-theme",
			Short: "Print the current theme",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdGetTheme})
			},
		},
		&cobra.Command{
			Use:   "set-theme [path] <value>",
			Short: "Change the theme, or one field of it",
			Long: `Change the theme, or one field of it.

The path is a dotted field name such as "red" or "powerline.0.bg"; without a
path the value replaces the whole theme. Values that are not valid JSON are
sent as strings.`,
			Example: `  bar-pulse ipc set-theme red '#ff0000'
  bar-pulse ipc set-theme powerline_enable true`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				req := ipc.Request{Command: ipc.CmdSetTheme}
				value := args[0]
				if len(args) == 2 {
					req.Path, value = args[0], args[1]
				}
				req.Value = jsonValue(value)
				return o.send(cmd, req)
			},
		},
		&cobra.Command{
			Use:   "get-bar",
			Short: "Print the last status line written to the bar",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdGetBar})
			},
		},
		&cobra.Command{
			Use:   "get-config",
			Short: "Print the configuration the bar is running with",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdGetConfig})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print run counts, errors and latencies per item",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdStatus})
			},
		},
		&cobra.Command{
			Use:   "shutdown",
			Short: "Stop the bar",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.send(cmd, ipc.Request{Command: ipc.CmdShutdown})
			},
		},
	)
	return cmd
}

func newIPCClickCmd(o *ipcOptions) *cobra.Command {
	var modifiers []string

	cmd := &cobra.Command{
		Use:   "click <item> [button]",
		Short: "Click an item",
		Long: `Click an item exactly as the bar would. The button is a number or one of
left, middle, right, scroll_up, scroll_down, scroll_left, scroll_right; it
defaults to left.`,
		Example: `  bar-pulse ipc click mem
  bar-pulse ipc click volume scroll_up --modifier Shift`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.Request{Command: ipc.CmdClick, Instance: args[0], Button: i3.ButtonLeft}
			if len(args) == 2 {
				b, err := i3.ParseButton(args[1])
				if err != nil {
					return err
				}
				req.Button = b
			}
			for _, m := range modifiers {
				req.Modifiers = append(req.Modifiers, i3.Modifier(m))
			}
			return o.send(cmd, req)
		},
	}
	cmd.Flags().StringSliceVarP(&modifiers, "modifier", "m", nil,
		"Modifier held during the click (Shift, Control, Mod1 ... Mod5); repeatable")
	return cmd
}

// jsonValue returns s if it is a JSON document, else s encoded as a JSON
// string.
func jsonValue(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return json.RawMessage(strconv.Quote(s))
}

// printPayload writes a response payload on one line, or indented when
// pretty is set. An empty payload prints nothing.
func printPayload(w io.Writer, payload json.RawMessage, pretty bool) error {
	if len(payload) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if pretty {
		if err := json.Indent(&buf, payload, "", "  "); err != nil {
			return err
		}
	} else if err := json.Compact(&buf, payload); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// renderItemTable formats the bar items as a table for terminals.
func renderItemTable(infos []registry.Info, th theme.Theme) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(th.Blue))
	hidden := lipgloss.NewStyle().Foreground(lipgloss.Color(th.Dim))

	nameWidth := len("NAME")
	typeWidth := len("TYPE")
	for _, info := range infos {
		nameWidth = max(nameWidth, lipgloss.Width(info.Name))
		typeWidth = max(typeWidth, lipgloss.Width(info.Kind))
	}
	col := func(s string, width int) string {
		return lipgloss.NewStyle().Width(width + 2).Render(s)
	}

	var b strings.Builder
	b.WriteString(header.Render(col("INDEX", 5) + col("NAME", nameWidth) + col("TYPE", typeWidth) + "HIDDEN"))
	for _, info := range infos {
		row := col(strconv.Itoa(info.Index), 5) + col(info.Name, nameWidth) + col(info.Kind, typeWidth)
		if info.Hidden {
			row = hidden.Render(row + "yes")
		} else {
			row += "no"
		}
		b.WriteByte('\n')
		b.WriteString(row)
	}
	return b.String()
}
