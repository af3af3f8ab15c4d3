// Package shell runs user-supplied command lines through sh -c, for click
// actions and script items.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Interpreter is the program command lines are passed to.
const Interpreter = "sh"

// Command builds an exec.Cmd running script with sh -c. The process
// inherits the current environment with env layered on top.
func Command(ctx context.Context, script string, env map[string]string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, Interpreter, "-c", script)
	cmd.Env = shMergeEnv(os.Environ(), env)
	return cmd
}

// ExitError describes a command that ran but failed.
type ExitError struct {
	Script string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("command %q: %v", e.Script, e.Err)
	}
	return fmt.Sprintf("command %q: %v: %s", e.Script, e.Err, msg)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Output runs script and returns its standard output. A non-zero exit is
// reported as an *ExitError carrying standard error.
func Output(ctx context.Context, script string, env map[string]string) ([]byte, error) {
	cmd := Command(ctx, script, env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &ExitError{Script: script, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// Spawn runs script in the background and logs its outcome. It does not
// wait for the command to finish.
func Spawn(script string, env map[string]string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("exec", "command", script)
	go func() {
		if _, err := Output(context.Background(), script, env); err != nil {
			logger.Warn("command failed", "command", script, "error", err)
		}
	}()
}

// shMergeEnv returns base with the variables in extra set, replacing any
// existing definitions. Extra variables are appended in key order.
func shMergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[k]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
