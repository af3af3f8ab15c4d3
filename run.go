package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/daemon"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/items"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/scheduler"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/signals"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// runBar loads the configuration, builds the items and runs the bar until
// ctx is cancelled, stdin closes, or a shutdown is requested.
func runBar(ctx context.Context, o *rootOptions, stdout io.Writer, stdin io.Reader, stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, closeLog, err := newLogger(stderr, o.logFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	if isTerminal(stdout) {
		logger.Warn("stdout is a terminal; bar-pulse is meant to be started by i3bar or swaybar")
	}

	th, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	overlap, err := scheduler.ParseOverlapPolicy(cfg.Overlap)
	if err != nil {
		return err
	}

	specs, err := items.Build(cfg.Items, logger)
	if err != nil {
		return fmt.Errorf("items: %w", err)
	}
	reg := registry.New(specs)

	router, err := signals.NewRouter(signalBindings(reg), logger)
	if err != nil {
		return fmt.Errorf("signals: %w", err)
	}

	socket := ipc.SocketPath(o.socket, cfg.Socket)
	if release, err := daemon.AcquirePID(daemon.PIDPath(socket)); err != nil {
		logger.Warn("PID file not written; 'bar-pulse signals send' will need --pid", "error", err)
	} else {
		defer func() {
			if err := release(); err != nil {
				logger.Warn("remove PID file", "error", err)
			}
		}()
	}

	eng := scheduler.New(reg, scheduler.Config{
		Output:     stdout,
		Input:      stdin,
		SocketPath: socket,
		Router:     router,
		Theme:      th,
		Overlap:    overlap,
		Settings:   cfg,
		Logger:     logger,
	})

	logger.Info("starting bar-pulse",
		"version", version,
		"config", cfg.Path,
		"items", reg.Len(),
		"theme", th.Name,
		"socket", socket,
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if file := cfg.ThemeFile(); file != "" {
		go watchTheme(ctx, file, eng, logger)
	}

	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bar stopped", "error", err)
		return err
	}
	logger.Info("bar stopped")
	return nil
}

// signalBindings maps each item index to the signal offsets it listens on.
func signalBindings(reg *registry.Registry) map[int][]int {
	bindings := make(map[int][]int)
	for _, s := range reg.Slots() {
		if len(s.Signals) > 0 {
			bindings[s.Index] = s.Signals
		}
	}
	return bindings
}

// watchTheme applies every change of the theme file to the running bar.
func watchTheme(ctx context.Context, file string, eng *scheduler.Engine, logger *slog.Logger) {
	err := theme.Watch(ctx, file, logger, func(th theme.Theme) {
		data, err := json.Marshal(th)
		if err != nil {
			logger.Warn("encode reloaded theme", "error", err)
			return
		}
		if err := eng.Handle(ctx, ipc.Request{Command: ipc.CmdSetTheme, Value: data}).Err(); err != nil {
			logger.Warn("apply reloaded theme", "error", err)
		}
	})
	if err != nil {
		logger.Warn("theme file is not watched", "path", file, "error", err)
	}
}
