// Package scheduler runs the bar. A single loop goroutine owns the item
// registry, the theme and the renderer; timers, realtime signals, clicks
// and control requests reach it as events on channels. Item calls run on
// worker goroutines and report back to the loop, which stores the new
// block and writes a fresh status line.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"vawter.tech/stopper"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/click"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/registry"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/render"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/signals"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// DefaultQueueSize bounds the clicks and custom events waiting on one item.
const DefaultQueueSize = 32

// stopGrace is how long background goroutines get to exit on shutdown.
const stopGrace = 100 * time.Millisecond

// OverlapPolicy decides what happens to a refresh requested while the item
// is already running.
type OverlapPolicy string

const (
	// OverlapSkip drops the new refresh.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapMerge keeps one refresh to run after the current call.
	OverlapMerge OverlapPolicy = "merge"
)

// ParseOverlapPolicy accepts "skip", "merge" or an empty string (skip).
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(s) {
	case "", OverlapSkip:
		return OverlapSkip, nil
	case OverlapMerge:
		return OverlapMerge, nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q (want skip or merge)", s)
	}
}

// Config holds the engine's collaborators. Output is required; everything
// else is optional.
type Config struct {
	// Output receives the bar protocol.
	Output io.Writer
	// Input carries click events from the bar. Nil disables clicks; when
	// set, the end of Input ends Run.
	Input io.Reader
	// SocketPath enables the control socket.
	SocketPath string
	// Router delivers realtime signals. Nil disables signals.
	Router *signals.Router

	Theme     theme.Theme
	Overlap   OverlapPolicy
	QueueSize int
	Header    i3.Header

	// Settings is returned verbatim by get_config.
	Settings any

	Logger *slog.Logger
}

// Engine is the bar's scheduler and executor.
type Engine struct {
	reg      *registry.Registry
	cfg      Config
	logger   *slog.Logger
	writer   *render.Writer
	renderer *render.Renderer
	server   *ipc.Server
	started  time.Time

	// Owned by the loop goroutine.
	theme  theme.Theme
	states []*itemState

	ticks     chan int
	clicks    chan i3.ClickEvent
	inputDone chan error
	requests  chan controlRequest
	results   chan result
	shutdown  chan struct{}
	done      chan struct{}
}

// New creates an engine for the items in reg.
func New(reg *registry.Registry, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Overlap == "" {
		cfg.Overlap = OverlapSkip
	}
	if cfg.Header.Version == 0 {
		cfg.Header = i3.DefaultHeader()
	}
	if cfg.Theme.Name == "" {
		cfg.Theme = theme.Default()
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	e := &Engine{
		reg:       reg,
		cfg:       cfg,
		logger:    cfg.Logger,
		writer:    render.NewWriter(cfg.Output, cfg.Header),
		renderer:  render.New(),
		theme:     cfg.Theme.Clone(),
		states:    make([]*itemState, reg.Len()),
		ticks:     make(chan int),
		clicks:    make(chan i3.ClickEvent),
		inputDone: make(chan error, 1),
		requests:  make(chan controlRequest),
		results:   make(chan result, reg.Len()),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for i := range e.states {
		e.states[i] = &itemState{}
	}
	if cfg.SocketPath != "" {
		e.server = ipc.NewServer(cfg.SocketPath, e, cfg.Logger)
	}
	return e
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run writes the protocol header, refreshes every item once and then
// serves events until ctx is done, the input ends, a shutdown request
// arrives or a fatal error occurs. Failing to bind the control socket or
// to write the status line is fatal.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	e.started = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := e.writer.Start(); err != nil {
		return err
	}

	var serverErr <-chan error
	if e.server != nil {
		if err := e.server.Start(); err != nil {
			return fmt.Errorf("control socket: %w", err)
		}
		defer e.server.Stop()
		serverErr = e.server.Err()
	}

	sctx := stopper.WithContext(ctx)
	defer func() {
		cancel()
		sctx.Stop(stopGrace)
		if err := sctx.Wait(); err != nil {
			e.logger.Debug("background task", "error", err)
		}
	}()

	for _, slot := range e.reg.Slots() {
		if slot.Interval > 0 {
			e.startTicker(sctx, slot.Index, slot.Interval)
		}
	}

	var wake <-chan struct{}
	if r := e.cfg.Router; r != nil {
		wake = r.Wake()
		sctx.Go(func(*stopper.Context) error {
			return r.Run(ctx)
		})
	}

	// A blocked read on the bar's input cannot be interrupted, so the
	// reader runs outside the stopper and is abandoned on shutdown.
	if e.cfg.Input != nil {
		reader := click.NewReader(e.cfg.Input, e.logger)
		go func() {
			e.inputDone <- reader.Run(ctx, e.clicks)
		}()
	}

	for i := 0; i < e.reg.Len(); i++ {
		e.submit(ctx, i, job{kind: jobRefresh, trigger: item.TriggerInitial})
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			e.logger.Info("stopping", "reason", ctx.Err())
			return nil

		case <-e.shutdown:
			e.logger.Info("stopping", "reason", "shutdown requested")
			return nil

		case err := <-serverErr:
			return fmt.Errorf("control socket: %w", err)

		case err := <-e.inputDone:
			if errors.Is(err, click.ErrInputClosed) {
				e.logger.Info("stopping", "reason", "input closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read clicks: %w", err)

		case idx := <-e.ticks:
			e.submit(ctx, idx, job{kind: jobRefresh, trigger: item.TriggerTimer})

		case <-wake:
			for _, off := range e.cfg.Router.Drain() {
				for _, idx := range e.cfg.Router.Targets(off) {
					e.submit(ctx, idx, job{kind: jobRefresh, trigger: item.TriggerSignal})
				}
			}

		case ev := <-e.clicks:
			e.dispatchClick(ctx, ev)

		case req := <-e.requests:
			err = e.handleRequest(ctx, req)

		case res := <-e.results:
			err = e.finish(ctx, res)
		}
		if err != nil {
			return err
		}
	}
}

func (e *Engine) startTicker(sctx *stopper.Context, index int, interval time.Duration) {
	sctx.Go(func(sctx *stopper.Context) error {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-t.C:
				select {
				case e.ticks <- index:
				case <-sctx.Stopping():
					return nil
				}
			}
		}
	})
}

// dispatchClick routes a click to its item. Configured actions take
// precedence: when any match, they run and the item is not called.
func (e *Engine) dispatchClick(ctx context.Context, ev i3.ClickEvent) {
	slot, err := e.reg.Find(ev.Instance)
	if err != nil {
		e.logger.Debug("click for unknown instance", "instance", ev.Instance)
		return
	}
	if ev.Name == "" {
		ev.Name = slot.Name
	}
	if cmds := slot.Actions.Match(ev); len(cmds) > 0 {
		env := ev.Env()
		for _, cmd := range cmds {
			spawn(cmd, env, e.logger)
		}
		return
	}
	e.submit(ctx, slot.Index, job{kind: jobClick, trigger: item.TriggerClick, ev: ev})
}

// render writes the current state of the bar.
func (e *Engine) render() error {
	blocks := e.renderer.Render(e.reg.Visible(), e.theme)
	return e.writer.Write(blocks)
}
