package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/ipc"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/shell"
)

// spawn runs click action commands.
var spawn = shell.Spawn

type jobKind int

const (
	jobRefresh jobKind = iota
	jobClick
	jobCustom
)

func (k jobKind) String() string {
	switch k {
	case jobRefresh:
		return "refresh"
	case jobClick:
		return "click"
	case jobCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// job is one item call waiting to run.
type job struct {
	kind    jobKind
	trigger item.Trigger
	ev      i3.ClickEvent
	args    []string
	// reply receives the response to a custom event.
	reply chan<- ipc.Response
}

// result is a finished item call.
type result struct {
	index   int
	job     job
	block   *i3.Block
	reply   item.Reply
	err     error
	latency time.Duration
}

// itemState tracks the calls of one item. At most one call runs at a time;
// clicks and custom events wait in queue, and at most one refresh waits in
// pending.
type itemState struct {
	busy    bool
	pending *job
	queue   []job
}

// submit starts j on the item at index, or parks it if the item is busy.
func (e *Engine) submit(ctx context.Context, index int, j job) {
	st := e.states[index]
	if !st.busy {
		e.start(ctx, index, j)
		return
	}

	if j.kind == jobRefresh {
		if e.cfg.Overlap == OverlapMerge && st.pending == nil {
			st.pending = &j
			return
		}
		e.logger.Debug("item busy, dropping refresh", "item", index, "trigger", j.trigger)
		return
	}

	if len(st.queue) >= e.cfg.QueueSize {
		e.logger.Warn("item queue full, dropping event", "item", index, "event", j.kind)
		if j.reply != nil {
			j.reply <- ipc.Fail(ipc.KindBusy, "item %d has too many pending events", index)
		}
		return
	}
	st.queue = append(st.queue, j)
}

// start runs j on a worker goroutine.
func (e *Engine) start(ctx context.Context, index int, j job) {
	slot, err := e.reg.Slot(index)
	if err != nil {
		return
	}
	e.states[index].busy = true

	env := item.Env{
		Trigger: j.trigger,
		Name:    slot.Name,
		Index:   index,
		Theme:   e.theme.Clone(),
	}
	it := slot.Item

	go func() {
		res := result{index: index, job: j}
		begin := time.Now()
		defer func() {
			if r := recover(); r != nil {
				res.block = nil
				res.err = fmt.Errorf("panic in item: %v\n%s", r, debug.Stack())
			}
			res.latency = time.Since(begin)
			e.results <- res
		}()

		switch j.kind {
		case jobRefresh:
			res.block, res.err = it.Refresh(ctx, env)
		case jobClick:
			res.block, res.err = it.Click(ctx, env, j.ev)
		case jobCustom:
			res.reply, res.err = it.Custom(ctx, env, j.args)
			res.block = res.reply.Block
		}
	}()
}

// finish records a completed call, updates the bar and starts the item's
// next waiting call.
func (e *Engine) finish(ctx context.Context, res result) error {
	st := e.states[res.index]
	st.busy = false

	log := e.logger.With("item", res.index, "call", res.job.kind, "trigger", res.job.trigger)
	e.reg.Record(res.index, res.latency, res.err)

	var next *job
	switch {
	case res.job.kind == jobClick && errors.Is(res.err, item.ErrUnsupported):
		next = &job{kind: jobRefresh, trigger: item.TriggerClick}
		res.err = nil
	case res.err != nil:
		log.Warn("item call failed", "error", res.err)
	}

	if res.job.reply != nil {
		res.job.reply <- customResponse(res)
	}

	if res.err == nil && res.block != nil {
		changed, err := e.reg.Store(res.index, res.block)
		if err != nil {
			log.Error("store block", "error", err)
		} else if changed {
			if err := e.render(); err != nil {
				return err
			}
		}
	}

	switch {
	case next != nil:
		e.start(ctx, res.index, *next)
	case len(st.queue) > 0:
		j := st.queue[0]
		st.queue = st.queue[1:]
		e.start(ctx, res.index, j)
	case st.pending != nil:
		j := *st.pending
		st.pending = nil
		e.start(ctx, res.index, j)
	}
	return nil
}

func customResponse(res result) ipc.Response {
	var usage *item.UsageError
	switch {
	case res.err == nil:
		return ipc.OK(res.reply.Payload)
	case errors.Is(res.err, item.ErrUnsupported):
		return ipc.Fail(ipc.KindUnsupported, "item %d does not handle custom events", res.index)
	case errors.As(res.err, &usage):
		return ipc.Fail(ipc.KindBadRequest, "%s", usage.Error())
	default:
		return ipc.Fail(ipc.KindItemError, "%v", res.err)
	}
}
