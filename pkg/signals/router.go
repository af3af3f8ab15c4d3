// Package signals routes realtime signals to the bar items that listen for
// them.
//
// Items declare signal offsets; offset n stands for SIGRTMIN+n. Delivery
// never runs item code: the signal goroutine only marks the offset pending
// and wakes the scheduler, which drains the pending set on its own
// goroutine. Repeated deliveries of one signal before the scheduler drains
// them collapse into one.
package signals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
)

// ErrUnsupported is returned on platforms without realtime signals.
var ErrUnsupported = errors.New("realtime signals are not supported on this platform")

// Range describes the usable realtime signals. Offsets run from Min to Max;
// offset n is delivered as signal SigRTMin+n.
type Range struct {
	Min      int `json:"min"`
	Max      int `json:"max"`
	SigRTMin int `json:"sigrtmin"`
	SigRTMax int `json:"sigrtmax"`
}

// Contains reports whether offset is usable.
func (r Range) Contains(offset int) bool {
	return offset >= r.Min && offset <= r.Max
}

// Router maps signal offsets to item indices.
type Router struct {
	rng     Range
	targets map[int][]int
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[int]bool
	wake    chan struct{}
}

// NewRouter builds the routing table from each item's declared offsets,
// keyed by item index. Offsets outside the platform range are rejected.
func NewRouter(bindings map[int][]int, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rng, err := SignalRange()
	if err != nil && len(bindings) > 0 {
		return nil, err
	}

	r := &Router{
		rng:     rng,
		targets: make(map[int][]int),
		logger:  logger,
		pending: make(map[int]bool),
		wake:    make(chan struct{}, 1),
	}

	indices := make([]int, 0, len(bindings))
	for idx := range bindings {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		for _, off := range bindings[idx] {
			if !rng.Contains(off) {
				return nil, fmt.Errorf("item %d: invalid signal %d, valid signals range from %d up to %d inclusive", idx, off, rng.Min, rng.Max)
			}
			if !containsInt(r.targets[off], idx) {
				r.targets[off] = append(r.targets[off], idx)
			}
			logger.Debug("mapping signal", "offset", off, "signal", rng.SigRTMin+off, "item", idx)
		}
	}
	return r, nil
}

// Targets returns the item indices bound to offset, in index order.
func (r *Router) Targets(offset int) []int {
	return append([]int(nil), r.targets[offset]...)
}

// Offsets returns every bound offset in ascending order.
func (r *Router) Offsets() []int {
	out := make([]int, 0, len(r.targets))
	for off := range r.targets {
		out = append(out, off)
	}
	sort.Ints(out)
	return out
}

// Deliver marks offset pending and wakes the scheduler. It is safe to call
// from any goroutine.
func (r *Router) Deliver(offset int) {
	r.mu.Lock()
	r.pending[offset] = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled after Deliver. Call Drain when it fires.
func (r *Router) Wake() <-chan struct{} {
	return r.wake
}

// Drain returns and clears the pending offsets in ascending order.
func (r *Router) Drain() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.pending))
	for off := range r.pending {
		out = append(out, off)
	}
	clear(r.pending)
	sort.Ints(out)
	return out
}

// Run subscribes to every realtime signal and delivers them until ctx is
// done. Signals with no bound item are logged and dropped; subscribing to
// them anyway keeps a stray signal from terminating the process.
func (r *Router) Run(ctx context.Context) error {
	sigs := realtimeSignals(r.rng)
	if len(sigs) == 0 {
		<-ctx.Done()
		return nil
	}

	ch := make(chan os.Signal, 32)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			off, ok := offsetOf(r.rng, sig)
			if !ok {
				continue
			}
			if len(r.targets[off]) == 0 {
				r.logger.Warn("received signal but no item is expecting it", "signal", fmt.Sprintf("SIGRTMIN+%d", off))
				continue
			}
			r.Deliver(off)
		}
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
