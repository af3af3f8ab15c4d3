// Package registry holds the ordered set of configured bar items. It
// resolves each item's position once at startup, addresses items by index or
// name, and keeps the latest Block and runtime status of every slot.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/click"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/item"
)

// ErrNotFound is returned when a selector matches no item.
var ErrNotFound = errors.New("item not found")

// Spec describes one configured item before its position is resolved.
type Spec struct {
	Name   string
	Kind   string
	Index  *int
	Hidden bool

	// Interval is the refresh period. Zero disables the timer.
	Interval time.Duration
	// Signals are realtime signal offsets that refresh the item.
	Signals []int
	// Actions are commands bound to clicks on the item.
	Actions click.Actions
	// Separator, when set, overrides the separator flag of every Block the
	// item produces.
	Separator *bool

	Item item.Item
}

// Info is the public identity of a slot.
type Info struct {
	Name   string `json:"name"`
	Kind   string `json:"type,omitempty"`
	Index  int    `json:"index"`
	Hidden bool   `json:"hidden"`
}

// Status tracks the runtime state of a single slot. The scheduler updates
// it after every item call.
type Status struct {
	Info
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	LastLatency time.Duration `json:"last_latency"`
}

// Slot is one resolved position in the bar.
type Slot struct {
	Spec
	Index int

	block  *i3.Block
	status Status
}

// Info returns the slot's identity.
func (s *Slot) Info() Info {
	return Info{Name: s.Name, Kind: s.Kind, Index: s.Index, Hidden: s.Hidden}
}

// Registry manages the resolved slots. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	slots []*Slot
}

// New resolves the order of specs and returns a registry holding one slot
// per spec.
func New(specs []Spec) *Registry {
	resolved := Resolve(specs)
	r := &Registry{slots: make([]*Slot, len(resolved))}
	for i, spec := range resolved {
		s := &Slot{Spec: spec, Index: i}
		s.status.Info = s.Info()
		r.slots[i] = s
	}
	return r
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// Slot returns the slot at index.
func (r *Registry) Slot(index int) (*Slot, error) {
	if index < 0 || index >= len(r.slots) {
		return nil, fmt.Errorf("index %d: %w", index, ErrNotFound)
	}
	return r.slots[index], nil
}

// Slots returns all slots in index order.
func (r *Registry) Slots() []*Slot {
	return append([]*Slot(nil), r.slots...)
}

// Find resolves a selector. A selector that parses as an integer addresses
// a slot by index; anything else matches the first slot with that name.
func (r *Registry) Find(selector string) (*Slot, error) {
	if n, err := strconv.Atoi(selector); err == nil {
		return r.Slot(n)
	}
	for _, s := range r.slots {
		if s.Name != "" && s.Name == selector {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", selector, ErrNotFound)
}

// Items returns the identity of every slot, hidden ones included.
func (r *Registry) Items() []Info {
	out := make([]Info, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.Info()
	}
	return out
}

// Store replaces the Block of the slot at index. The stored Block is a copy
// whose name and instance identify the slot. It reports whether the Block
// differs from the previous one.
func (r *Registry) Store(index int, b *i3.Block) (bool, error) {
	s, err := r.Slot(index)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}

	b = b.Clone()
	if s.Name != "" {
		b.Name = s.Name
	}
	b.Instance = strconv.Itoa(s.Index)
	if s.Separator != nil {
		b.Separator = i3.Bool(*s.Separator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s.block != nil && reflect.DeepEqual(s.block, b) {
		return false, nil
	}
	s.block = b
	return true, nil
}

// Block returns the current Block of the slot at index, or nil if the item
// has not produced one yet.
func (r *Registry) Block(index int) *i3.Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.slots) {
		return nil
	}
	return r.slots[index].block
}

// Visible returns the current Blocks of all non-hidden slots in index
// order. Slots that have not produced a Block yet are skipped. The returned
// Blocks must not be modified.
func (r *Registry) Visible() []*i3.Block {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*i3.Block, 0, len(r.slots))
	for _, s := range r.slots {
		if s.Hidden || s.block == nil {
			continue
		}
		out = append(out, s.block)
	}
	return out
}

// Record updates the status of the slot at index after an item call.
func (r *Registry) Record(index int, latency time.Duration, callErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.slots) {
		return
	}
	st := &r.slots[index].status
	st.RunCount++
	st.LastRun = time.Now()
	st.LastLatency = latency
	if callErr != nil {
		st.ErrorCount++
		st.LastError = callErr.Error()
	} else {
		st.LastError = ""
	}
}

// Status returns a copy of the status of the slot at index.
func (r *Registry) Status(index int) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.slots) {
		return Status{}, false
	}
	return r.slots[index].status, true
}

// AllStatus returns a copy of every slot's status in index order.
func (r *Registry) AllStatus() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.status
	}
	return out
}
