package item

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
)

// MockItem implements Item for testing. It returns a configurable block and
// counts calls per capability.
type MockItem struct {
	mu    sync.RWMutex
	block *i3.Block
	err   error

	refreshCount atomic.Int64
	clickCount   atomic.Int64
	customCount  atomic.Int64

	lastMu    sync.Mutex
	lastClick i3.ClickEvent
	lastArgs  []string
	lastEnv   Env

	// RefreshFunc, if set, overrides the default Refresh behavior. Tests use
	// it to block a refresh or return different data on each call.
	RefreshFunc func(ctx context.Context, env Env) (*i3.Block, error)

	// ClickFunc, if set, overrides the default Click behavior, which is to
	// return the configured block.
	ClickFunc func(ctx context.Context, env Env, ev i3.ClickEvent) (*i3.Block, error)

	// CustomFunc, if set, overrides the default Custom behavior, which is to
	// echo args back as the payload.
	CustomFunc func(ctx context.Context, env Env, args []string) (Reply, error)
}

// MockItemOption configures a MockItem.
type MockItemOption func(*MockItem)

// WithText sets the full_text of the block returned by Refresh.
func WithText(text string) MockItemOption {
	return func(m *MockItem) { m.block = i3.NewBlock(text) }
}

// WithBlock sets the block returned by Refresh.
func WithBlock(b *i3.Block) MockItemOption {
	return func(m *MockItem) { m.block = b }
}

// WithError sets the error returned by Refresh.
func WithError(err error) MockItemOption {
	return func(m *MockItem) { m.err = err }
}

// WithRefreshFunc sets a custom function for Refresh.
func WithRefreshFunc(fn func(ctx context.Context, env Env) (*i3.Block, error)) MockItemOption {
	return func(m *MockItem) { m.RefreshFunc = fn }
}

// WithClickFunc sets a custom function for Click.
func WithClickFunc(fn func(ctx context.Context, env Env, ev i3.ClickEvent) (*i3.Block, error)) MockItemOption {
	return func(m *MockItem) { m.ClickFunc = fn }
}

// NewMockItem creates a mock item with the given options. Without options
// Refresh returns a block with empty text.
func NewMockItem(opts ...MockItemOption) *MockItem {
	m := &MockItem{block: i3.NewBlock("")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetText updates the text returned by Refresh (thread-safe).
func (m *MockItem) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = i3.NewBlock(text)
}

// SetError updates the error returned by Refresh (thread-safe).
func (m *MockItem) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Refresh increments the refresh counter and returns a copy of the
// configured block, or delegates to RefreshFunc if set.
func (m *MockItem) Refresh(ctx context.Context, env Env) (*i3.Block, error) {
	m.refreshCount.Add(1)
	m.recordEnv(env)

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, env)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.block.Clone(), nil
}

// Click increments the click counter and records the event.
func (m *MockItem) Click(ctx context.Context, env Env, ev i3.ClickEvent) (*i3.Block, error) {
	m.clickCount.Add(1)
	m.recordEnv(env)
	m.lastMu.Lock()
	m.lastClick = ev
	m.lastMu.Unlock()

	if m.ClickFunc != nil {
		return m.ClickFunc(ctx, env, ev)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.block.Clone(), m.err
}

// Custom increments the custom counter and echoes args as the payload.
func (m *MockItem) Custom(ctx context.Context, env Env, args []string) (Reply, error) {
	m.customCount.Add(1)
	m.recordEnv(env)
	m.lastMu.Lock()
	m.lastArgs = append([]string(nil), args...)
	m.lastMu.Unlock()

	if m.CustomFunc != nil {
		return m.CustomFunc(ctx, env, args)
	}
	return Reply{Payload: args}, nil
}

func (m *MockItem) recordEnv(env Env) {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	m.lastEnv = env
}

// RefreshCount returns how many times Refresh has been called.
func (m *MockItem) RefreshCount() int64 { return m.refreshCount.Load() }

// ClickCount returns how many times Click has been called.
func (m *MockItem) ClickCount() int64 { return m.clickCount.Load() }

// CustomCount returns how many times Custom has been called.
func (m *MockItem) CustomCount() int64 { return m.customCount.Load() }

// LastClick returns the most recent click event.
func (m *MockItem) LastClick() i3.ClickEvent {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	return m.lastClick
}

// LastArgs returns the arguments of the most recent custom event.
func (m *MockItem) LastArgs() []string {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	return m.lastArgs
}

// LastEnv returns the Env of the most recent call.
func (m *MockItem) LastEnv() Env {
	m.lastMu.Lock()
	defer m.lastMu.Unlock()
	return m.lastEnv
}
