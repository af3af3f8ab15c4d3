package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
)

// Writer emits the bar protocol on an output stream: the header and the
// opening bracket once, then one array per update. Every update is fully
// serialized before a single Write, so the bar never sees a partial line.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	header  i3.Header
	started bool
	last    []byte
}

// NewWriter returns a Writer that announces header before the first update.
func NewWriter(w io.Writer, header i3.Header) *Writer {
	return &Writer{w: w, header: header}
}

// Start writes the header if it has not been written yet.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.start()
}

func (w *Writer) start() error {
	if w.started {
		return nil
	}
	pre, err := w.header.Preamble()
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := w.w.Write(pre); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.started = true
	return nil
}

// Write emits one update. An error means the bar is gone.
func (w *Writer) Write(blocks []*i3.Block) error {
	if blocks == nil {
		blocks = []*i3.Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode status line: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.start(); err != nil {
		return err
	}
	w.last = data
	line := make([]byte, 0, len(data)+2)
	line = append(line, data...)
	line = append(line, ',', '\n')
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("write status line: %w", err)
	}
	return nil
}

// Last returns the JSON array of the most recent update, or nil.
func (w *Writer) Last() json.RawMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
