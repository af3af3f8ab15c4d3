package click

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/i3"
)

// ErrInputClosed is returned when the click stream ends.
var ErrInputClosed = errors.New("click input closed")

// Reader decodes the click stream the bar writes to our stdin.
type Reader struct {
	r      *bufio.Reader
	logger *slog.Logger
}

// NewReader wraps r. Malformed lines are logged to logger and skipped.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{r: bufio.NewReader(r), logger: logger}
}

// Next returns the next click event. It returns ErrInputClosed at the end
// of the stream and any other read error as is.
func (r *Reader) Next() (i3.ClickEvent, error) {
	for {
		line, err := r.r.ReadBytes('\n')
		if len(line) > 0 {
			ev, ok, perr := i3.ParseClickLine(line)
			if perr != nil {
				r.logger.Warn("ignoring malformed click event", "line", string(line), "error", perr)
			} else if ok {
				return ev, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i3.ClickEvent{}, ErrInputClosed
			}
			return i3.ClickEvent{}, err
		}
	}
}

// Run sends decoded events to out until the stream ends or ctx is done. It
// always returns a non-nil error; ErrInputClosed means the stream ended.
func (r *Reader) Run(ctx context.Context, out chan<- i3.ClickEvent) error {
	for {
		ev, err := r.Next()
		if err != nil {
			return err
		}
		r.logger.Debug("click", "instance", ev.Instance, "button", ev.Button, "modifiers", ev.Modifiers)
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
