//go:build !linux

package signals

import "os"

// SignalRange reports ErrUnsupported outside Linux.
func SignalRange() (Range, error) {
	return Range{Min: 0, Max: -1}, ErrUnsupported
}

// Send reports ErrUnsupported outside Linux.
func Send(pid, offset int) error {
	return ErrUnsupported
}

func realtimeSignals(Range) []os.Signal { return nil }

func offsetOf(Range, os.Signal) (int, bool) { return 0, false }
