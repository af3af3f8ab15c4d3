//go:build linux

package signals

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// The C library reserves the first two kernel realtime signals for its own
// threads, so SIGRTMIN as seen by programs is 34.
const (
	sigRTMin = 34
	sigRTMax = 64
)

// SignalRange reports the realtime signals usable on this machine.
func SignalRange() (Range, error) {
	return Range{Min: 0, Max: sigRTMax - sigRTMin, SigRTMin: sigRTMin, SigRTMax: sigRTMax}, nil
}

// Send delivers SIGRTMIN+offset to the process pid.
func Send(pid, offset int) error {
	rng, _ := SignalRange()
	if !rng.Contains(offset) {
		return fmt.Errorf("invalid signal %d, valid signals range from %d up to %d inclusive", offset, rng.Min, rng.Max)
	}
	if err := unix.Kill(pid, unix.Signal(rng.SigRTMin+offset)); err != nil {
		return fmt.Errorf("send SIGRTMIN+%d to %d: %w", offset, pid, err)
	}
	return nil
}

func realtimeSignals(rng Range) []os.Signal {
	out := make([]os.Signal, 0, rng.SigRTMax-rng.SigRTMin+1)
	for n := rng.SigRTMin; n <= rng.SigRTMax; n++ {
		out = append(out, unix.Signal(n))
	}
	return out
}

func offsetOf(rng Range, sig os.Signal) (int, bool) {
	s, ok := sig.(unix.Signal)
	if !ok {
		return 0, false
	}
	off := int(s) - rng.SigRTMin
	return off, rng.Contains(off)
}
