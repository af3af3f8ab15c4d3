package ipc

import (
	"os"
	"path/filepath"
	"strconv"
)

// SocketName is the file name used under XDG_RUNTIME_DIR.
const SocketName = "bar-pulse.sock"

// SocketPath picks the control socket path. Search order:
//  1. explicit, usually from the command line
//  2. configured, from the config file
//  3. $I3SOCK or $SWAYSOCK with ".bar-pulse" appended, so each window
//     manager instance gets its own bar socket
//  4. $XDG_RUNTIME_DIR/bar-pulse.sock
//  5. /tmp/bar-pulse-<uid>.sock
func SocketPath(explicit, configured string) string {
	if explicit != "" {
		return explicit
	}
	if configured != "" {
		return configured
	}
	for _, env := range []string{"I3SOCK", "SWAYSOCK"} {
		if v := os.Getenv(env); v != "" {
			return v + ".bar-pulse"
		}
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, SocketName)
	}
	return filepath.Join(os.TempDir(), "bar-pulse-"+strconv.Itoa(os.Getuid())+".sock")
}
