//go:build !linux && !darwin

package xport

import (
	"net"
	"time"
)

// applySockOpts is a no-op on platforms where we don't reach for
// golang.org/x/sys/unix directly; the stdlib read deadline still bounds
// RCVTIMEO-equivalent behavior.
func applySockOpts(conn net.Conn) {}

func setReadDeadline(conn net.Conn, d time.Duration) {
	if d <= 0 {
		_ = conn.SetReadDeadline(time.Time{})
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(d))
}
