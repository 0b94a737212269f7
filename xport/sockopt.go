//go:build linux || darwin

package xport

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// applySockOpts sets LINGER=0 directly through the raw file descriptor,
// the way this module's lower layers reach for golang.org/x/sys rather
// than net's convenience wrappers whenever a syscall-level struct
// (here unix.Linger) needs to be shaped exactly, not inferred.
func applySockOpts(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0})
	})
}

func setReadDeadline(conn net.Conn, d time.Duration) {
	if d <= 0 {
		_ = conn.SetReadDeadline(time.Time{})
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(d))
}
