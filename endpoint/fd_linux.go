// File: endpoint/fd_linux.go
//
// Author: rmstar
// License: Apache-2.0

//go:build linux

package endpoint

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// connFD extracts the underlying descriptor, or 0 when the connection
// does not expose one.
func connFD(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0
	}
	fd := 0
	_ = raw.Control(func(f uintptr) { fd = int(f) })
	return fd
}

// setNoDelay disables Nagle batching on TCP sockets.
func setNoDelay(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	cerr := raw.Control(func(f uintptr) {
		serr = unix.SetsockoptInt(int(f), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if cerr != nil {
		return cerr
	}
	return serr
}
