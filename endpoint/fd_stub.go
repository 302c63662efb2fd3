// File: endpoint/fd_stub.go
//
// Author: rmstar
// License: Apache-2.0

//go:build !linux

package endpoint

import "net"

func connFD(net.Conn) int { return 0 }

func setNoDelay(net.Conn) error { return nil }
