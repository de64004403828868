// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

//go:build unix

package brisk

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenTCPReusePort opens a SO_REUSEPORT-enabled TCP listener,
// adapted from gorox's hemi/library/system.SetReusePort (a hand-rolled
// syscall wrapper the teacher carries because it has no third-party
// deps by policy). Here it is rebuilt on top of golang.org/x/sys/unix,
// the dependency already pulled in transitively by golang.org/x/net
// (SPEC_FULL.md §3), instead of hand-writing the platform syscall
// numbers the teacher's own library/system package hard-codes.
func listenTCPReusePort(addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}
	return lc.Listen(context.Background(), "tcp", addr)
}
