// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

//go:build !unix

package brisk

import "net"

// listenTCPReusePort falls back to a plain listener on platforms
// without SO_REUSEPORT (e.g. Windows), matching gorox's own
// system.SetReusePort no-op fallback for the same platforms.
func listenTCPReusePort(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
