// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

// acceptLoop runs for the lifetime of one ListenInfo, matching the
// teacher's per-gate serveTCP/serveTLS runners (hemi/web_httpx_server.go):
// accept, hand the connection to its own driver goroutine, repeat
// until the listener is closed.
func acceptLoop(info *ListenInfo) {
	for {
		conn, err := info.Listener.Accept()
		if err != nil {
			return // listener closed by closeListenerIfUnused
		}
		go driveConnection(conn, info)
	}
}
