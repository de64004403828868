// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"fmt"
	"runtime/debug"
)

// HTTPStatusException is the typed error a handler raises to produce
// a specific wire status, per spec §6: "HTTPStatusException(status,
// message[, debugMessage])" maps one-to-one to the wire status.
type HTTPStatusException struct {
	Status       int
	Message      string
	DebugMessage string
	stack        []byte
}

func NewHTTPStatusException(status int, message string, debugMessage ...string) *HTTPStatusException {
	e := &HTTPStatusException{Status: status, Message: message}
	if len(debugMessage) > 0 {
		e.DebugMessage = debugMessage[0]
	}
	return e
}

func (e *HTTPStatusException) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// captureStack records the current goroutine's stack, used only when
// errorStackTraces is set (spec §6/§7).
func (e *HTTPStatusException) captureStack() *HTTPStatusException {
	e.stack = debug.Stack()
	return e
}

// statusClosesConnection lists the statuses after which the connection
// is closed instead of kept alive (see justifiesConnectionClose).
var statusClosesConnection = map[int]bool{
	400: true, // BadRequest
	408: true, // Timeout
	413: true, // Oversize
	431: true, // header fields too large
	497: true, // TLS mismatch
	500: true,
}

// justifiesConnectionClose implements spec §4.3's keep-alive rule:
// "a status that justifies connection close".
func justifiesConnectionClose(status int) bool {
	return statusClosesConnection[status]
}
