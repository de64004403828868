// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Protocol polymorphism: the request handler is parameterized over an
// abstract "stream" capability (read headers, read body, write
// headers, write body, close). HTTP/1 and HTTP/2 supply two
// implementations; the handler code above the abstraction never
// branches on protocol version (spec §9 Design Notes).
package brisk

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/brisk-http/brisk/httpwire"
)

// responseStream is the write-side half of the abstraction: emit the
// status line and headers (however the protocol frames them), hand
// back the raw body sink the filter chain wraps, and optionally
// support hijacking the connection for switchProtocol.
type responseStream interface {
	WriteHead(status int, phrase string, headers *httpwire.HeaderMap) error
	BodySink() io.Writer
	IsHTTP2() bool
	Hijack() (net.Conn, error)
	WaitClose(timeout time.Duration) error
	// Finalize flushes any buffered body bytes to the transport (spec
	// §4.5: "flush the transport (HTTP/1)"). Called once, after the
	// compressor/chunk encoder have already been closed.
	Finalize() error
}

// http1Stream writes the status line and headers as text directly to
// the connection, per spec §4.4's HTTP/1 path.
type http1Stream struct {
	w    *bufio.Writer
	conn net.Conn
}

func newHTTP1Stream(conn net.Conn, w *bufio.Writer) *http1Stream {
	return &http1Stream{w: w, conn: conn}
}

func (s *http1Stream) WriteHead(status int, phrase string, headers *httpwire.HeaderMap) error {
	if phrase == "" {
		phrase = statusPhrase(status)
	}
	fmt.Fprintf(s.w, "HTTP/1.1 %d %s\r\n", status, phrase)
	headers.Each(func(name, value string) {
		fmt.Fprintf(s.w, "%s: %s\r\n", name, value)
	})
	_, err := s.w.WriteString("\r\n")
	if err == nil {
		err = s.w.Flush()
	}
	return err
}

func (s *http1Stream) BodySink() io.Writer  { return s.w }
func (s *http1Stream) IsHTTP2() bool        { return false }
func (s *http1Stream) Hijack() (net.Conn, error) { return s.conn, nil }

// Finalize flushes whatever body bytes the filter chain wrote into
// s.w's buffer, including the trailing chunked 0\r\n\r\n terminator.
// Without this the body never reaches the wire: WriteHead's own Flush
// only covers the status line and headers written before it.
func (s *http1Stream) Finalize() error { return s.w.Flush() }

var errWaitCloseUnsupported = fmt.Errorf("brisk: connection does not support waiting for close")

func (s *http1Stream) WaitClose(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if timeout <= 0 {
		deadline = time.Time{}
	}
	s.conn.SetReadDeadline(deadline)
	buf := make([]byte, 1)
	for {
		_, err := s.conn.Read(buf)
		if err != nil {
			return nil // peer closed, or deadline reached
		}
	}
}

func statusPhrase(status int) string {
	if p, ok := statusPhrases[status]; ok {
		return p
	}
	return strconv.Itoa(status)
}

var statusPhrases = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	413: "Request Entity Too Large",
	418: "I'm a teapot",
	431: "Request Header Fields Too Large",
	497: "HTTP to HTTPS",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}
