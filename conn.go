// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Connection driver: per-connection task. Performs initial
// wait-for-data, TLS handshake, HTTP/2 preface sniff, dispatches to
// either the HTTP/2 session or the HTTP/1 request loop; manages
// keep-alive (spec §2.6, §4.2).
package brisk

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

const http2Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// bufConn lets every downstream consumer — our own HTTP/1 parser, the
// preface sniffer, and golang.org/x/net/http2's framing reader — read
// through the same *bufio.Reader, so bytes peeked (but not consumed)
// at one stage remain visible to the next. Grounded in gorox's
// pattern of handing the same underlying connection through successive
// protocol stages (hemi/web_httpx_server.go dispatches tcpConn
// straight into getServer1Conn/getServer2Conn without re-wrapping it).
type bufConn struct {
	net.Conn
	br *bufio.Reader
}

func newBufConn(c net.Conn) *bufConn {
	return &bufConn{Conn: c, br: bufio.NewReader(c)}
}

func (b *bufConn) Read(p []byte) (int, error) { return b.br.Read(p) }
func (b *bufConn) Peek(n int) ([]byte, error) { return b.br.Peek(n) }

// driveConnection is the per-connection task spawned by acceptLoop.
func driveConnection(raw net.Conn, info *ListenInfo) {
	defer func() {
		if r := recover(); r != nil {
			raw.Close()
		}
	}()

	bc := newBufConn(raw)

	// Step 1: wait up to 10s for first bytes (spec §4.2 step 1).
	raw.SetReadDeadline(time.Now().Add(10 * time.Second))
	if _, err := bc.Peek(1); err != nil {
		write408(raw)
		raw.Close()
		return
	}
	raw.SetReadDeadline(time.Time{})

	var transport net.Conn = bc
	var negotiatedALPN string
	isTLS := info.TLSConfig != nil

	if isTLS {
		// Step 2: peek the TLS record header; reject plaintext hitting a TLS port.
		header, err := bc.Peek(6)
		if err != nil || !looksLikeTLSClientHello(header) {
			write497(raw)
			raw.Close()
			return
		}
		tlsConn := tls.Server(bc, info.TLSConfig)
		tlsConn.SetDeadline(time.Now().Add(10 * time.Second))
		if err := tlsConn.Handshake(); err != nil {
			tlsConn.Close()
			return
		}
		tlsConn.SetDeadline(time.Time{})
		negotiatedALPN = tlsConn.ConnectionState().NegotiatedProtocol
		transport = tlsConn
	}

	// Step 3: resolve the listen-level context.
	listenCtx := resolveByAddr(info.Address, info.Port)
	if listenCtx == nil {
		transport.Close()
		return
	}

	// Step 4: HTTP/2 entry.
	if isTLS {
		if strings.HasPrefix(negotiatedALPN, "h2") {
			serveHTTP2Session(transport, listenCtx)
			transport.Close()
			return
		}
	} else if !listenCtx.Settings.disablesHTTP2() {
		preface, err := bc.Peek(len(http2Preface))
		if err == nil && string(preface) == http2Preface {
			serveHTTP2Session(transport, listenCtx)
			transport.Close()
			return
		}
	}

	// Step 5: HTTP/1 loop with keep-alive.
	reader := bufio.NewReader(transport)
	if bc2, ok := transport.(*bufConn); ok {
		reader = bc2.br
	}
	runHTTP1Loop(transport, reader, listenCtx, info, isTLS)
	transport.Close()
}

func looksLikeTLSClientHello(header []byte) bool {
	return len(header) == 6 && header[0] == 0x16 && header[1] == 0x03 && header[5] == 0x01
}

// runHTTP1Loop repeatedly serves one request per iteration until
// keep-alive ends, per spec §4.2 step 5/§4.6.
func runHTTP1Loop(transport net.Conn, reader *bufio.Reader, listenCtx *ServerContext, info *ListenInfo, isTLS bool) {
	for {
		outcome := serveHTTP1Request(transport, reader, listenCtx, info, isTLS)
		switch outcome {
		case outcomeClose:
			return
		case outcomePromotedHTTP2C:
			return // handed off to the HTTP/2 session inside serveHTTP1Request
		case outcomeKeepAlive:
			idle := listenCtx.Settings.KeepAliveTimeout
			if idle <= 0 {
				idle = 75 * time.Second
			}
			transport.SetReadDeadline(time.Now().Add(idle))
			if _, err := reader.Peek(1); err != nil {
				return
			}
			transport.SetReadDeadline(time.Time{})
		}
	}
}

type http1Outcome int

const (
	outcomeKeepAlive http1Outcome = iota
	outcomeClose
	outcomePromotedHTTP2C
)

func write408(w io.Writer) {
	io.WriteString(w, "HTTP/1.1 408 Request Timeout\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
}

func write497(w io.Writer) {
	io.WriteString(w, "HTTP/1.1 497 HTTP to HTTPS\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
}

// serveHTTP2Session hands a negotiated connection to the HTTP/2
// framing black box (spec §1's "HTTP/2 framing layer ... consumed as
// a black box exposing streams with header read/write"), grounded in
// SPEC_FULL.md §3 (golang.org/x/net/http2).
func serveHTTP2Session(transport net.Conn, ctx *ServerContext) {
	h2srv := &http2.Server{
		MaxConcurrentStreams: ctx.Settings.HTTP2MaxStreams,
		MaxReadFrameSize:     ctx.Settings.HTTP2MaxFrameSize,
	}
	h2srv.ServeConn(transport, &http2.ServeConnOpts{
		Handler: newHTTP2Handler(ctx),
	})
}
