// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/2 adapter: hands off one "stream" to the same request handler
// with an alternative parser and header-writing path (spec §2.8).
// The HTTP/2 framing layer itself is treated as the external black
// box named in spec §1 and filled by golang.org/x/net/http2 per
// SPEC_FULL.md §3 — this file only bridges its http.Handler-shaped
// entrypoint to the Request/Response objects the rest of this module
// already knows how to drive.
package brisk

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/brisk-http/brisk/httpwire"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// h2StreamFacade carries the net/http request/response pair for one
// HTTP/2 stream, so Request can expose the same body-reading surface
// above the protocol-polymorphism seam (spec §9 Design Notes).
type h2StreamFacade struct {
	httpReq *http.Request
	rw      http.ResponseWriter
}

// http2Stream implements responseStream over net/http's
// ResponseWriter, matching spec §4.4: "For HTTP/2, header emission
// uses the stream's structured header API, not a textual write".
type http2Stream struct {
	rw http.ResponseWriter
}

func (s *http2Stream) WriteHead(status int, phrase string, headers *httpwire.HeaderMap) error {
	dst := s.rw.Header()
	headers.Each(func(name, value string) { dst.Add(name, value) })
	s.rw.WriteHeader(status)
	return nil
}

func (s *http2Stream) BodySink() io.Writer { return s.rw }
func (s *http2Stream) IsHTTP2() bool       { return true }

// Finalize is a no-op: net/http's ResponseWriter.Write sends each
// call straight to the HTTP/2 stream with no intervening buffer for
// this adapter to flush.
func (s *http2Stream) Finalize() error { return nil }

func (s *http2Stream) Hijack() (net.Conn, error) {
	return nil, errSwitchProtocolOverHTTP2
}

func (s *http2Stream) WaitClose(timeout time.Duration) error {
	notifier, ok := s.rw.(http.CloseNotifier)
	if !ok {
		return nil
	}
	notify := notifier.CloseNotify()
	if timeout <= 0 {
		<-notify
		return nil
	}
	select {
	case <-notify:
	case <-time.After(timeout):
	}
	return nil
}

var errSwitchProtocolOverHTTP2 = NewHTTPStatusException(501, "Not Implemented", "switchProtocol is not supported over HTTP/2")

// newHTTP2Handler builds the http.Handler that golang.org/x/net/http2
// (and h2c) drive one stream at a time. It performs the same
// virtual-host resolution, option parsing, and handler invocation as
// the HTTP/1 path (spec §9: "the handler code is identical above the
// abstraction").
func newHTTP2Handler(listenCtx *ServerContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, httpReq *http.Request) {
		ctx := listenCtx
		if host := httpReq.Host; host != "" {
			if resolved := resolveByHost(listenCtx, "", listenCtx.Settings.Port, host); resolved != nil {
				ctx = resolved
			}
		}

		contentLength := httpReq.ContentLength
		if contentLength < 0 {
			contentLength = -1
		}
		if contentLength >= 0 && ctx.Settings.MaxRequestBodySize > 0 && contentLength > ctx.Settings.MaxRequestBodySize {
			// Same rule as the HTTP/1 path (spec §8 scenario 3):
			// reject before the body is touched, rather than
			// waiting for a handler read to surface the 413.
			httpReq.Body.Close()
			w.WriteHeader(413)
			return
		}

		req := &Request{
			arena:         newArena(),
			Method:        httpReq.Method,
			RequestURL:    httpReq.URL.RequestURI(),
			Version:       "HTTP/2",
			Headers:       headerMapFromHTTP(httpReq.Header),
			PeerAddr:      normalizePeerAddr(httpReq.RemoteAddr),
			IsTLS:         httpReq.TLS != nil,
			TimeCreated:   time.Now(),
			ctx:           ctx,
			transport:     httpReq.Body,
			contentLength: contentLength,
			h2:            &h2StreamFacade{httpReq: httpReq, rw: w},
		}
		if httpReq.TLS != nil && len(httpReq.TLS.PeerCertificates) > 0 {
			req.PeerCert = httpReq.TLS.PeerCertificates[0]
		}
		req.applyParseOptions(ctx.Settings.Options)
		attachSession(req, ctx)

		resp := newResponse(req, &http2Stream{rw: w}, ctx)
		runHandlerAndFinalize(req, resp, ctx)
	})
}

func headerMapFromHTTP(h http.Header) *httpwire.HeaderMap {
	m := httpwire.NewHeaderMap()
	for name, values := range h {
		for _, v := range values {
			m.Add(name, v)
		}
	}
	return m
}

func normalizePeerAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	const v4InV6 = "::ffff:"
	if strings.HasPrefix(host, v4InV6) {
		return host[len(v4InV6):]
	}
	return host
}

// h2cUpgrader is the per-listener h2c black box (spec §4.3's upgrade
// steps a-f), grounded in golang.org/x/net/http2/h2c.NewHandler per
// SPEC_FULL.md §3: given a request that already carries Upgrade: h2c,
// it performs the 101 response, seeds the new HTTP/2 session with the
// client's HTTP2-Settings, and takes stream 1 over as the response to
// the upgrading request — all inside its ServeHTTP.
type h2cUpgrader struct {
	handler http.Handler
}

func newH2CUpgrader(ctx *ServerContext) *h2cUpgrader {
	h2srv := &http2.Server{
		MaxConcurrentStreams: ctx.Settings.HTTP2MaxStreams,
		MaxReadFrameSize:     ctx.Settings.HTTP2MaxFrameSize,
	}
	return &h2cUpgrader{handler: h2c.NewHandler(newHTTP2Handler(ctx), h2srv)}
}

// isH2CUpgradeRequest reports whether headers carry the three-header
// combination spec §4.3 requires to treat a request as an h2c upgrade:
// an HTTP2-Settings header, Upgrade naming h2c, and Connection naming
// both Upgrade and HTTP2-Settings.
func isH2CUpgradeRequest(headers *httpwire.HeaderMap) bool {
	if headers.Get("HTTP2-Settings") == "" {
		return false
	}
	upgradesToH2C := false
	for _, v := range httpwire.CommaList(headers.Get("Upgrade")) {
		if strings.EqualFold(v, "h2c") {
			upgradesToH2C = true
		}
	}
	if !upgradesToH2C {
		return false
	}
	connUpgrade, connSettings := false, false
	for _, v := range httpwire.CommaList(headers.Get("Connection")) {
		if strings.EqualFold(v, "Upgrade") {
			connUpgrade = true
		}
		if strings.EqualFold(v, "HTTP2-Settings") {
			connSettings = true
		}
	}
	return connUpgrade && connSettings
}

// serveH2CUpgrade reconstructs a *http.Request from the already-parsed
// request line and headers and delegates to h2c.NewHandler via a
// Hijacker-capable ResponseWriter backed by the raw connection, so
// h2c.NewHandler can take over the wire exactly as it would behind
// net/http's own server (spec §4.3 steps a-f).
func serveH2CUpgrade(upgrader *h2cUpgrader, transport net.Conn, reader *bufio.Reader, method, requestURL, version string, headers *httpwire.HeaderMap, body io.Reader) error {
	var raw bytes.Buffer
	raw.WriteString(method)
	raw.WriteByte(' ')
	raw.WriteString(requestURL)
	raw.WriteString(" HTTP/1.1\r\n")
	headers.Each(func(name, value string) {
		raw.WriteString(name)
		raw.WriteString(": ")
		raw.WriteString(value)
		raw.WriteString("\r\n")
	})
	raw.WriteString("\r\n")

	httpReq, err := http.ReadRequest(bufio.NewReader(&raw))
	if err != nil {
		return err
	}
	httpReq.Body = io.NopCloser(body)
	if host, _, splitErr := net.SplitHostPort(transport.RemoteAddr().String()); splitErr == nil {
		httpReq.RemoteAddr = host
	} else {
		httpReq.RemoteAddr = transport.RemoteAddr().String()
	}

	rw := &h2cResponseWriter{header: make(http.Header), conn: transport, reader: reader}
	upgrader.handler.ServeHTTP(rw, httpReq)
	return nil
}

// h2cResponseWriter is the minimal Hijacker h2c.NewHandler needs to
// take over the connection on a successful upgrade. Ordinary (non-
// upgrade) traffic never reaches it, since the upgrade headers are
// checked before this type is ever constructed.
type h2cResponseWriter struct {
	header http.Header
	status int
	conn   net.Conn
	reader *bufio.Reader
}

func (w *h2cResponseWriter) Header() http.Header       { return w.header }
func (w *h2cResponseWriter) Write(p []byte) (int, error) { return w.conn.Write(p) }
func (w *h2cResponseWriter) WriteHeader(status int)     { w.status = status }

func (w *h2cResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	rw := bufio.NewReadWriter(w.reader, bufio.NewWriter(w.conn))
	return w.conn, rw, nil
}
