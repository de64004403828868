// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/brisk-http/brisk/httpwire"
	"github.com/brisk-http/brisk/session"
	"github.com/brisk-http/brisk/streamio"
)

// respState implements the state machine of spec §4.6: Unwritten ->
// HeaderWritten -> BodyInProgress -> Finalized.
type respState int

const (
	respUnwritten respState = iota
	respHeaderWritten
	respBodyInProgress
	respFinalized
)

// Response is the per-request object spec §3 describes.
type Response struct {
	req    *Request
	stream responseStream
	ctx    *ServerContext

	status      int
	phrase      string
	headers     *httpwire.HeaderMap
	cookies     []httpwire.Cookie
	isHead      bool
	state       respState

	counting  *streamio.CountingWriter
	chunker   *streamio.ChunkWriter
	compressor streamio.Compressor
	bodyWriterOnce io.Writer

	declaredLength int64 // -1 means not set by writeBody(bytes,...)
	keepAliveWanted bool
}

func newResponse(req *Request, stream responseStream, ctx *ServerContext) *Response {
	return &Response{
		req:             req,
		stream:          stream,
		ctx:             ctx,
		status:          200,
		headers:         httpwire.NewHeaderMap(),
		declaredLength:  -1,
		keepAliveWanted: true,
	}
}

func (resp *Response) mustBeUnwritten() {
	if resp.state != respUnwritten {
		panic("brisk: Response headers mutated after headerWritten (programming error, spec §3 invariant)")
	}
}

// StatusCode / SetStatusCode.
func (resp *Response) StatusCode() int { return resp.status }
func (resp *Response) SetStatusCode(status int) {
	resp.mustBeUnwritten()
	resp.status = status
}

// SetStatusPhrase overrides the default wire phrase for the status.
func (resp *Response) SetStatusPhrase(phrase string) {
	resp.mustBeUnwritten()
	resp.phrase = phrase
}

// Headers exposes the mutable header map (only valid before
// headerWritten, spec §4.4).
func (resp *Response) Headers() *httpwire.HeaderMap {
	resp.mustBeUnwritten()
	return resp.headers
}

func (resp *Response) SetHeader(name, value string) {
	resp.mustBeUnwritten()
	resp.headers.Set(name, value)
}

func (resp *Response) headerWritten() bool { return resp.state != respUnwritten }

// SetCookie adds a cookie; a zero-value (empty) value produces an
// immediate-expiry deletion cookie (spec §4.4).
func (resp *Response) SetCookie(name, value, path string) {
	resp.mustBeUnwritten()
	if value == "" {
		resp.cookies = append(resp.cookies, httpwire.DeletionCookie(name, path, resp.req.IsTLS))
		return
	}
	if path == "" {
		path = "/"
	}
	resp.cookies = append(resp.cookies, httpwire.Cookie{Name: name, Value: value, Path: path, MaxAge: -1})
}

// StartSession creates a session via the context's session store,
// stores the reserved path/secure keys on it, and emits the session
// cookie (spec §4.4). Secure defaults to the request having been TLS.
func (resp *Response) StartSession(path string, opts SessionOptions) (*session.Session, error) {
	resp.mustBeUnwritten()
	store := resp.ctx.Settings.SessionStore
	if store == nil {
		return nil, fmt.Errorf("brisk: no session store configured")
	}
	s := store.Create(resp.ctx.Settings.SessionTTL)
	if path == "" {
		path = "/"
	}
	secure := resp.req.IsTLS
	if opts&SessionSecure != 0 {
		secure = true
	}
	if opts&SessionNoSecure != 0 {
		secure = false
	}
	s.Set(session.KeyCookiePath, path)
	s.Set(session.KeyCookieSecure, secure)
	resp.req.Session = s
	resp.cookies = append(resp.cookies, httpwire.Cookie{
		Name: sessionCookieName, Value: s.ID, Path: path,
		MaxAge: -1, HttpOnly: opts&SessionHTTPOnly != 0, Secure: secure,
	})
	return s, nil
}

// TerminateSession replaces the session cookie with a deletion cookie
// and destroys the session (spec §4.4).
func (resp *Response) TerminateSession() {
	resp.mustBeUnwritten()
	s := resp.req.Session
	if s == nil {
		return
	}
	resp.cookies = append(resp.cookies, httpwire.DeletionCookie(sessionCookieName, s.CookiePath(), s.CookieSecure()))
	if store := resp.ctx.Settings.SessionStore; store != nil {
		store.Destroy(s.ID)
	}
	resp.req.Session = nil
}

const sessionCookieName = "briskSessionId"

// Redirect sets Location and sends the 14-byte body "redirecting..."
// (spec §4.4/§8 scenario 4).
func (resp *Response) Redirect(url string, status int) {
	if status == 0 {
		status = 302
	}
	resp.mustBeUnwritten()
	resp.headers.Set("Location", url)
	resp.WriteBody([]byte("redirecting..."), "text/plain; charset=UTF-8", status)
}

// WriteBody sets Content-Type/Content-Length and writes body through
// bodyWriter (spec §4.4).
func (resp *Response) WriteBody(body []byte, contentTypeAndStatus ...any) {
	contentType := "text/plain; charset=UTF-8"
	status := resp.status
	for _, v := range contentTypeAndStatus {
		switch t := v.(type) {
		case string:
			contentType = t
		case int:
			status = t
		}
	}
	resp.mustBeUnwritten()
	resp.status = status
	resp.headers.Set("Content-Type", contentType)
	resp.declaredLength = int64(len(body))
	w := resp.BodyWriter()
	w.Write(body)
}

// WriteStream streams through bodyWriter without setting Content-Length.
func (resp *Response) WriteStream(r io.Reader, contentType string) error {
	resp.mustBeUnwritten()
	if contentType != "" {
		resp.headers.Set("Content-Type", contentType)
	}
	w := resp.BodyWriter()
	_, err := io.Copy(w, r)
	return err
}

// WriteRawBody writes body bytes directly to the transport, bypassing
// chunked/compression filters but still counted; caller is
// responsible for headers (spec §4.4).
func (resp *Response) WriteRawBody(r io.Reader, status int) error {
	if status != 0 {
		resp.status = status
	}
	resp.emitHeadIfNeeded()
	counting := streamio.NewCountingWriter(resp.stream.BodySink())
	resp.counting = counting
	_, err := io.Copy(counting, r)
	resp.state = respBodyInProgress
	return err
}

// WriteJSONBody serializes value as JSON (spec §4.4). When
// allowChunked is false, a length-measuring pre-pass sets
// Content-Length before any bytes hit the wire.
func (resp *Response) WriteJSONBody(value any, status int, contentType string, allowChunked bool) error {
	if status != 0 {
		resp.status = status
	}
	if contentType == "" {
		contentType = "application/json"
	}
	resp.mustBeUnwritten()
	resp.headers.Set("Content-Type", contentType)
	if !allowChunked {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		resp.declaredLength = int64(len(data))
		w := resp.BodyWriter()
		_, err = w.Write(data)
		return err
	}
	w := resp.BodyWriter()
	return json.NewEncoder(w).Encode(value)
}

// WriteVoidBody emits the header with no body (spec §4.4): forbids
// Content-Length/Transfer-Encoding unless this is a HEAD response.
func (resp *Response) WriteVoidBody() {
	resp.mustBeUnwritten()
	if !resp.isHead {
		resp.headers.Del("Content-Length")
		resp.headers.Del("Transfer-Encoding")
	}
	resp.declaredLength = 0
	resp.emitHeadIfNeeded()
	resp.state = respBodyInProgress
}

// SwitchProtocol sets status 101, adds Upgrade: name, emits header
// only, and returns the underlying connection stream for the caller's
// protocol to take over (spec §4.4).
func (resp *Response) SwitchProtocol(name string) (net.Conn, error) {
	if resp.stream.IsHTTP2() {
		return nil, fmt.Errorf("brisk: switchProtocol is not supported over HTTP/2")
	}
	resp.mustBeUnwritten()
	resp.status = 101
	resp.headers.Set("Upgrade", name)
	resp.headers.Set("Connection", "Upgrade")
	resp.emitHeadIfNeeded()
	resp.keepAliveWanted = false
	return resp.stream.Hijack()
}

// WaitForConnectionClose blocks until the peer closes or timeout
// elapses (spec §4.4).
func (resp *Response) WaitForConnectionClose(timeout time.Duration) error {
	return resp.stream.WaitClose(timeout)
}

// BytesWritten reports the wire byte count after any encoding filters
// are removed (spec §8's testable property).
func (resp *Response) BytesWritten() int64 {
	if resp.counting == nil {
		return 0
	}
	return resp.counting.BytesWritten()
}

// BodyWriter assembles (on first access) the response filter chain of
// spec §4.4 and returns it. HEAD requests get a NullSink.
func (resp *Response) BodyWriter() io.Writer {
	if resp.bodyWriterOnce != nil {
		return resp.bodyWriterOnce
	}
	if resp.isHead {
		resp.emitHeadIfNeeded()
		resp.bodyWriterOnce = streamio.NullSink{}
		return resp.bodyWriterOnce
	}

	resp.negotiateCompressionHeaders()
	chunked := !resp.stream.IsHTTP2() && resp.declaredLength < 0
	if chunked {
		resp.headers.Set("Transfer-Encoding", "chunked")
	}
	resp.emitHeadIfNeeded()

	counting := streamio.NewCountingWriter(resp.stream.BodySink())
	resp.counting = counting
	var w io.Writer = counting

	if chunked {
		w = resp.installChunking(counting)
	}
	if enc := resp.headers.Get("Content-Encoding"); enc == "gzip" || enc == "deflate" {
		w = resp.installCompression(w, enc)
	}
	resp.bodyWriterOnce = w
	resp.state = respBodyInProgress
	return w
}

func (resp *Response) installChunking(counting *streamio.CountingWriter) io.Writer {
	cw := streamio.NewChunkWriter(counting)
	resp.chunker = cw
	return cw
}

func (resp *Response) installCompression(w io.Writer, enc string) io.Writer {
	var c streamio.Compressor
	if enc == "gzip" {
		c = streamio.NewGzipWriter(w)
	} else {
		c = streamio.NewDeflateWriter(w)
	}
	resp.compressor = c
	return c
}

// negotiateCompressionHeaders finalizes the Content-Encoding decision
// made earlier in the HTTP/1 handler (spec §4.3: "this only selects
// the header; the encoder is instantiated lazily when the body writer
// is created") and removes Content-Length when compression is active,
// since the compressed size is unknown up front (spec §4.4 step 3).
func (resp *Response) negotiateCompressionHeaders() {
	if resp.headers.Has("Content-Encoding") && resp.declaredLength >= 0 {
		resp.headers.Del("Content-Length")
		resp.declaredLength = -1
	} else if resp.declaredLength >= 0 {
		resp.headers.Set("Content-Length", fmt.Sprint(resp.declaredLength))
	}
}

// emitHeadIfNeeded writes the status line and headers exactly once,
// transitioning Unwritten -> HeaderWritten (spec §4.6). Called lazily
// by the first body-writing operation, or directly by WriteVoidBody
// and SwitchProtocol.
func (resp *Response) emitHeadIfNeeded() {
	if resp.state != respUnwritten {
		return
	}
	resp.cookies = append([]httpwire.Cookie(nil), resp.cookies...)
	for _, c := range resp.cookies {
		resp.headers.Add("Set-Cookie", httpwire.WriteSetCookie(c))
	}
	resp.stream.WriteHead(resp.status, resp.phrase, resp.headers)
	resp.state = respHeaderWritten
}

// finalize runs the teardown sequence of spec §4.5 on every exit path:
// finalize compressor -> finalize chunked encoder -> check the
// counting writer against a declared length -> flush/close the
// transport. Errors are swallowed and not logged; each one forces
// keep-alive off.
func (resp *Response) finalize() {
	if resp.compressor != nil {
		if err := resp.compressor.Close(); err != nil {
			resp.keepAliveWanted = false
		}
	}
	if resp.chunker != nil {
		if err := resp.chunker.Close(); err != nil {
			resp.keepAliveWanted = false
		}
	}
	if resp.declaredLength >= 0 && resp.counting != nil && resp.counting.BytesWritten() < resp.declaredLength {
		// Response body undershot a declared Content-Length: the
		// counting writer's own count is authoritative (spec §9 Open
		// Questions resolves this the "flag" way, not "error" way),
		// and the connection must be closed to avoid desynchronizing
		// the next request on the wire (spec §4.3 keep-alive rule).
		resp.keepAliveWanted = false
	}
	if err := resp.stream.Finalize(); err != nil {
		// Flush failed: the transport is almost certainly unusable,
		// so the connection can't safely be handed back for another
		// request (spec §4.5: "flush the transport (HTTP/1)").
		resp.keepAliveWanted = false
	}
}

// keepAlive reports whether this response still wants the connection
// kept open, per spec §4.3's keep-alive decision.
func (resp *Response) keepAlive() bool { return resp.keepAliveWanted }
