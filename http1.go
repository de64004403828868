// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1 request/response cycle: parses one request off the wire,
// resolves the virtual host, builds the Request/Response pair,
// invokes the handler with panic/error projection, and decides
// whether the connection stays open for another request (spec §4.2
// step 5, §4.3, §4.6, §7).
package brisk

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brisk-http/brisk/httpwire"
)

// serveHTTP1Request parses and serves exactly one request from reader,
// returning the outcome that tells runHTTP1Loop whether to read
// another request, close, or stop because the connection was handed
// off to an HTTP/2 session via h2c.
func serveHTTP1Request(transport net.Conn, reader *bufio.Reader, listenCtx *ServerContext, info *ListenInfo, isTLS bool) http1Outcome {
	reqLine, lineBytes, err := httpwire.ReadRequestLine(reader)
	if err != nil {
		switch err {
		case httpwire.ErrLineTooLong:
			writeSimpleStatus(transport, 431, "Request Header Fields Too Large")
		case httpwire.ErrMalformedRequestLine:
			writeSimpleStatus(transport, 400, "Bad Request")
		}
		return outcomeClose
	}

	headerBudget := int(listenCtx.Settings.MaxRequestHeaderSize) - lineBytes
	headers, _, err := httpwire.ReadHeaders(reader, headerBudget)
	if err != nil {
		switch err {
		case httpwire.ErrHeaderTooLarge, httpwire.ErrLineTooLong:
			writeSimpleStatus(transport, 431, "Request Header Fields Too Large")
		default:
			writeSimpleStatus(transport, 400, "Bad Request")
		}
		return outcomeClose
	}

	host := headers.Get("Host")
	if host == "" {
		writeSimpleStatus(transport, 400, "Bad Request")
		return outcomeClose
	}
	ctx := resolveByHost(listenCtx, info.Address, info.Port, host)

	if !ctx.Settings.disablesHTTP2() && isH2CUpgradeRequest(headers) {
		contentLength, clErr := parseContentLength(headers)
		var body io.Reader = reader
		if clErr == nil && contentLength >= 0 {
			body = io.LimitReader(reader, contentLength)
		}
		upgrader := newH2CUpgrader(ctx)
		if err := serveH2CUpgrade(upgrader, transport, reader, reqLine.Method, reqLine.RequestURL, reqLine.Version, headers, body); err != nil {
			return outcomeClose
		}
		return outcomePromotedHTTP2C
	}

	contentLength, err := parseContentLength(headers)
	if err != nil {
		writeSimpleStatus(transport, 400, "Bad Request")
		return outcomeClose
	}
	if contentLength >= 0 && ctx.Settings.MaxRequestBodySize > 0 && contentLength > ctx.Settings.MaxRequestBodySize {
		// Reject before the body is touched at all (spec §8 scenario 3:
		// "413 response before body consumed"). The body is left
		// unread on the wire, so the connection cannot be reused.
		writeSimpleStatus(transport, 413, "Request Entity Too Large")
		return outcomeClose
	}

	req := &Request{
		arena:         newArena(),
		Method:        reqLine.Method,
		RequestURL:    reqLine.RequestURL,
		Version:       reqLine.Version,
		Headers:       headers,
		PeerAddr:      normalizePeerAddr(transport.RemoteAddr().String()),
		IsTLS:         isTLS,
		TimeCreated:   time.Now(),
		ctx:           ctx,
		rawReader:     reader,
		transport:     reader,
		contentLength: contentLength,
	}
	req.applyParseOptions(ctx.Settings.Options)
	attachSession(req, ctx)

	if strings.EqualFold(headers.Get("Expect"), "100-continue") {
		io.WriteString(transport, "HTTP/1.1 100 Continue\r\n\r\n")
	}

	writer := bufio.NewWriter(transport)
	resp := newResponse(req, newHTTP1Stream(transport, writer), ctx)
	resp.isHead = req.Method == "HEAD"
	setDefaultHeaders(resp, ctx)
	negotiateRequestedEncoding(resp, ctx, headers)

	runHandlerAndFinalize(req, resp, ctx)

	return decideKeepAlive(req, resp)
}

// setDefaultHeaders pre-populates the default headers of spec §4.3:
// Date (cached, §4.3 "formatted once") always, the Server banner when
// one is configured, and Keep-Alive advertising the idle timeout when
// KeepAliveTimeout is positive.
func setDefaultHeaders(resp *Response, ctx *ServerContext) {
	resp.headers.Set("Date", httpwire.CachedDate())
	if ctx.Settings.ServerBanner != "" {
		resp.headers.Set("Server", ctx.Settings.ServerBanner)
	}
	idle := ctx.Settings.KeepAliveTimeout
	if idle > 0 {
		resp.headers.Set("Keep-Alive", fmt.Sprintf("timeout=%d", int(idle.Seconds())))
	}
}

// negotiateRequestedEncoding selects Content-Encoding from the
// client's Accept-Encoding, scanning left-to-right by client priority
// (spec §4.3): the header is set now, but response.go's BodyWriter
// only instantiates the actual compressor lazily, and a handler is
// free to Del it before writing a body it doesn't want compressed.
func negotiateRequestedEncoding(resp *Response, ctx *ServerContext, headers *httpwire.HeaderMap) {
	if !ctx.Settings.CompressionOn {
		return
	}
	for _, tok := range httpwire.CommaList(headers.Get("Accept-Encoding")) {
		name := tok
		if i := strings.IndexByte(name, ';'); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, "gzip") {
			resp.headers.Set("Content-Encoding", "gzip")
			return
		}
		if strings.EqualFold(name, "deflate") {
			resp.headers.Set("Content-Encoding", "deflate")
			return
		}
	}
}

// attachSession opens an existing session from the request's session
// cookie, if the store and cookie both exist (spec §4.4).
func attachSession(req *Request, ctx *ServerContext) {
	store := ctx.Settings.SessionStore
	if store == nil || req.Cookies == nil {
		return
	}
	id, ok := req.Cookies.Get(sessionCookieName)
	if !ok {
		return
	}
	if s, ok := store.Open(id); ok {
		req.Session = s
	}
}

// runHandlerAndFinalize invokes ctx.Handler with the error-projection
// rules of spec §6/§7: a panicked *HTTPStatusException maps to its
// status verbatim, any other panic or returned value maps to 500 (400
// if the request never finished parsing), a handler that returns
// without writing anything gets a synthetic 404, and the body is
// always drained before the teardown sequence in Response.finalize.
func runHandlerAndFinalize(req *Request, resp *Response, ctx *ServerContext) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				projectError(req, resp, ctx, r)
			}
		}()
		ctx.Handler(req, resp)
		if resp.state == respUnwritten {
			resp.WriteBody([]byte("Not Found"), "text/plain; charset=UTF-8", 404)
		}
	}()

	req.drainBody()
	resp.finalize()
	req.arena.release()

	for _, logger := range ctx.Settings.AccessLoggers {
		logger.Logf("%s", accessLogLine(req, resp))
	}
}

// projectError implements spec §7's mapping from a caught panic value
// to a wire status and (if headers are still unwritten) an error body.
func projectError(req *Request, resp *Response, ctx *ServerContext, recovered any) {
	status := 500
	message := "Internal Server Error"
	debugMessage := fmt.Sprint(recovered)
	var stack []byte

	if hse, ok := recovered.(*HTTPStatusException); ok {
		status = hse.Status
		message = hse.Message
		debugMessage = hse.DebugMessage
		stack = hse.stack
	} else if req.Method == "" || resp.status == 0 {
		status = 400
		message = "Bad Request"
	}
	if stack == nil && ctx.Settings.Options.has(ErrorStackTraces) {
		stack = NewHTTPStatusException(status, message).captureStack().stack
	}

	if resp.headerWritten() {
		// Nothing more can be emitted on the wire; the connection must
		// close so the next request doesn't desync on a half response.
		resp.keepAliveWanted = false
		return
	}

	resp.status = status
	if ctx.Settings.ErrorPage != nil {
		ctx.Settings.ErrorPage(req, resp, fmt.Errorf("%s", message))
		if resp.state == respUnwritten {
			resp.WriteVoidBody()
		}
		return
	}

	body := fmt.Sprintf("%d - %s\n\n%s\n", status, message, sanitizeUTF8(debugMessage))
	if len(stack) > 0 {
		body += fmt.Sprintf("\nInternal error information:\n%s", sanitizeUTF8(string(stack)))
	}
	resp.WriteBody([]byte(body), "text/plain; charset=UTF-8", status)
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// decideKeepAlive implements spec §4.3's final keep-alive rule: the
// response's own wish (set false by an undershot Content-Length, a
// write error, or a late panic) is ANDed with the protocol defaults
// and the explicit Connection header, and any status in
// justifiesConnectionClose forces a close regardless.
func decideKeepAlive(req *Request, resp *Response) http1Outcome {
	if !resp.keepAlive() {
		return outcomeClose
	}
	if justifiesConnectionClose(resp.status) {
		return outcomeClose
	}
	connection := httpwire.CommaList(req.Headers.Get("Connection"))
	explicitClose, explicitKeepAlive := false, false
	for _, tok := range connection {
		if strings.EqualFold(tok, "close") {
			explicitClose = true
		}
		if strings.EqualFold(tok, "keep-alive") {
			explicitKeepAlive = true
		}
	}
	if explicitClose {
		return outcomeClose
	}
	if req.Version == "HTTP/1.0" && !explicitKeepAlive {
		return outcomeClose
	}
	return outcomeKeepAlive
}

func writeSimpleStatus(w io.Writer, status int, phrase string) {
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", status, phrase)
}
