// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Public helpers named in spec §6's External Interfaces: a canned
// redirect handler, in-process Request/Response builders for testing
// handlers without a real connection, and the hook point for the
// Vibe-style distributed front-end relay that spec §1 names as an
// external collaborator out of this module's scope.
package brisk

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/brisk-http/brisk/httpwire"
)

// StaticRedirect returns a Handler that unconditionally redirects
// every request to url with status (spec §6: "staticRedirect(url,
// status)").
func StaticRedirect(url string, status int) Handler {
	return func(req *Request, resp *Response) {
		resp.Redirect(url, status)
	}
}

// CreateTestRequest builds a Request detached from any real
// connection, for exercising a Handler directly (spec §6:
// "createTestRequest"). The body is served in full immediately; there
// is no chunked/timeout wrapping since there is no wire to misbehave.
func CreateTestRequest(method, requestURL string, headers map[string]string, body []byte) *Request {
	h := httpwire.NewHeaderMap()
	for name, value := range headers {
		h.Add(name, value)
	}
	req := &Request{
		arena:         newArena(),
		Method:        method,
		RequestURL:    requestURL,
		Version:       "HTTP/1.1",
		Headers:       h,
		PeerAddr:      "127.0.0.1",
		TimeCreated:   time.Now(),
		transport:     &staticBodyReader{body: body},
		contentLength: int64(len(body)),
	}
	req.applyParseOptions(DefaultOptions)
	return req
}

// staticBodyReader serves a fixed byte slice and then io.EOF.
type staticBodyReader struct{ body []byte }

func (r *staticBodyReader) Read(p []byte) (int, error) {
	if len(r.body) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.body)
	r.body = r.body[n:]
	return n, nil
}

// CreateTestResponse builds a Response that writes into an in-memory
// recorder rather than a connection (spec §6: "createTestResponse").
// The recorder exposes the raw bytes written once the caller finishes
// driving the handler and finalizes resp.
func CreateTestResponse(req *Request) (*Response, *TestRecorder) {
	rec := &TestRecorder{}
	ctx := req.ctx
	if ctx == nil {
		ctx = &ServerContext{Settings: NewServerSettings()}
	}
	resp := newResponse(req, rec, ctx)
	return resp, rec
}

// TestRecorder is the in-memory responseStream CreateTestResponse
// hands to a Response, mirroring http1Stream's text framing so a test
// can assert on exact wire bytes without opening a socket.
type TestRecorder struct {
	mu   sync.Mutex
	buf  []byte
}

func (r *TestRecorder) WriteHead(status int, phrase string, headers *httpwire.HeaderMap) error {
	if phrase == "" {
		phrase = statusPhrase(status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, fmt.Sprintf("HTTP/1.1 %d %s\r\n", status, phrase)...)
	headers.Each(func(name, value string) {
		r.buf = append(r.buf, fmt.Sprintf("%s: %s\r\n", name, value)...)
	})
	r.buf = append(r.buf, "\r\n"...)
	return nil
}

func (r *TestRecorder) BodySink() io.Writer { return r }
func (r *TestRecorder) IsHTTP2() bool       { return false }
func (r *TestRecorder) Hijack() (net.Conn, error) {
	return nil, NewHTTPStatusException(501, "test recorder does not support hijack")
}
func (r *TestRecorder) WaitClose(timeout time.Duration) error { return nil }
func (r *TestRecorder) Finalize() error                       { return nil }

func (r *TestRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// Bytes returns everything written to the recorder so far, including
// the status line and headers once WriteHead has run.
func (r *TestRecorder) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf...)
}

// distHost/distPort hold the optional relay target configured by
// SetVibeDistHost. The Vibe-style distributed front-end itself is
// named an out-of-scope external collaborator by spec §1: this module
// only announces its bind address to the relay and otherwise behaves
// exactly as a standalone listener, since the relay's own wire
// protocol is outside this module's boundary.
var (
	distMu   sync.Mutex
	distHost string
	distPort int
)

// SetVibeDistHost configures the relay address (spec §6:
// "setVibeDistHost(host, port)"). An empty host disables relay
// announcement and restores plain standalone listening.
func SetVibeDistHost(host string, port int) {
	distMu.Lock()
	defer distMu.Unlock()
	distHost = host
	distPort = port
}

// listenViaDistRelay registers the context and opens local listeners
// exactly as Listen does, then best-effort announces each bind to the
// configured relay so external front-end instances can learn where to
// forward connections for this context's virtual host.
func listenViaDistRelay(settings *ServerSettings, handler Handler) (*ListenerHandle, error) {
	ctx := registerContext(settings, handler)
	for _, key := range bindKeysOf(settings) {
		if _, err := openListener(key, settings); err != nil {
			deregisterContext(ctx)
			return nil, err
		}
		announceToRelay(key)
	}
	return &ListenerHandle{id: ctx.id}, nil
}

func announceToRelay(key bindKey) {
	distMu.Lock()
	host, port := distHost, distPort
	distMu.Unlock()
	if host == "" {
		return
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		return
	}
	defer conn.Close()
	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "ANNOUNCE %s\r\n", net.JoinHostPort(key.address, strconv.Itoa(key.port)))
	w.Flush()
}
