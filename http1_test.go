// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(handler Handler) (*ServerContext, *ListenInfo) {
	settings := NewServerSettings()
	settings.MaxRequestBodySize = 1024
	ctx := &ServerContext{Settings: settings, Handler: handler}
	info := &ListenInfo{Address: "", Port: 8080}
	return ctx, info
}

// driveOneRequest writes raw to one half of a net.Pipe, serves exactly
// one HTTP/1 request off the other half, and returns whatever the
// server wrote back plus the outcome.
func driveOneRequest(t *testing.T, ctx *ServerContext, info *ListenInfo, raw string) (string, http1Outcome) {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		io.WriteString(client, raw)
	}()

	reader := bufio.NewReader(server)
	resultCh := make(chan http1Outcome, 1)
	go func() {
		resultCh <- serveHTTP1Request(server, reader, ctx, info, false)
		server.Close()
	}()

	out := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := client.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	outcome := <-resultCh
	client.Close()
	return string(out), outcome
}

func TestServeHTTP1RequestSimpleBody(t *testing.T) {
	ctx, info := newTestContext(func(req *Request, resp *Response) {
		resp.WriteBody([]byte("hello"), "text/plain; charset=UTF-8", 200)
	})

	raw := "GET /hi HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"
	out, outcome := driveOneRequest(t, ctx, info, raw)

	assert.Equal(t, outcomeClose, outcome)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(out, "hello"))
}

func TestServeHTTP1RequestMissingHostIs400(t *testing.T) {
	ctx, info := newTestContext(func(req *Request, resp *Response) {
		resp.WriteBody([]byte("should not run"), "text/plain; charset=UTF-8", 200)
	})

	raw := "GET /hi HTTP/1.1\r\nConnection: close\r\n\r\n"
	out, outcome := driveOneRequest(t, ctx, info, raw)

	assert.Equal(t, outcomeClose, outcome)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n"))
}

func TestServeHTTP1RequestOversizeContentLengthRejectedBeforeBody(t *testing.T) {
	handlerRan := false
	ctx, info := newTestContext(func(req *Request, resp *Response) {
		handlerRan = true
		io.ReadAll(req.BodyReader())
		resp.WriteBody([]byte("ok"), "text/plain; charset=UTF-8", 200)
	})

	raw := "POST /upload HTTP/1.1\r\nHost: example.com\r\nContent-Length: 99999999\r\nConnection: close\r\n\r\n"
	out, outcome := driveOneRequest(t, ctx, info, raw)

	assert.Equal(t, outcomeClose, outcome)
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 413 Request Entity Too Large\r\n"))
	assert.False(t, handlerRan, "handler must not run when the body is rejected before being touched")
}

func TestServeHTTP1RequestHTTPStatusExceptionMapsVerbatim(t *testing.T) {
	ctx, info := newTestContext(func(req *Request, resp *Response) {
		panic(NewHTTPStatusException(418, "I'm a teapot"))
	})

	raw := "GET /brew HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"
	out, _ := driveOneRequest(t, ctx, info, raw)

	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 418 I'm a teapot\r\n"))
}

func TestServeHTTP1RequestKeepAliveAllowsSecondRequest(t *testing.T) {
	count := 0
	ctx, info := newTestContext(func(req *Request, resp *Response) {
		count++
		resp.WriteBody([]byte("ok"), "text/plain; charset=UTF-8", 200)
	})

	client, server := net.Pipe()

	go func() {
		io.WriteString(client, "GET /a HTTP/1.1\r\nHost: example.com\r\n\r\n")
		io.WriteString(client, "GET /b HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")
	}()
	// Drain every response byte in the background so the server's
	// synchronous writes over net.Pipe never block waiting for a
	// reader that the test itself never provides.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		io.Copy(io.Discard, client)
	}()

	reader := bufio.NewReader(server)
	outcome1 := serveHTTP1Request(server, reader, ctx, info, false)
	require.Equal(t, outcomeKeepAlive, outcome1)
	outcome2 := serveHTTP1Request(server, reader, ctx, info, false)
	require.Equal(t, outcomeClose, outcome2)
	assert.Equal(t, 2, count)

	server.Close()
	client.Close()
	<-drained
}

func TestServeHTTP1RequestNotFoundWhenHandlerWritesNothing(t *testing.T) {
	ctx, info := newTestContext(func(req *Request, resp *Response) {})

	raw := "GET /missing HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"
	out, _ := driveOneRequest(t, ctx, info, raw)

	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n"))
}
