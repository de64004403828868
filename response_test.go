// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"bufio"
	"bytes"
	"compress/flate"
	"io"
	"strings"
	"testing"

	"github.com/brisk-http/brisk/streamio"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPair() (*Request, *Response, *TestRecorder) {
	req := CreateTestRequest("GET", "/", nil, nil)
	resp, rec := CreateTestResponse(req)
	return req, resp, rec
}

func TestWriteBodySetsContentLength(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.WriteBody([]byte("hi"), "text/plain; charset=UTF-8", 200)
	resp.finalize()

	out := rec.Bytes()
	assert.True(t, strings.HasPrefix(string(out), "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, string(out), "Content-Length: 2\r\n")
	assert.True(t, strings.HasSuffix(string(out), "hi"))
	assert.EqualValues(t, 2, resp.BytesWritten())
}

func TestHeadResponseWritesNoBody(t *testing.T) {
	req := CreateTestRequest("HEAD", "/", nil, nil)
	resp, rec := CreateTestResponse(req)
	resp.isHead = true
	resp.WriteBody([]byte("hi"), "text/plain; charset=UTF-8", 200)
	resp.finalize()

	assert.EqualValues(t, 0, resp.BytesWritten())
	assert.NotContains(t, string(rec.Bytes()), "hi")
}

func TestWriteVoidBodyMatchesEmptyWriteBody(t *testing.T) {
	_, resp1, rec1 := newTestPair()
	resp1.SetHeader("Content-Type", "text/plain; charset=UTF-8")
	resp1.WriteVoidBody()
	resp1.finalize()

	_, resp2, rec2 := newTestPair()
	resp2.WriteBody(nil, "text/plain; charset=UTF-8", 200)
	resp2.finalize()

	// writeVoidBody omits Content-Length/Transfer-Encoding entirely,
	// while writeBody("") declares Content-Length: 0; everything else
	// about the two responses is otherwise identical (spec §8).
	assert.NotContains(t, string(rec1.Bytes()), "Content-Length")
	assert.Contains(t, string(rec2.Bytes()), "Content-Length: 0\r\n")
}

func TestChunkedWhenNoDeclaredLength(t *testing.T) {
	_, resp, rec := newTestPair()
	w := resp.BodyWriter()
	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	resp.finalize()

	out := string(rec.Bytes())
	assert.Contains(t, out, "Transfer-Encoding: chunked")
	assert.Contains(t, out, "5\r\nhello\r\n0\r\n\r\n")
}

func TestGzipEncodingDropsContentLength(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.SetHeader("Content-Encoding", "gzip")
	resp.WriteBody([]byte("hello world"), "text/plain; charset=UTF-8", 200)
	resp.finalize()

	out := rec.Bytes()
	assert.NotContains(t, string(out), "Content-Length:")

	idx := bytes.Index(out, []byte("\r\n\r\n"))
	require.True(t, idx >= 0)
	// Without a Content-Length the HTTP/1 body is chunk-framed around
	// the compressed stream, so dechunk before decompressing.
	body, err := io.ReadAll(streamio.NewChunkReader(bufio.NewReader(bytes.NewReader(out[idx+4:]))))
	require.NoError(t, err)
	gr, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(gr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", buf.String())
}

func TestDeflateEncodingDropsContentLength(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.SetHeader("Content-Encoding", "deflate")
	resp.WriteBody([]byte("hello world"), "text/plain; charset=UTF-8", 200)
	resp.finalize()

	out := rec.Bytes()
	assert.NotContains(t, string(out), "Content-Length:")

	idx := bytes.Index(out, []byte("\r\n\r\n"))
	require.True(t, idx >= 0)
	body, err := io.ReadAll(streamio.NewChunkReader(bufio.NewReader(bytes.NewReader(out[idx+4:]))))
	require.NoError(t, err)
	zr := flate.NewReader(bytes.NewReader(body[2:])) // skip zlib 2-byte header
	defer zr.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(zr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", buf.String())
}

func TestUndershotContentLengthForcesConnectionClose(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.headers.Set("Content-Type", "text/plain; charset=UTF-8")
	resp.declaredLength = 10
	resp.headers.Set("Content-Length", "10")
	w := resp.BodyWriter()
	w.Write([]byte("short"))
	resp.finalize()

	assert.False(t, resp.keepAlive())
	_ = rec
}

func TestRedirectBody(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.Redirect("http://x/new", 301)
	resp.finalize()

	out := string(rec.Bytes())
	assert.Contains(t, out, "HTTP/1.1 301 Moved Permanently\r\n")
	assert.Contains(t, out, "Location: http://x/new\r\n")
	assert.True(t, strings.HasSuffix(out, "redirecting..."))
	assert.Len(t, "redirecting...", 14)
}

func TestSetCookieEmptyValueDeletes(t *testing.T) {
	_, resp, rec := newTestPair()
	resp.SetCookie("sid", "", "/")
	resp.WriteVoidBody()
	resp.finalize()

	out := string(rec.Bytes())
	assert.Contains(t, out, "Max-Age=0")
	assert.Contains(t, out, "Expires=Thu, 01 Jan 1970 00:00:00 GMT")
}

func TestMutationAfterHeaderWrittenPanics(t *testing.T) {
	_, resp, _ := newTestPair()
	resp.WriteVoidBody()
	assert.Panics(t, func() {
		resp.SetStatusCode(500)
	})
}
