// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package streamio provides the filter chain primitives used to decode
// request bodies and encode response bodies: chunked transfer coding,
// length limiting, read timeouts, compression, byte counting, and a
// null sink. Each adapter wraps an underlying reader or writer and adds
// exactly one concern, so chains are built by nesting rather than by
// inheritance.
package streamio

import (
	"errors"
	"io"
)

// ErrTooLarge is raised by a CappedReader when the underlying stream
// carries more bytes than the configured cap allows.
var ErrTooLarge = errors.New("streamio: content exceeds configured limit")

// ErrChunkSyntax is raised by a ChunkReader when the chunked framing
// is malformed.
var ErrChunkSyntax = errors.New("streamio: malformed chunked encoding")

// NullSink discards everything written to it. Used as the body writer
// for HEAD responses.
type NullSink struct{}

func (NullSink) Write(p []byte) (int, error) { return len(p), nil }

// CountingWriter wraps an underlying writer and tracks how many bytes
// have passed through it. It always sits innermost in the response
// filter chain (closest to the transport) so bytesWritten reflects the
// true wire count regardless of which encoders sit on top of it.
type CountingWriter struct {
	W       io.Writer
	written int64
}

func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{W: w}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.written += int64(n)
	return n, err
}

func (c *CountingWriter) BytesWritten() int64 { return c.written }
