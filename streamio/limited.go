// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package streamio

import "io"

// LimitedReader enforces an exact byte boundary on an underlying
// reader: it hands out at most Limit bytes and then reports io.EOF,
// leaving any further bytes of the underlying reader unread. It never
// returns ErrTooLarge; the overflow check for bodies of unknown size is
// CappedReader's job.
type LimitedReader struct {
	R     io.Reader
	Limit int64 // remaining bytes allowed; 0 or less yields io.EOF at once (zero-length body)
	done  bool
}

// NewLimitedReader returns a reader that yields at most limit bytes
// from r and then EOFs. Passing a limit larger than the configured
// maxRequestSize is the caller's responsibility to reject before
// construction (the request handler checks Content-Length against
// maxRequestSize itself and answers 413).
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{R: r, Limit: limit}
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Limit <= 0 {
		if l.done {
			return 0, io.EOF
		}
		l.done = true
		return 0, io.EOF
	}
	if int64(len(p)) > l.Limit {
		p = p[:l.Limit]
	}
	n, err := l.R.Read(p)
	l.Limit -= int64(n)
	return n, err
}

// CappedReader wraps an underlying reader (typically a ChunkReader)
// and raises ErrTooLarge the instant more than cap bytes have been
// read in total, without knowing the total size in advance. This
// backs the "silent-cap mode" length-limited filter placed after the
// chunked decoder in the request body chain (spec §4.3a step 3).
type CappedReader struct {
	R     io.Reader
	Cap   int64
	total int64
}

func NewCappedReader(r io.Reader, cap int64) *CappedReader {
	return &CappedReader{R: r, Cap: cap}
}

func (c *CappedReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.total += int64(n)
	if c.total > c.Cap {
		return n, ErrTooLarge
	}
	return n, err
}
