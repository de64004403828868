// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package streamio

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkReaderDecodesFramedBody(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	cr := NewChunkReader(bufio.NewReader(strings.NewReader(raw)))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestChunkReaderRejectsMalformedSize(t *testing.T) {
	raw := "zz\r\nhello\r\n"
	cr := NewChunkReader(bufio.NewReader(strings.NewReader(raw)))
	_, err := io.ReadAll(cr)
	assert.ErrorIs(t, err, ErrChunkSyntax)
}

func TestChunkWriterRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkWriter(&buf)
	_, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	cr := NewChunkReader(bufio.NewReader(&buf))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestLimitedReaderStopsAtBoundary(t *testing.T) {
	lr := NewLimitedReader(strings.NewReader("hello world"), 5)
	got, err := io.ReadAll(lr)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestCappedReaderSignalsOverflow(t *testing.T) {
	cr := NewCappedReader(strings.NewReader("hello world"), 5)
	buf := make([]byte, 3)
	for {
		_, err := cr.Read(buf)
		if err != nil {
			assert.ErrorIs(t, err, ErrTooLarge)
			return
		}
	}
}

func TestCountingWriterTracksBytes(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCountingWriter(&buf)
	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.EqualValues(t, 5, cw.BytesWritten())
}
