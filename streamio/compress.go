// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package streamio

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compressor is the common shape of the two response body encoders
// named in spec §4.4: a Writer that must be Close()d to flush its
// trailer, and whose Close error must be surfaced by finalization
// before the counting writer underneath it is torn down.
type Compressor interface {
	io.WriteCloser
}

// NewGzipWriter wraps w with a gzip encoder. Grounded in
// github.com/klauspost/compress/gzip, the dependency named in
// SPEC_FULL.md §3 as the replacement for compress/gzip.
func NewGzipWriter(w io.Writer) Compressor {
	return gzip.NewWriter(w)
}

// NewDeflateWriter wraps w with a zlib ("deflate" in HTTP terms, RFC
// 1950 framing) encoder, backed by github.com/klauspost/compress/zlib.
func NewDeflateWriter(w io.Writer) Compressor {
	return zlib.NewWriter(w)
}
