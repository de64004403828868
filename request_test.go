// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestParseURLSplitsQuery(t *testing.T) {
	req := CreateTestRequest("GET", "/search?q=go%20lang", nil, nil)
	req.parseURL()

	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, "q=go%20lang", req.Query)
}

func TestRequestBodyReaderReturnsExactBytes(t *testing.T) {
	req := CreateTestRequest("POST", "/", nil, []byte("payload"))
	req.contentLength = int64(len("payload"))

	data, err := io.ReadAll(req.BodyReader())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRequestBodyReaderIsStableAcrossCalls(t *testing.T) {
	req := CreateTestRequest("POST", "/", nil, []byte("once"))
	req.contentLength = int64(len("once"))

	first := req.BodyReader()
	second := req.BodyReader()
	assert.Same(t, first, second)
}

func TestRequestOversizeContentLengthSetsBodyErr(t *testing.T) {
	req := CreateTestRequest("POST", "/", nil, []byte("too much data"))
	req.contentLength = 1000
	req.ctx = &ServerContext{Settings: &ServerSettings{MaxRequestBodySize: 10}}

	_, err := io.ReadAll(req.BodyReader())
	require.NoError(t, err) // reading a zero-length limited reader succeeds with no bytes
	require.Error(t, req.bodyErr)

	hse, ok := req.bodyErr.(*HTTPStatusException)
	require.True(t, ok)
	assert.Equal(t, 413, hse.Status)
}

func TestRequestHeaderAccessorIsCaseInsensitive(t *testing.T) {
	req := CreateTestRequest("GET", "/", map[string]string{"X-Request-Id": "abc"}, nil)
	assert.Equal(t, "abc", req.H("x-request-id"))
}

func TestRequestCookieFirstInsertionWins(t *testing.T) {
	req := CreateTestRequest("GET", "/", map[string]string{"Cookie": "a=1; a=2; b=3"}, nil)
	req.applyParseOptions(ParseCookies)

	v, ok := req.Cookie("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}
