// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpwire

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("GET /path?x=1 HTTP/1.1\r\n"))
	rl, _, err := ReadRequestLine(r)
	require.NoError(t, err)
	assert.Equal(t, "GET", rl.Method)
	assert.Equal(t, "/path?x=1", rl.RequestURL)
	assert.Equal(t, "HTTP/1.1", rl.Version)
}

func TestReadRequestLineRejectsMalformed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("GET /path\r\n"))
	_, _, err := ReadRequestLine(r)
	assert.ErrorIs(t, err, ErrMalformedRequestLine)
}

func TestReadHeadersStopsAtBlankLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Host: example.com\r\nX-A: 1\r\nX-A: 2\r\n\r\nleftover"))
	headers, _, err := ReadHeaders(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "example.com", headers.Get("Host"))
	assert.Equal(t, []string{"1", "2"}, headers.Values("X-A"))
}

func TestReadHeadersEnforcesTotalBudget(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Host: example.com\r\nX-A: 1111111111\r\n\r\n"))
	_, _, err := ReadHeaders(r, 10)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestParseCookieHeaderFirstInsertionWins(t *testing.T) {
	m := ParseCookieHeader("a=1; b=2; a=3")
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"1", "3"}, m.All("a"))
}

func TestWriteSetCookieDeletion(t *testing.T) {
	c := DeletionCookie("sid", "/", true)
	got := WriteSetCookie(c)
	assert.Contains(t, got, "Max-Age=0")
	assert.Contains(t, got, "Expires=Thu, 01 Jan 1970 00:00:00 GMT")
	assert.Contains(t, got, "Secure")
}

func TestHeaderMapCaseInsensitive(t *testing.T) {
	h := NewHeaderMap()
	h.Add("content-type", "text/plain")
	assert.True(t, h.Has("Content-Type"))
	assert.Equal(t, "text/plain", h.Get("CONTENT-TYPE"))
}
