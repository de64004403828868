// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRedirectHandler(t *testing.T) {
	req := CreateTestRequest("GET", "/old", nil, nil)
	resp, rec := CreateTestResponse(req)

	handler := StaticRedirect("https://example.com/new", 301)
	handler(req, resp)
	resp.finalize()

	out := string(rec.Bytes())
	assert.Contains(t, out, "HTTP/1.1 301 Moved Permanently\r\n")
	assert.Contains(t, out, "Location: https://example.com/new\r\n")
	assert.True(t, strings.HasSuffix(out, "redirecting..."))
}

func TestCreateTestRequestAndResponseRoundTrip(t *testing.T) {
	req := CreateTestRequest("POST", "/submit", map[string]string{"Content-Type": "text/plain"}, []byte("body"))
	resp, rec := CreateTestResponse(req)

	resp.WriteBody([]byte("received"), "text/plain; charset=UTF-8", 200)
	resp.finalize()

	assert.Equal(t, "127.0.0.1", req.PeerAddr)
	out := string(rec.Bytes())
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.True(t, strings.HasSuffix(out, "received"))
}

func TestCreateTestResponseWithoutContextUsesDefaults(t *testing.T) {
	req := CreateTestRequest("GET", "/", nil, nil)
	require.Nil(t, req.ctx)

	resp, _ := CreateTestResponse(req)
	require.NotNil(t, resp)
}

func TestSetVibeDistHostTogglesRelayAnnouncement(t *testing.T) {
	SetVibeDistHost("", 0)
	distMu.Lock()
	host := distHost
	distMu.Unlock()
	assert.Equal(t, "", host)

	SetVibeDistHost("127.0.0.1", 9999)
	distMu.Lock()
	host, port := distHost, distPort
	distMu.Unlock()
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 9999, port)

	// restore default so other tests in the package aren't affected by
	// relay announcement being armed.
	SetVibeDistHost("", 0)
}
