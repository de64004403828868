// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package brisk

import (
	"crypto/tls"
	"time"

	"github.com/brisk-http/brisk/session"
)

// ErrorPageHandler is invoked by error projection (spec §7) when
// headers have not yet been written. It receives the error that was
// caught; it may itself call Response mutators and body writers.
type ErrorPageHandler func(req *Request, resp *Response, err error)

// ServerSettings is the immutable-once-registered configuration named
// in spec §3. A caller builds one with NewServerSettings and passes it
// to Listen along with a Handler; this module has no text-based
// config DSL (see DESIGN.md Open Questions — a deliberate
// simplification of the teacher's declarative Stage/Component system,
// appropriate for an embeddable library whose caller already has a Go
// program to configure it from).
type ServerSettings struct {
	BindAddresses []string // one listener opened per distinct (address, port)
	Port          int
	HostName      string // empty means "listen-level default", non-empty means virtual host

	Options Options

	MaxRequestHeaderSize int64
	MaxRequestBodySize   int64
	MaxRequestTime       time.Duration // 0 disables (spec §9 Open Questions)
	KeepAliveTimeout     time.Duration

	TLSConfig *tls.Config // nil means cleartext

	SessionStore   session.Store
	SessionTTL     time.Duration
	ErrorPage      ErrorPageHandler
	AccessLoggers  []Logger
	ServerBanner   string
	CompressionOn  bool
	HTTP2MaxStreams   uint32
	HTTP2MaxFrameSize uint32
	WebSocketPing     time.Duration
}

// NewServerSettings returns a ServerSettings populated with the
// defaults spec §3/§6 imply: default option set, a 1MiB header cap,
// 10MiB body cap, 75s keep-alive idle timeout (matching common HTTP/1
// server defaults, e.g. net/http's IdleTimeout convention), and an
// in-memory session store.
func NewServerSettings() *ServerSettings {
	return &ServerSettings{
		Port:                  80,
		Options:               DefaultOptions,
		MaxRequestHeaderSize:  1 << 20,
		MaxRequestBodySize:    10 << 20,
		KeepAliveTimeout:      75 * time.Second,
		SessionStore:          session.NewMemoryStore(),
		SessionTTL:            30 * time.Minute,
		ServerBanner:          "brisk",
		CompressionOn:         true,
		HTTP2MaxStreams:       250,
		HTTP2MaxFrameSize:     1 << 14,
		WebSocketPing:         30 * time.Second,
	}
}

func (s *ServerSettings) IsTLS() bool          { return s.TLSConfig != nil }
func (s *ServerSettings) disablesHTTP2() bool  { return s.Options.has(DisableHTTP2) }
