// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Context registry: a process-wide, copy-on-write list of server
// contexts indexed by (bind address, port, host name), consulted
// during SNI and after parsing Host (spec §2.4, §4.1).
package brisk

import (
	"crypto/tls"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler is the user-supplied request handler, spec §6: "(Request,
// Response) -> void". A handler signals a specific wire status by
// panicking with an *HTTPStatusException; any other panic maps to 500
// (or 400 if the request wasn't fully parsed yet).
type Handler func(req *Request, resp *Response)

// ServerContext is a ServerSettings plus the request handler and zero
// or more access loggers, tagged with a monotonically assigned ID
// (spec §3).
type ServerContext struct {
	id       int64
	Settings *ServerSettings
	Handler  Handler
}

func (c *ServerContext) ID() int64 { return c.id }

// ListenerHandle is the opaque ID spec §3/§6 names for deregistration.
type ListenerHandle struct {
	id int64
}

var (
	registryMu  sync.Mutex // g_listenersMutex, spec §5
	registrySnapshot atomic.Pointer[[]*ServerContext]
	nextContextID    atomic.Int64
)

func init() {
	empty := make([]*ServerContext, 0)
	registrySnapshot.Store(&empty)
}

// snapshotContexts returns the current immutable slice of registered
// contexts. Callers never hold a lock (spec §5: "Reads are lock-free
// via atomic pointer load of an immutable array snapshot").
func snapshotContexts() []*ServerContext {
	return *registrySnapshot.Load()
}

// registerContext assigns a fresh ID, appends it to the registry via
// copy-append under registryMu, and publishes the new snapshot
// atomically (spec §4.1).
func registerContext(settings *ServerSettings, handler Handler) *ServerContext {
	ctx := &ServerContext{
		id:       nextContextID.Add(1),
		Settings: settings,
		Handler:  handler,
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	old := snapshotContexts()
	next := make([]*ServerContext, len(old)+1)
	copy(next, old)
	next[len(old)] = ctx
	registrySnapshot.Store(&next)
	return ctx
}

// deregisterContext removes ctx from the registry, returning the set
// of (address, port) pairs that are no longer referenced by any
// remaining context, so the listener supervisor can close them.
func deregisterContext(ctx *ServerContext) (freedBinds []bindKey) {
	registryMu.Lock()
	defer registryMu.Unlock()
	old := snapshotContexts()
	next := make([]*ServerContext, 0, len(old))
	for _, c := range old {
		if c.id != ctx.id {
			next = append(next, c)
		}
	}
	registrySnapshot.Store(&next)

	stillBound := make(map[bindKey]bool)
	for _, c := range next {
		for _, key := range bindKeysOf(c.Settings) {
			stillBound[key] = true
		}
	}
	for _, key := range bindKeysOf(ctx.Settings) {
		if !stillBound[key] {
			freedBinds = append(freedBinds, key)
		}
	}
	return freedBinds
}

// bindKey identifies one listener: (address, port).
type bindKey struct {
	address string
	port    int
}

func bindKeysOf(s *ServerSettings) []bindKey {
	addrs := s.BindAddresses
	if len(addrs) == 0 {
		addrs = []string{""}
	}
	keys := make([]bindKey, len(addrs))
	for i, a := range addrs {
		keys[i] = bindKey{address: a, port: s.Port}
	}
	return keys
}

// resolveByAddr finds the listen-level context for (address, port):
// the first registered context at that bind whose HostName is empty,
// or, lacking one, the first context at that bind at all (spec §4.2
// step 3: "Resolve the listen-level context (by bind address/port
// only)").
func resolveByAddr(address string, port int) *ServerContext {
	var fallback *ServerContext
	for _, c := range snapshotContexts() {
		for _, key := range bindKeysOf(c.Settings) {
			if key.port != port || (key.address != "" && key.address != address) {
				continue
			}
			if c.Settings.HostName == "" {
				return c
			}
			if fallback == nil {
				fallback = c
			}
		}
	}
	return fallback
}

// resolveByHost finds a context at (address, port) whose HostName
// matches host, per spec §4.3's virtual-host resolution. If none
// matches, the listen-level default (if any) is returned unchanged.
func resolveByHost(listenCtx *ServerContext, address string, port int, host string) *ServerContext {
	host = strings.ToLower(stripPort(host))
	for _, c := range snapshotContexts() {
		if c.Settings.HostName == "" || !strings.EqualFold(c.Settings.HostName, host) {
			continue
		}
		for _, key := range bindKeysOf(c.Settings) {
			if key.port == port && (key.address == "" || key.address == address) {
				return c
			}
		}
	}
	return listenCtx
}

func stripPort(hostport string) string {
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 {
		if _, err := strconv.Atoi(hostport[i+1:]); err == nil {
			return hostport[:i]
		}
	}
	return hostport
}

// sniConfigFor builds the SNI-dispatching TLS config promoted per
// spec §4.1 when two contexts share (address, port) but differ in
// HostName: its GetConfigForClient callback searches the registry for
// a matching host name and returns that context's TLS config; a
// client that sends no SNI name gets the bind's base config, and a
// name no context matches aborts the handshake by returning an error.
func sniConfigFor(address string, port int) *tls.Config {
	base := baseTLSConfigFor(address, port)
	if base == nil {
		return nil
	}
	cfg := base.Clone()
	cfg.GetConfigForClient = func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
		host := hello.ServerName
		if host == "" {
			return base, nil
		}
		for _, c := range snapshotContexts() {
			if !strings.EqualFold(c.Settings.HostName, host) {
				continue
			}
			for _, key := range bindKeysOf(c.Settings) {
				if key.port == port && (key.address == "" || key.address == address) && c.Settings.TLSConfig != nil {
					return c.Settings.TLSConfig, nil
				}
			}
		}
		if host == "" {
			return base, nil
		}
		return nil, errNoMatchingSNIHost
	}
	return cfg
}

func baseTLSConfigFor(address string, port int) *tls.Config {
	for _, c := range snapshotContexts() {
		for _, key := range bindKeysOf(c.Settings) {
			if key.port == port && (key.address == "" || key.address == address) && c.Settings.TLSConfig != nil {
				return c.Settings.TLSConfig
			}
		}
	}
	return nil
}
