// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Listener supervisor: opens one TCP listener per distinct (address,
// port); installs SNI callback that selects a TLS config from the
// registry; installs ALPN callback that chooses h2* or http/1.1
// (spec §2.5, §4.1).
package brisk

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
)

var errNoMatchingSNIHost = errors.New("brisk: no context matches SNI host name")

// ListenInfo is one TCP listener plus its bind address/port and the
// TLS config actually bound, which may be an SNI-dispatching config
// that resolves at handshake time (spec §3).
type ListenInfo struct {
	Listener  net.Listener
	Address   string
	Port      int
	TLSConfig *tls.Config // nil for cleartext binds
	refs      int
}

var (
	listenersMu sync.Mutex // g_listenersMutex
	listeners   = make(map[bindKey]*ListenInfo)
)

// alpnProtocols implements the ALPN ordering policy of spec §4.1:
// "if HTTP/2 is disabled, advertise only http/1.1; otherwise prefer
// h2, then h2-16, h2-14, then http/1.1".
func alpnProtocols(disableHTTP2 bool) []string {
	if disableHTTP2 {
		return []string{"http/1.1"}
	}
	return []string{"h2", "h2-16", "h2-14", "http/1.1"}
}

// buildListenTLSConfig produces the TLS config bound to one listener,
// promoting it to an SNI-dispatching config when more than one
// context shares the bind with distinct host names (spec §4.1).
// "If the caller already installed an ALPN callback, do not overwrite
// it (HTTP/2 is effectively opted out)" is honored by only setting
// NextProtos when the caller's own config left it unset. An
// SNI-promoted config always carries sniConfigFor's own
// GetConfigForClient, replacing any the caller set.
func buildListenTLSConfig(key bindKey, settings *ServerSettings) *tls.Config {
	if settings.TLSConfig == nil {
		return nil
	}
	multiHost := false
	for _, c := range snapshotContexts() {
		if c.Settings == settings || c.Settings.TLSConfig == nil {
			continue
		}
		for _, k := range bindKeysOf(c.Settings) {
			if k == key {
				multiHost = true
			}
		}
	}
	var cfg *tls.Config
	if multiHost {
		cfg = sniConfigFor(key.address, key.port)
	} else {
		cfg = settings.TLSConfig.Clone()
	}
	if cfg.NextProtos == nil {
		cfg.NextProtos = alpnProtocols(settings.disablesHTTP2())
	}
	return cfg
}

// openListener opens (or reuses) the TCP listener for key, matching
// spec §4.1: "for each bind address/port either reuse an existing
// listener or open a new one".
func openListener(key bindKey, settings *ServerSettings) (*ListenInfo, error) {
	listenersMu.Lock()
	defer listenersMu.Unlock()

	if info, ok := listeners[key]; ok {
		info.refs++
		if settings.TLSConfig != nil {
			// A joining context may be the one that turns a
			// single-host bind into a multi-host (SNI-dispatching)
			// one; buildListenTLSConfig re-checks multiHost against
			// the now-updated registry every time a context joins an
			// existing bind, not just when the bind is first opened
			// (spec §4.1's SNI promotion).
			info.TLSConfig = buildListenTLSConfig(key, settings)
		}
		return info, nil
	}

	addr := net.JoinHostPort(key.address, strconv.Itoa(key.port))
	ln, err := listenTCPReusePort(addr)
	if err != nil {
		return nil, fmt.Errorf("brisk: listen %s: %w", addr, err)
	}
	info := &ListenInfo{Listener: ln, Address: key.address, Port: key.port, refs: 1}
	info.TLSConfig = buildListenTLSConfig(key, settings)
	listeners[key] = info
	go acceptLoop(info)
	return info, nil
}

// closeListenerIfUnused stops the listener bound to key once no
// context references it anymore (spec §4.1 deregistration).
func closeListenerIfUnused(key bindKey) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	info, ok := listeners[key]
	if !ok {
		return
	}
	info.refs--
	if info.refs > 0 {
		return
	}
	delete(listeners, key)
	info.Listener.Close()
}

// Listen registers a ServerContext for settings/handler and opens (or
// joins) the listeners its bind addresses require. This is the public
// listen(settings, handler) operation of spec §6.
func Listen(settings *ServerSettings, handler Handler) (*ListenerHandle, error) {
	if distHost != "" {
		return listenViaDistRelay(settings, handler)
	}
	ctx := registerContext(settings, handler)
	for _, key := range bindKeysOf(settings) {
		if _, err := openListener(key, settings); err != nil {
			deregisterContext(ctx)
			return nil, err
		}
	}
	return &ListenerHandle{id: ctx.id}, nil
}

// StopListening deregisters the context and closes any listener no
// longer referenced by another context (spec §6).
func (h *ListenerHandle) StopListening() error {
	var ctx *ServerContext
	for _, c := range snapshotContexts() {
		if c.id == h.id {
			ctx = c
			break
		}
	}
	if ctx == nil {
		return nil
	}
	for _, key := range deregisterContext(ctx) {
		closeListenerIfUnused(key)
	}
	return nil
}
