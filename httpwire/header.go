// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package httpwire implements the RFC 7230 request-line/header parser,
// a cached RFC 1123 date formatter, and the cookie codec shared by
// Request and Response. It knows nothing about connections, bodies, or
// handlers — only about bytes on the wire.
package httpwire

import (
	"net/textproto"
	"strings"
)

// HeaderMap is a case-insensitive, insertion-ordered, multi-valued
// header store, matching spec §3's "headers (case-insensitive,
// multi-valued)" requirement on both Request and Response.
type HeaderMap struct {
	names  []string // canonical names, in insertion order of first occurrence
	values map[string][]string
}

func NewHeaderMap() *HeaderMap {
	return &HeaderMap{values: make(map[string][]string)}
}

func canon(name string) string { return textproto.CanonicalMIMEHeaderKey(name) }

// Add appends a value, preserving any existing values under name.
func (h *HeaderMap) Add(name, value string) {
	name = canon(name)
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = append(h.values[name], value)
}

// Set replaces all values under name with a single value.
func (h *HeaderMap) Set(name, value string) {
	name = canon(name)
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = []string{value}
}

// Get returns the first value under name, if any.
func (h *HeaderMap) Get(name string) string {
	vs := h.values[canon(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value under name, in insertion order.
func (h *HeaderMap) Values(name string) []string {
	return h.values[canon(name)]
}

// Has reports whether any value is present under name.
func (h *HeaderMap) Has(name string) bool {
	return len(h.values[canon(name)]) > 0
}

// Del removes every value under name.
func (h *HeaderMap) Del(name string) {
	name = canon(name)
	if _, ok := h.values[name]; !ok {
		return
	}
	delete(h.values, name)
	for i, n := range h.names {
		if n == name {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
}

// Each calls fn once per (name, value) pair in insertion order, with
// repeated header names re-visited in the order their values were
// added. This is the order in which response headers are written to
// the wire.
func (h *HeaderMap) Each(fn func(name, value string)) {
	for _, name := range h.names {
		for _, v := range h.values[name] {
			fn(name, v)
		}
	}
}

// CommaList splits a comma-separated header value into trimmed,
// non-empty tokens, used for Accept-Encoding and Connection.
func CommaList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
