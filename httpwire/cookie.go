// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpwire

import (
	"fmt"
	"strings"
)

// Cookie is one name/value pair plus the response-side attributes
// spec §4.4/§6 names: path, Max-Age/Expires for deletion, HttpOnly,
// Secure.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int // <0 means "omit", 0 means "delete now"
	HttpOnly bool
	Secure   bool
	deleted  bool
}

// CookieMultimap is the ordered multimap named in spec §3 ("cookies
// (ordered multimap)"). Per spec §4.3 "for each cookie name the first
// insertion order wins on single-key access".
type CookieMultimap struct {
	names  []string
	values map[string][]string
}

func NewCookieMultimap() *CookieMultimap {
	return &CookieMultimap{values: make(map[string][]string)}
}

func (m *CookieMultimap) add(name, value string) {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = append(m.values[name], value)
}

// Get returns the first value seen for name (first insertion wins).
func (m *CookieMultimap) Get(name string) (string, bool) {
	vs := m.values[name]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// All returns every value seen for name, in insertion order.
func (m *CookieMultimap) All(name string) []string {
	return m.values[name]
}

// ParseCookieHeader parses the Cookie request header
// ("name1=value1; name2=value2") into an ordered multimap, per
// spec §4.3's parseCookies option.
func ParseCookieHeader(header string) *CookieMultimap {
	m := NewCookieMultimap()
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			m.add(part, "")
			continue
		}
		name := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		if name == "" {
			continue
		}
		m.add(name, value)
	}
	return m
}

// DeletionCookie builds the immediate-expiry cookie spec §6 requires:
// "Max-Age=0 and Expires: Thu, 01 Jan 1970 00:00:00 GMT".
func DeletionCookie(name, path string, secure bool) Cookie {
	if path == "" {
		path = "/"
	}
	return Cookie{Name: name, Value: "", Path: path, MaxAge: 0, Secure: secure, deleted: true}
}

// WriteSetCookie formats one Set-Cookie header value.
func WriteSetCookie(c Cookie) string {
	path := c.Path
	if path == "" {
		path = "/"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s=%s; Path=%s", c.Name, c.Value, path)
	if c.deleted || c.MaxAge == 0 {
		sb.WriteString("; Max-Age=0; Expires=Thu, 01 Jan 1970 00:00:00 GMT")
	} else if c.MaxAge > 0 {
		fmt.Fprintf(&sb, "; Max-Age=%d", c.MaxAge)
	}
	if c.HttpOnly {
		sb.WriteString("; HttpOnly")
	}
	if c.Secure {
		sb.WriteString("; Secure")
	}
	return sb.String()
}
