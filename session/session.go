// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package session implements the opaque key/value Session object and
// its Store interface named in spec §3/§4.4. The distilled spec does
// not specify a storage backend; this is a SPEC_FULL.md supplement
// (§4.10): an in-memory default store plus a small interface so a
// caller can swap in a Redis- or SQL-backed implementation, the same
// way gorox lets a webapp swap in a different Stater/Cacher without
// this module depending on either.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Reserved keys spec §3 calls out by name.
const (
	KeyCookiePath   = "$sessionCookiePath"
	KeyCookieSecure = "$sessionCookieSecure"
)

// Session is an opaque key/value store identified by an ID placed in
// a cookie (spec §3).
type Session struct {
	ID      string
	mu      sync.RWMutex
	values  map[string]any
	expires time.Time
}

func newSession(id string, ttl time.Duration) *Session {
	return &Session{ID: id, values: make(map[string]any), expires: time.Now().Add(ttl)}
}

func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Session) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// CookiePath and CookieSecure read back the two reserved keys stored
// by Response.StartSession (spec §4.4).
func (s *Session) CookiePath() string {
	if v, ok := s.Get(KeyCookiePath); ok {
		if p, ok := v.(string); ok {
			return p
		}
	}
	return "/"
}

func (s *Session) CookieSecure() bool {
	if v, ok := s.Get(KeyCookieSecure); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func (s *Session) expired(now time.Time) bool {
	return !s.expires.IsZero() && now.After(s.expires)
}

// Store is the collaborator a ServerSettings may supply to open and
// create sessions. Implementations must be safe for concurrent use,
// since sessions are looked up and created from any connection's
// driver goroutine.
type Store interface {
	// Open resolves a session-id cookie value to an existing, unexpired
	// session. ok is false if the id is unknown or has expired.
	Open(id string) (*Session, bool)
	// Create allocates a fresh session with a new random ID.
	Create(ttl time.Duration) *Session
	// Destroy removes a session by ID (Response.TerminateSession).
	Destroy(id string)
}

// MemoryStore is the default in-process Store, grounded in gorox's
// pattern of a small interface with a trivial built-in implementation
// (hemi/component.go's Stater/Cacher registries) adapted to this
// module's narrower session concern.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (st *MemoryStore) Open(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(time.Now()) {
		delete(st.sessions, id)
		return nil, false
	}
	return s, true
}

func (st *MemoryStore) Create(ttl time.Duration) *Session {
	id := newSessionID()
	s := newSession(id, ttl)
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s
}

func (st *MemoryStore) Destroy(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func newSessionID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
