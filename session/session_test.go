// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateOpenDestroy(t *testing.T) {
	st := NewMemoryStore()
	s := st.Create(time.Hour)
	require.NotEmpty(t, s.ID)

	got, ok := st.Open(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	st.Destroy(s.ID)
	_, ok = st.Open(s.ID)
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	st := NewMemoryStore()
	s := st.Create(time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok := st.Open(s.ID)
	assert.False(t, ok)
	_ = s
}

func TestSessionCookieDefaults(t *testing.T) {
	s := newSession("x", time.Hour)
	assert.Equal(t, "/", s.CookiePath())
	assert.False(t, s.CookieSecure())
	s.Set(KeyCookiePath, "/app")
	s.Set(KeyCookieSecure, true)
	assert.Equal(t, "/app", s.CookiePath())
	assert.True(t, s.CookieSecure())
}
