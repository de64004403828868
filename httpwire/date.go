// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpwire

import (
	"sync/atomic"
	"time"
)

// clockFixture caches the RFC 1123 Date header value, refreshed once a
// second by a background goroutine, so the hot request path never
// formats a timestamp itself. Grounded in gorox's clockFixture
// (hemi/fixtures.go), simplified to a plain formatted string instead
// of a bit-packed integer: this module has no zero-allocation budget
// to defend the way the teacher's full server does, but the "format
// once, read many times" idiom is the same.
type clockFixture struct {
	current atomic.Value // string
}

var sharedClock = newClockFixture()

// httpDateLayout is RFC 1123 with the zone pinned to the literal "GMT"
// token RFC 7231 §7.1.1.1 requires on the wire; time.RFC1123 instead
// renders a UTC time's zone name as "UTC".
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

func newClockFixture() *clockFixture {
	c := &clockFixture{}
	c.current.Store(time.Now().UTC().Format(httpDateLayout))
	go c.run()
	return c
}

func (c *clockFixture) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for now := range ticker.C {
		c.current.Store(now.UTC().Format(httpDateLayout))
	}
}

func (c *clockFixture) Date() string {
	return c.current.Load().(string)
}

// CachedDate returns the current RFC 1123 date string, refreshed at
// most once per second. Used for the response Date header (spec §4.3
// "Date (RFC 822, formatted once)").
func CachedDate() string { return sharedClock.Date() }

// ParseHTTPDate parses an RFC 1123/RFC 850/ANSI C asctime date as
// permitted for the request Date and If-Modified-Since-style headers.
// time.Parse with the three historical layouts mirrors what
// net/http.ParseTime does; this module reimplements it locally rather
// than importing net/http for one helper.
func ParseHTTPDate(value string) (time.Time, bool) {
	layouts := [...]string{time.RFC1123, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
