// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package streamio

import (
	"errors"
	"io"
	"time"
)

// ErrRequestTimeout is raised by TimeoutReader once the request's
// wall-clock budget is exhausted.
var ErrRequestTimeout = errors.New("streamio: request wall-clock time exceeded")

// TimeoutReader wraps the body reader chain with a wall-clock deadline
// measured from a fixed start time rather than per-read inactivity; it
// checks the deadline on every Read, matching spec §4.3a step 1 ("on
// every read, checks wall-clock delta against the request's
// time-created"). A zero Budget disables the check entirely — spec §9
// documents maxRequestTime == 0 as "no limit", treated here as
// disabled rather than guessed at.
type TimeoutReader struct {
	R       io.Reader
	Started time.Time
	Budget  time.Duration // <=0 disables the check
}

func NewTimeoutReader(r io.Reader, started time.Time, budget time.Duration) *TimeoutReader {
	return &TimeoutReader{R: r, Started: started, Budget: budget}
}

func (t *TimeoutReader) Read(p []byte) (int, error) {
	if t.Budget > 0 && time.Since(t.Started) > t.Budget {
		return 0, ErrRequestTimeout
	}
	n, err := t.R.Read(p)
	if err == nil && t.Budget > 0 && time.Since(t.Started) > t.Budget {
		return n, ErrRequestTimeout
	}
	return n, err
}
