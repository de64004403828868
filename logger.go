// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Loggers log events. Mirrors hemi_logger.go's registry-of-named-
// constructors idiom, narrowed to what an embeddable server actually
// needs: the access-log sink ServerSettings.AccessLoggers accepts.
package brisk

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Logger is the minimal sink ServerSettings accepts for access
// logging (spec §3: "access-log format + sink").
type Logger interface {
	Logf(f string, v ...any)
	Close()
}

var (
	loggersLock    sync.RWMutex
	loggerCreators = make(map[string]func(target string) Logger)
)

// RegisterLogger installs a named logger constructor, mirroring the
// teacher's RegisterLogger.
func RegisterLogger(sign string, create func(target string) Logger) {
	loggersLock.Lock()
	defer loggersLock.Unlock()
	if _, ok := loggerCreators[sign]; ok {
		panic("brisk: logger sign conflicts: " + sign)
	}
	loggerCreators[sign] = create
}

func createLogger(sign string, target string) Logger {
	loggersLock.RLock()
	defer loggersLock.RUnlock()
	if create := loggerCreators[sign]; create != nil {
		return create(target)
	}
	return nil
}

func init() {
	RegisterLogger("noop", func(string) Logger { return noopLogger{} })
	RegisterLogger("stderr", func(string) Logger { return newStdLogger(os.Stderr) })
	RegisterLogger("file", func(target string) Logger {
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return newStdLogger(os.Stderr)
		}
		return newStdLogger(f)
	})
}

// noopLogger is the zero-configuration default.
type noopLogger struct{}

func (noopLogger) Logf(f string, v ...any) {}
func (noopLogger) Close()                  {}

// stdLogger writes lines through log.Logger, closing the underlying
// file (if any) on Close.
type stdLogger struct {
	l      *log.Logger
	closer interface{ Close() error }
}

func newStdLogger(w *os.File) *stdLogger {
	l := &stdLogger{l: log.New(w, "", log.LstdFlags)}
	if w != os.Stderr && w != os.Stdout {
		l.closer = w
	}
	return l
}

func (l *stdLogger) Logf(f string, v ...any) { l.l.Printf(f, v...) }
func (l *stdLogger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

// accessLogLine formats one finalized request/response pair as peer
// address, method, raw request URL, status, bytes written and
// duration, one line per access logger.
func accessLogLine(req *Request, resp *Response) string {
	return fmt.Sprintf("%s %s %s %d %d %s",
		req.PeerAddr, req.Method, req.RequestURL, resp.StatusCode(), resp.BytesWritten(), req.elapsed())
}
