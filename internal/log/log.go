// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package log is a small leveled logger emitting one line per event with
// key=value pairs appended.
//
//	2025-01-01T00:00:00Z [INFO] display ready mode=HalfRefresh
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// ParseLevel accepts the level names case insensitively. Unknown names map
// to LevelInfo and ok is false.
func ParseLevel(s string) (l Level, ok bool) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, true
	case LevelInfo, "":
		return LevelInfo, true
	case LevelError:
		return LevelError, true
	}
	return LevelInfo, false
}

func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelError:
		return 2
	default:
		return 1
	}
}

var (
	mu       sync.Mutex
	logger   = stdlog.New(os.Stderr, "", 0)
	minLevel = LevelInfo
	now      = time.Now
)

// SetLevel drops every event below l.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects all events to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Enabled reports whether events at l are emitted.
func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l.rank() >= minLevel.rank()
}

func Debug(msg string, kv ...any) {
	emit(LevelDebug, msg, kv)
}

func Info(msg string, kv ...any) {
	emit(LevelInfo, msg, kv)
}

// Error logs msg with err as the first pair.
func Error(msg string, err error, kv ...any) {
	emit(LevelError, msg, append([]any{"err", err}, kv...))
}

func emit(l Level, msg string, kv []any) {
	if !Enabled(l) {
		return
	}
	var b strings.Builder
	b.WriteString(now().UTC().Format(time.RFC3339Nano))
	b.WriteString(" [")
	b.WriteString(string(l))
	b.WriteString("] ")
	b.WriteString(msg)
	// A trailing key without value is dropped.
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		fmt.Fprintf(&b, " %s=%v", k, kv[i+1])
	}
	logger.Println(b.String())
}
