// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log is a small leveled logging helper, adapted from the pattern
// the teacher library keeps in its own internal log subpackage: a Logger
// interface, a level filter wrapping it, and a Helper offering
// Debugf/Infof/Warnf/Errorf convenience methods.
package log

import (
	"fmt"
	"io"
	"sync"
)

// Level is a logging severity.
type Level int

// Levels, lowest to highest severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every helper writes through.
type Logger interface {
	Log(level Level, msg string) error
}

// stdLogger writes leveled lines to an io.Writer.
type stdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger wraps an io.Writer as a Logger.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "[%s] %s\n", level, msg)
	return err
}

// FilterOption configures a filtering Logger.
type FilterOption func(*filterLogger)

// FilterLevel drops any log below the given level.
func FilterLevel(level Level) FilterOption {
	return func(f *filterLogger) { f.level = level }
}

type filterLogger struct {
	next  Logger
	level Level
}

// NewFilter wraps a Logger so only messages at or above the configured
// level reach it.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filterLogger{next: next, level: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filterLogger) Log(level Level, msg string) error {
	if level < f.level {
		return nil
	}
	return f.next.Log(level, msg)
}

// Helper adds leveled convenience methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper builds a Helper around a Logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func (h *Helper) Debugf(format string, args ...interface{}) { h.log(LevelDebug, format, args...) }

// Infof logs at info level.
func (h *Helper) Infof(format string, args ...interface{}) { h.log(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (h *Helper) Warnf(format string, args ...interface{}) { h.log(LevelWarn, format, args...) }

// Errorf logs at error level.
func (h *Helper) Errorf(format string, args ...interface{}) { h.log(LevelError, format, args...) }
