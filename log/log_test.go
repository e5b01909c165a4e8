// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdLoggerFormatsLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf)

	if err := l.Log(LevelWarn, "disk almost full"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "[WARN]") || !strings.Contains(got, "disk almost full") {
		t.Errorf("Log output = %q, want it to contain level and message", got)
	}
}

func TestFilterDropsBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewFilter(NewStdLogger(&buf), FilterLevel(LevelWarn))

	if err := l.Log(LevelInfo, "should be dropped"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected info-level log to be filtered out, got %q", buf.String())
	}

	if err := l.Log(LevelError, "should pass through"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if !strings.Contains(buf.String(), "should pass through") {
		t.Errorf("expected error-level log to pass the filter, got %q", buf.String())
	}
}

func TestHelperConvenienceMethods(t *testing.T) {
	var buf bytes.Buffer
	h := NewHelper(NewStdLogger(&buf))

	h.Debugf("d=%d", 1)
	h.Infof("i=%d", 2)
	h.Warnf("w=%d", 3)
	h.Errorf("e=%d", 4)

	got := buf.String()
	for _, want := range []string{"[DEBUG] d=1", "[INFO] i=2", "[WARN] w=3", "[ERROR] e=4"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q, got:\n%s", want, got)
		}
	}
}

func TestHelperOnNilLoggerDoesNotPanic(t *testing.T) {
	h := NewHelper(nil)
	h.Errorf("no sink configured, this must not panic")
}

func TestNilHelperDoesNotPanic(t *testing.T) {
	var h *Helper
	h.Infof("calling through a nil *Helper must not panic")
}
