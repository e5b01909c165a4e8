// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import "testing"

func TestNewHash40FromLabel(t *testing.T) {
	labels := []string{"", "fighter", "vec3", "agent_param"}

	for _, label := range labels {
		t.Run(label, func(t *testing.T) {
			got := NewHash40FromLabel(label)
			if got.Len() != uint8(len(label)) {
				t.Errorf("Len() = %d, want %d", got.Len(), len(label))
			}
			if again := NewHash40FromLabel(label); again != got {
				t.Errorf("NewHash40FromLabel(%q) is not deterministic: %#x != %#x", label, uint64(got), uint64(again))
			}
		})
	}
}

func TestHash40LenClamp(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	h := NewHash40FromLabel(string(long))
	if h.Len() != 0xFF {
		t.Errorf("Len() = %d, want 0xff for a 300-byte label", h.Len())
	}
}

func TestLabelMapResolve(t *testing.T) {
	m := &LabelMap{labels: make(map[Hash40]string)}
	m.AddLabel("vec3")

	h, err := m.Resolve("vec3")
	if err != nil {
		t.Fatalf("Resolve(vec3) failed: %v", err)
	}
	if h != NewHash40FromLabel("vec3") {
		t.Errorf("Resolve(vec3) = %#x, want %#x", uint64(h), uint64(NewHash40FromLabel("vec3")))
	}

	m.SetStrict(true)
	if _, err := m.Resolve("not_a_known_label"); err == nil {
		t.Error("Resolve with strict=true and an unknown label should fail")
	}

	m.SetStrict(false)
	h2, err := m.Resolve("not_a_known_label")
	if err != nil {
		t.Fatalf("Resolve with strict=false should fall back to a computed hash: %v", err)
	}
	if h2 != NewHash40FromLabel("not_a_known_label") {
		t.Error("Resolve fallback did not compute the algorithmic hash")
	}
}

func TestHash40String(t *testing.T) {
	m := &LabelMap{labels: make(map[Hash40]string)}
	h := NewHash40FromLabel("test_label")
	m.AddLabel("test_label")

	old := defaultLabels
	defaultLabels = m
	defer func() { defaultLabels = old }()

	if got := h.String(); got != "test_label" {
		t.Errorf("String() = %q, want %q", got, "test_label")
	}

	unknown := NewHash40(0x1234567890)
	if got := unknown.String(); got == "" {
		t.Error("String() on an unlabeled hash should fall back to a hex literal, not empty")
	}
}
