// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import "testing"

func TestParamStructGetAndPush(t *testing.T) {
	s := NewParamStruct()
	hA := NewHash40FromLabel("a")
	hB := NewHash40FromLabel("b")

	s.Push(hA, I32(1))
	s.Push(hB, I32(2))

	v, ok := s.Get(hA)
	if !ok {
		t.Fatal("Get(a) reported missing after Push")
	}
	if got, err := As[I32](v); err != nil || got != 1 {
		t.Errorf("Get(a) = %v, err %v, want I32(1)", v, err)
	}

	if _, ok := s.Get(NewHash40FromLabel("missing")); ok {
		t.Error("Get on an absent key should report false")
	}
}

func TestParamStructEqualIsOrderSensitive(t *testing.T) {
	hA := NewHash40FromLabel("a")
	hB := NewHash40FromLabel("b")

	s1 := NewParamStruct(StructEntry{Hash: hA, Value: I32(1)}, StructEntry{Hash: hB, Value: I32(2)})
	s2 := NewParamStruct(StructEntry{Hash: hB, Value: I32(2)}, StructEntry{Hash: hA, Value: I32(1)})

	if s1.Equal(s2) {
		t.Error("ParamStruct.Equal must be order-sensitive on entry sequence")
	}
	if !s1.Equal(s1) {
		t.Error("ParamStruct.Equal should be reflexive")
	}
}

func TestParamListEqual(t *testing.T) {
	l1 := NewParamList(I32(1), I32(2))
	l2 := NewParamList(I32(2), I32(1))
	l3 := NewParamList(I32(1), I32(2))

	if l1.Equal(l2) {
		t.Error("ParamList.Equal must be order-sensitive")
	}
	if !l1.Equal(l3) {
		t.Error("ParamList.Equal should report equal lists as equal")
	}
}

func TestAsWrongKind(t *testing.T) {
	var p ParamKind = I32(5)
	if _, err := As[U32](p); err != ErrWrongKind {
		t.Errorf("As[U32] on an I32 should fail with ErrWrongKind, got %v", err)
	}
	if v, err := As[I32](p); err != nil || v != 5 {
		t.Errorf("As[I32] on an I32 should succeed, got %v, %v", v, err)
	}
}
