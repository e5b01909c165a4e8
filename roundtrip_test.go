// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// canonicalize returns a copy of p with every struct's entries reordered
// into ascending hash order, recursively. A struct decoded off disk always
// comes back this way regardless of the order it was built in (spec's
// "Struct ordering" property), so a round-trip test must compare against
// this, not the literal construction order of the input tree.
func canonicalize(p ParamKind) ParamKind {
	switch v := p.(type) {
	case *ParamStruct:
		out := &ParamStruct{Entries: make([]StructEntry, len(v.Entries))}
		copy(out.Entries, v.Entries)
		sort.Slice(out.Entries, func(i, j int) bool { return out.Entries[i].Hash < out.Entries[j].Hash })
		for i := range out.Entries {
			out.Entries[i].Value = canonicalize(out.Entries[i].Value)
		}
		return out
	case *ParamList:
		out := &ParamList{Nodes: make([]ParamKind, len(v.Nodes))}
		for i, n := range v.Nodes {
			out.Nodes[i] = canonicalize(n)
		}
		return out
	default:
		return p
	}
}

// encodeToTemp encodes param into a fresh file under t.TempDir and reopens
// it for reading, the way a real paracobn file is always produced and
// later consumed as a seekable stream.
func encodeToTemp(t *testing.T, param *ParamStruct) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.prc")

	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if err := Encode(w, param); err != nil {
		w.Close()
		t.Fatalf("Encode failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close after encode: %v", err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen temp file: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRoundTripEmptyStruct(t *testing.T) {
	in := NewParamStruct()
	r := encodeToTemp(t, in)

	out, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Entries) != 0 {
		t.Errorf("got %d entries, want 0", len(out.Entries))
	}
}

func TestRoundTripScalars(t *testing.T) {
	in := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("flag"), Value: Bool(true)},
		StructEntry{Hash: NewHash40FromLabel("byte_val"), Value: U8(200)},
		StructEntry{Hash: NewHash40FromLabel("sbyte_val"), Value: I8(-5)},
		StructEntry{Hash: NewHash40FromLabel("short_val"), Value: I16(-1234)},
		StructEntry{Hash: NewHash40FromLabel("ushort_val"), Value: U16(54321)},
		StructEntry{Hash: NewHash40FromLabel("int_val"), Value: I32(-123456)},
		StructEntry{Hash: NewHash40FromLabel("uint_val"), Value: U32(123456789)},
		StructEntry{Hash: NewHash40FromLabel("float_val"), Value: Float(3.25)},
		StructEntry{Hash: NewHash40FromLabel("hash_val"), Value: Hash(NewHash40FromLabel("referenced_hash"))},
		StructEntry{Hash: NewHash40FromLabel("str_val"), Value: Str("hello world")},
	)

	r := encodeToTemp(t, in)
	out, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := canonicalize(in)
	if !want.Equal(out) {
		t.Errorf("round-tripped struct does not equal the original in ascending-hash order:\nwant: %#v\nout:  %#v", want, out)
	}
}

func TestRoundTripListAndNestedStruct(t *testing.T) {
	inner := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("x"), Value: Float(1)},
		StructEntry{Hash: NewHash40FromLabel("y"), Value: Float(2)},
		StructEntry{Hash: NewHash40FromLabel("z"), Value: Float(3)},
	)
	list := NewParamList(I32(10), I32(20))
	in := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("position"), Value: inner},
		StructEntry{Hash: NewHash40FromLabel("values"), Value: list},
	)

	r := encodeToTemp(t, in)
	out, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !canonicalize(in).Equal(out) {
		t.Errorf("round-tripped nested struct/list does not equal the original in ascending-hash order")
	}
}

// TestRoundTripStructOrderFollowsHashValueNotIndex exercises a struct that
// reuses an earlier-seen key (which was interned with a small hash_index)
// alongside a freshly-seen key whose hash value is smaller still. The
// on-disk table must decode in ascending hash-*value* order regardless of
// which key happened to be interned first.
func TestRoundTripStructOrderFollowsHashValueNotIndex(t *testing.T) {
	big := NewHash40(0xFFFFFFFFFF)
	small := NewHash40(0x1)

	in := NewParamStruct(
		// Interns "big" first, so it gets a small hash_index.
		StructEntry{Hash: big, Value: I32(100)},
		StructEntry{Hash: NewHash40FromLabel("marker"), Value: NewParamStruct(
			StructEntry{Hash: big, Value: I32(1)},   // reuses big's existing (small) index
			StructEntry{Hash: small, Value: I32(2)}, // first-seen here, gets a larger index
		)},
	)

	r := encodeToTemp(t, in)
	out, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !canonicalize(in).Equal(out) {
		t.Errorf("decoded struct order followed hash_index instead of hash value")
	}
}

func TestEncodeDedupesSharedReferenceEntries(t *testing.T) {
	shared := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("x"), Value: Float(0)},
		StructEntry{Hash: NewHash40FromLabel("y"), Value: Float(0)},
	)
	anotherShared := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("x"), Value: Float(0)},
		StructEntry{Hash: NewHash40FromLabel("y"), Value: Float(0)},
	)
	in := NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("first"), Value: shared},
		StructEntry{Hash: NewHash40FromLabel("second"), Value: anotherShared},
		StructEntry{Hash: NewHash40FromLabel("label_one"), Value: Str("shared_string")},
		StructEntry{Hash: NewHash40FromLabel("label_two"), Value: Str("shared_string")},
	)

	r := encodeToTemp(t, in)
	out, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !canonicalize(in).Equal(out) {
		t.Errorf("round trip through a deduplicated reference table changed the tree")
	}

	raw, err := os.ReadFile(r.Name())
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(raw, []byte("shared_string\x00")); n != 1 {
		t.Errorf("reference table holds %d copies of the shared string, want 1", n)
	}
	// Root table (4 rows, 32 bytes) + one shared 2-row table (16 bytes) +
	// one "shared_string\0" (14 bytes); without dedup it would be 92.
	if refSize := binary.LittleEndian.Uint32(raw[0xC:0x10]); refSize != 62 {
		t.Errorf("ref_size = %d, want 62 with both duplicates collapsed", refSize)
	}
}

func TestEncodeIsCanonical(t *testing.T) {
	build := func() *ParamStruct {
		return NewParamStruct(
			StructEntry{Hash: NewHash40FromLabel("a"), Value: I32(1)},
			StructEntry{Hash: NewHash40FromLabel("b"), Value: Str("same")},
			StructEntry{Hash: NewHash40FromLabel("c"), Value: Str("same")},
		)
	}

	path1 := filepath.Join(t.TempDir(), "a.prc")
	path2 := filepath.Join(t.TempDir(), "b.prc")

	for _, p := range []struct {
		path  string
		param *ParamStruct
	}{{path1, build()}, {path2, build()}} {
		w, err := os.Create(p.path)
		if err != nil {
			t.Fatal(err)
		}
		if err := Encode(w, p.param); err != nil {
			t.Fatal(err)
		}
		w.Close()
	}

	b1, err := os.ReadFile(path1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := os.ReadFile(path2)
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Error("Encode is not canonical: identical trees produced different bytes")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.prc")
	if err := os.WriteFile(path, []byte("not-a-prc-file-at-all"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := Decode(r); err != ErrBadMagic {
		t.Errorf("Decode on a bad-magic file = %v, want ErrBadMagic", err)
	}
}
