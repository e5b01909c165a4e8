// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"os"
	"path/filepath"
	"testing"
)

func fixtureStruct() *ParamStruct {
	return NewParamStruct(
		StructEntry{Hash: NewHash40FromLabel("name"), Value: Str("Mario")},
		StructEntry{Hash: NewHash40FromLabel("weight"), Value: Float(1.0)},
	)
}

func TestSaveThenOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fighter.prc")
	in := fixtureStruct()

	if err := Save(path, in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !canonicalize(in).Equal(out) {
		t.Errorf("Open result does not match the saved tree")
	}
}

func TestNewMapsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fighter.prc")
	if err := Save(path, fixtureStruct()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := New(path, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if f.Root == nil {
		t.Fatal("New did not populate Root")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewBadMagicReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.prc")
	if err := os.WriteFile(path, []byte("definitely not paracobn"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path, nil); err != ErrBadMagic {
		t.Errorf("New on a bad-magic file = %v, want ErrBadMagic", err)
	}
}

func TestNewBytesDoesNotOwnAFile(t *testing.T) {
	var buf []byte
	{
		path := filepath.Join(t.TempDir(), "fighter.prc")
		if err := Save(path, fixtureStruct()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		var err error
		buf, err = os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
	}

	f, err := NewBytes(buf, nil)
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if !canonicalize(fixtureStruct()).Equal(f.Root) {
		t.Error("NewBytes result does not match the encoded tree")
	}
	// NewBytes never mmap'd anything, so Close must be a safe no-op rather
	// than attempting to unmap a plain byte slice.
	if err := f.Close(); err != nil {
		t.Errorf("Close on a NewBytes-backed File failed: %v", err)
	}
}

func TestOpenRespectsStrictOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fighter.prc")
	if err := Save(path, fixtureStruct()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	defer DefaultLabelMap().SetStrict(false)

	if _, err := Open(path, &Options{Strict: true}); err != nil {
		t.Fatalf("Open with Strict=true failed decoding: %v", err)
	}
	if !DefaultLabelMap().strict {
		t.Error("Open with Options.Strict=true should enable strict label resolution globally")
	}
}
