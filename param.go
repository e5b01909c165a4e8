// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

// Wire tags, 1-12, as laid out on disk. Tag 0 is never valid.
const (
	TagBool = 1 + iota
	TagI8
	TagU8
	TagI16
	TagU16
	TagI32
	TagU32
	TagFloat
	TagHash
	TagStr
	TagList
	TagStruct
)

// ParamKind is the closed set of 12 param alternatives. It is modeled as an
// interface implemented by exactly the types declared in this file, not as
// an open hierarchy: every consumer dispatches with a single type switch.
type ParamKind interface {
	// Tag returns this param's wire tag (1-12).
	Tag() uint8
	// Equal reports whether two params have the same tag and recursively
	// equal payload. Container equality is order-sensitive: insertion
	// order is part of a ParamList/ParamStruct's identity.
	Equal(other ParamKind) bool
}

// Scalar param kinds. Each is a defined type over its Go payload type so it
// can implement ParamKind directly.
type (
	Bool  bool
	I8    int8
	U8    uint8
	I16   int16
	U16   uint16
	I32   int32
	U32   uint32
	Float float32
	Hash  Hash40
	Str   string
)

func (Bool) Tag() uint8  { return TagBool }
func (I8) Tag() uint8    { return TagI8 }
func (U8) Tag() uint8    { return TagU8 }
func (I16) Tag() uint8   { return TagI16 }
func (U16) Tag() uint8   { return TagU16 }
func (I32) Tag() uint8   { return TagI32 }
func (U32) Tag() uint8   { return TagU32 }
func (Float) Tag() uint8 { return TagFloat }
func (Hash) Tag() uint8  { return TagHash }
func (Str) Tag() uint8   { return TagStr }

func (v Bool) Equal(o ParamKind) bool  { x, ok := o.(Bool); return ok && v == x }
func (v I8) Equal(o ParamKind) bool    { x, ok := o.(I8); return ok && v == x }
func (v U8) Equal(o ParamKind) bool    { x, ok := o.(U8); return ok && v == x }
func (v I16) Equal(o ParamKind) bool   { x, ok := o.(I16); return ok && v == x }
func (v U16) Equal(o ParamKind) bool   { x, ok := o.(U16); return ok && v == x }
func (v I32) Equal(o ParamKind) bool   { x, ok := o.(I32); return ok && v == x }
func (v U32) Equal(o ParamKind) bool   { x, ok := o.(U32); return ok && v == x }
func (v Float) Equal(o ParamKind) bool { x, ok := o.(Float); return ok && v == x }
func (v Hash) Equal(o ParamKind) bool  { x, ok := o.(Hash); return ok && v == x }
func (v Str) Equal(o ParamKind) bool   { x, ok := o.(Str); return ok && v == x }

// ParamList is an ordered sequence of params; insertion order is
// significant on the wire and every index is addressable.
type ParamList struct {
	Nodes []ParamKind
}

// NewParamList builds a ParamList from a slice of children.
func NewParamList(nodes ...ParamKind) *ParamList {
	return &ParamList{Nodes: nodes}
}

func (*ParamList) Tag() uint8 { return TagList }

func (v *ParamList) Equal(o ParamKind) bool {
	x, ok := o.(*ParamList)
	if !ok || len(v.Nodes) != len(x.Nodes) {
		return false
	}
	for i, n := range v.Nodes {
		if !n.Equal(x.Nodes[i]) {
			return false
		}
	}
	return true
}

// StructEntry is one (key, value) pair of a ParamStruct, in insertion order.
type StructEntry struct {
	Hash  Hash40
	Value ParamKind
}

// ParamStruct is an ordered sequence of (Hash40, ParamKind) pairs. Insertion
// order is preserved independent of the on-disk sorted-by-hash table; it is
// not backed by a hash-indexed container. Get looks a key up by linear scan.
type ParamStruct struct {
	Entries []StructEntry
}

// NewParamStruct builds a ParamStruct from entries, preserving their order.
func NewParamStruct(entries ...StructEntry) *ParamStruct {
	return &ParamStruct{Entries: entries}
}

func (*ParamStruct) Tag() uint8 { return TagStruct }

func (v *ParamStruct) Equal(o ParamKind) bool {
	x, ok := o.(*ParamStruct)
	if !ok || len(v.Entries) != len(x.Entries) {
		return false
	}
	for i, e := range v.Entries {
		oe := x.Entries[i]
		if e.Hash != oe.Hash || !e.Value.Equal(oe.Value) {
			return false
		}
	}
	return true
}

// Get returns the value for the first entry with the given key, materializing
// a linear scan; callers that need repeated lookups should build their own
// map from Entries.
func (v *ParamStruct) Get(h Hash40) (ParamKind, bool) {
	for _, e := range v.Entries {
		if e.Hash == h {
			return e.Value, true
		}
	}
	return nil, false
}

// Push appends a (hash, value) pair, preserving insertion order.
func (v *ParamStruct) Push(h Hash40, value ParamKind) {
	v.Entries = append(v.Entries, StructEntry{Hash: h, Value: value})
}

// As extracts the concrete T stored in p, failing with ErrWrongKind if p
// holds a different variant. It serves both the borrowing and consuming
// extraction the format calls for in other languages: Go values are always
// copied out of the interface.
func As[T ParamKind](p ParamKind) (T, error) {
	if v, ok := p.(T); ok {
		return v, nil
	}
	var zero T
	return zero, ErrWrongKind
}
