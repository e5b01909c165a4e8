// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// FileOffsets are the two absolute positions a schema reader needs to
// resolve a Hash or String param without decoding the whole file: where
// the hash table starts and where the reference table starts.
type FileOffsets struct {
	Hashes   int64
	RefTable int64
}

// Prepare reads the 16-byte header from r, positioned at the start of a
// paracobn file (magic included), and returns the offsets needed to read
// individual fields directly. It does not validate the magic; callers
// that need that check should use Decode, or check it themselves first.
func Prepare(r io.ReadSeeker) (FileOffsets, error) {
	if _, err := r.Seek(8, io.SeekCurrent); err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}
	hashesSize, err := readU32(r)
	if err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}
	refSize, err := readU32(r)
	if err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}

	hashes, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}
	if _, err := r.Seek(int64(hashesSize), io.SeekCurrent); err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}
	refTable, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}
	if _, err := r.Seek(int64(refSize), io.SeekCurrent); err != nil {
		return FileOffsets{}, ioError(err, r, nil)
	}

	return FileOffsets{Hashes: hashes, RefTable: refTable}, nil
}

// StructData is what reading a struct's header gives a schema caller:
// enough to binary-search its reference-table run for a given key without
// reading any child param.
type StructData struct {
	Position  int64
	Len       uint32
	RefOffset uint32
}

// ReadStructData reads a struct's len and ref_offset fields, leaving the
// reader positioned back at the struct's tag byte.
func ReadStructData(r io.ReadSeeker) (StructData, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return StructData{}, ioError(err, r, nil)
	}
	if err := CheckType(r, TagStruct); err != nil {
		return StructData{}, err
	}
	length, err := readU32(r)
	if err != nil {
		return StructData{}, ioError(err, r, nil)
	}
	refOffset, err := readU32(r)
	if err != nil {
		return StructData{}, ioError(err, r, nil)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return StructData{}, ioError(err, r, nil)
	}
	return StructData{Position: pos, Len: length, RefOffset: refOffset}, nil
}

// SearchChild binary searches sd's reference-table run for hash (the
// table is kept sorted by Hash40 value on disk, each row's hash index
// being dereferenced through the hash table) and, on a hit, leaves the
// reader positioned at the start of that child's own param. On a miss it
// returns a ParamNotFound error and leaves the reader position unspecified.
func SearchChild(r io.ReadSeeker, sd StructData, hash Hash40, offs FileOffsets) error {
	low, high := int64(0), int64(sd.Len)-1
	for low <= high {
		i := (low + high) / 2
		if _, err := r.Seek(offs.RefTable+int64(sd.RefOffset)+i*8, io.SeekStart); err != nil {
			return ioError(err, r, nil)
		}
		hashIndex, err := readU32(r)
		if err != nil {
			return ioError(err, r, nil)
		}
		paramOffset, err := readU32(r)
		if err != nil {
			return ioError(err, r, nil)
		}

		if _, err := r.Seek(offs.Hashes+int64(hashIndex)*8, io.SeekStart); err != nil {
			return ioError(err, r, nil)
		}
		raw, err := readU64(r)
		if err != nil {
			return ioError(err, r, nil)
		}
		readHash := NewHash40(raw)

		switch {
		case readHash < hash:
			low = i + 1
		case readHash > hash:
			high = i - 1
		default:
			if _, err := r.Seek(sd.Position+int64(paramOffset), io.SeekStart); err != nil {
				return ioError(err, r, nil)
			}
			return nil
		}
	}
	return &SchemaError{Kind: KindParamNotFound, NotFound: hash, Position: sd.Position}
}

// ReadChild seeks to the child keyed by hash within sd and invokes read to
// decode it, prefixing any error's path with hash so a caller can see
// which field of which struct failed.
func ReadChild[T any](r io.ReadSeeker, sd StructData, hash Hash40, offs FileOffsets, read func(io.ReadSeeker, FileOffsets) (T, error)) (T, error) {
	var zero T
	if err := SearchChild(r, sd, hash, offs); err != nil {
		return zero, err
	}
	v, err := read(r, offs)
	if err != nil {
		return zero, prependPath(err, PathPart{isHash: true, hash: hash})
	}
	return v, nil
}

// ReadListElems decodes a List param's children with read, prefixing any
// error's path with the failing index.
func ReadListElems[T any](r io.ReadSeeker, offs FileOffsets, read func(io.ReadSeeker, FileOffsets) (T, error)) ([]T, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioError(err, r, nil)
	}
	if err := CheckType(r, TagList); err != nil {
		return nil, err
	}
	length, err := readU32(r)
	if err != nil {
		return nil, ioError(err, r, nil)
	}

	out := make([]T, length)
	for i := uint32(0); i < length; i++ {
		if _, err := r.Seek(start+5+int64(i)*4, io.SeekStart); err != nil {
			return nil, ioError(err, r, nil)
		}
		offset, err := readU32(r)
		if err != nil {
			return nil, ioError(err, r, nil)
		}
		if _, err := r.Seek(start+int64(offset), io.SeekStart); err != nil {
			return nil, ioError(err, r, nil)
		}
		v, err := read(r, offs)
		if err != nil {
			return nil, prependPath(err, PathPart{index: i})
		}
		out[i] = v
	}
	return out, nil
}

// CheckType reads one tag byte and confirms it matches expected, the base
// check every typed field reader performs before decoding its payload.
func CheckType(r io.ReadSeeker, expected uint8) error {
	prePos, posErr := r.Seek(0, io.SeekCurrent)
	got, err := readU8(r)
	if err != nil {
		return ioError(err, r, nil)
	}
	if got != expected {
		pos := prePos
		if posErr != nil {
			pos = -1
		}
		return &SchemaError{Kind: KindWrongParamNumber, Expected: expected, Received: got, Position: pos}
	}
	return nil
}

// ReadBool reads a Bool field.
func ReadBool(r io.ReadSeeker, _ FileOffsets) (bool, error) {
	if err := CheckType(r, TagBool); err != nil {
		return false, err
	}
	v, err := readU8(r)
	if err != nil {
		return false, ioError(err, r, nil)
	}
	return v != 0, nil
}

// ReadI8 reads an I8 field.
func ReadI8(r io.ReadSeeker, _ FileOffsets) (int8, error) {
	if err := CheckType(r, TagI8); err != nil {
		return 0, err
	}
	v, err := readU8(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return int8(v), nil
}

// ReadU8 reads a U8 field.
func ReadU8(r io.ReadSeeker, _ FileOffsets) (uint8, error) {
	if err := CheckType(r, TagU8); err != nil {
		return 0, err
	}
	v, err := readU8(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return v, nil
}

// ReadI16 reads an I16 field.
func ReadI16(r io.ReadSeeker, _ FileOffsets) (int16, error) {
	if err := CheckType(r, TagI16); err != nil {
		return 0, err
	}
	v, err := readU16(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return int16(v), nil
}

// ReadU16 reads a U16 field.
func ReadU16(r io.ReadSeeker, _ FileOffsets) (uint16, error) {
	if err := CheckType(r, TagU16); err != nil {
		return 0, err
	}
	v, err := readU16(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return v, nil
}

// ReadI32 reads an I32 field.
func ReadI32(r io.ReadSeeker, _ FileOffsets) (int32, error) {
	if err := CheckType(r, TagI32); err != nil {
		return 0, err
	}
	v, err := readU32(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return int32(v), nil
}

// ReadU32 reads a U32 field.
func ReadU32(r io.ReadSeeker, _ FileOffsets) (uint32, error) {
	if err := CheckType(r, TagU32); err != nil {
		return 0, err
	}
	v, err := readU32(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return v, nil
}

// ReadFloat reads a Float field.
func ReadFloat(r io.ReadSeeker, _ FileOffsets) (float32, error) {
	if err := CheckType(r, TagFloat); err != nil {
		return 0, err
	}
	v, err := readU32(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	return math.Float32frombits(v), nil
}

// ReadHash reads a Hash field, resolving its hash-table index.
func ReadHash(r io.ReadSeeker, offs FileOffsets) (Hash40, error) {
	if err := CheckType(r, TagHash); err != nil {
		return 0, err
	}
	idx, err := readU32(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	end, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	if _, err := r.Seek(offs.Hashes+int64(idx)*8, io.SeekStart); err != nil {
		return 0, ioError(err, r, nil)
	}
	raw, err := readU64(r)
	if err != nil {
		return 0, ioError(err, r, nil)
	}
	if _, err := r.Seek(end, io.SeekStart); err != nil {
		return 0, ioError(err, r, nil)
	}
	return NewHash40(raw), nil
}

// ReadString reads a String field out of the reference table.
func ReadString(r io.ReadSeeker, offs FileOffsets) (string, error) {
	if err := CheckType(r, TagStr); err != nil {
		return "", err
	}
	off, err := readU32(r)
	if err != nil {
		return "", ioError(err, r, nil)
	}
	end, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", ioError(err, r, nil)
	}
	if _, err := r.Seek(offs.RefTable+int64(off), io.SeekStart); err != nil {
		return "", ioError(err, r, nil)
	}
	var buf []byte
	for {
		b, err := readU8(r)
		if err != nil {
			return "", ioError(err, r, nil)
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	if _, err := r.Seek(end, io.SeekStart); err != nil {
		return "", ioError(err, r, nil)
	}
	return string(buf), nil
}

// PathPart is one step of a SchemaError's path: the struct key or list
// index that was being read when the error occurred.
type PathPart struct {
	hash   Hash40
	index  uint32
	isHash bool
}

// HashPath builds a struct-key path step.
func HashPath(h Hash40) PathPart { return PathPart{hash: h, isHash: true} }

// IndexPath builds a list-index path step.
func IndexPath(i uint32) PathPart { return PathPart{index: i} }

func (p PathPart) String() string {
	if p.isHash {
		return p.hash.String()
	}
	return fmt.Sprintf("[%d]", p.index)
}

// SchemaErrorKind distinguishes the three ways a schema read can fail.
type SchemaErrorKind int

const (
	// KindWrongParamNumber means the tag byte at Position didn't match
	// what the caller's reader function expected.
	KindWrongParamNumber SchemaErrorKind = iota
	// KindParamNotFound means a struct had no entry for NotFound.
	KindParamNotFound
	// KindIO wraps an underlying I/O failure (including short reads).
	KindIO
)

// SchemaError is returned by every schema.go reader. Path records which
// struct keys and list indices were being traversed when the failure
// happened, read outermost-first.
type SchemaError struct {
	Path     []PathPart
	Position int64
	Kind     SchemaErrorKind
	Expected uint8
	Received uint8
	NotFound Hash40
	Err      error
}

func (e *SchemaError) Error() string {
	path := formatPath(e.Path)
	switch e.Kind {
	case KindWrongParamNumber:
		return fmt.Sprintf("prc: schema: at %s (offset %d): wrong param tag, expected %d got %d", path, e.Position, e.Expected, e.Received)
	case KindParamNotFound:
		return fmt.Sprintf("prc: schema: at %s (offset %d): key %s not found", path, e.Position, e.NotFound)
	default:
		return fmt.Sprintf("prc: schema: at %s (offset %d): %v", path, e.Position, e.Err)
	}
}

func (e *SchemaError) Unwrap() error { return e.Err }

func formatPath(path []PathPart) string {
	if len(path) == 0 {
		return "<root>"
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.String()
	}
	return strings.Join(parts, ".")
}

func prependPath(err error, part PathPart) error {
	se, ok := err.(*SchemaError)
	if !ok {
		return err
	}
	se.Path = append([]PathPart{part}, se.Path...)
	return se
}

func ioError(err error, r io.ReadSeeker, path []PathPart) error {
	pos, posErr := r.Seek(0, io.SeekCurrent)
	if posErr != nil {
		pos = -1
	}
	return &SchemaError{Kind: KindIO, Position: pos, Err: err, Path: path}
}
