// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// magic is the 8-byte signature every paracobn file begins with.
var magic = [8]byte{'p', 'a', 'r', 'a', 'c', 'o', 'b', 'n'}

// fileOffsets are the absolute positions of the hash table and reference
// table, established once at the start of a decode or schema-read.
type fileOffsets struct {
	hashTablePos int64
	refTablePos  int64
}

// refEntry is one (hash_index, param_offset) row of an on-disk Struct
// record in the reference table.
type refEntry struct {
	hashIndex   uint32
	paramOffset uint32
}

// decoder walks a seekable paracobn stream and materializes a complete
// ParamStruct tree, caching struct reference-table records by their
// ref_offset so two Struct nodes sharing a ref_offset see byte-identical
// orderings (spec's caching invariant).
type decoder struct {
	r         io.ReadSeeker
	offs      fileOffsets
	hashTable []Hash40
	refCache  map[uint32][]refEntry
}

// Decode reads a complete paracobn param tree from r, positioned at the
// start of the header. Random access is required: the body, hash table and
// reference table are read out of sequence as the tree is walked.
func Decode(r io.ReadSeeker) (*ParamStruct, error) {
	d := &decoder{r: r, refCache: make(map[uint32][]refEntry)}

	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	var got [8]byte
	if err := readFull(r, got[:]); err != nil {
		return nil, err
	}
	if got != magic {
		return nil, ErrBadMagic
	}

	hashesSize, err := readU32(r)
	if err != nil {
		return nil, err
	}
	refSize, err := readU32(r)
	if err != nil {
		return nil, err
	}

	d.offs.hashTablePos = base + 0x10
	d.offs.refTablePos = d.offs.hashTablePos + int64(hashesSize)
	paramStart := d.offs.refTablePos + int64(refSize)

	if hashesSize%8 != 0 {
		return nil, ErrOutsideBoundary
	}
	d.hashTable = make([]Hash40, hashesSize/8)
	if _, err := r.Seek(d.offs.hashTablePos, io.SeekStart); err != nil {
		return nil, err
	}
	for i := range d.hashTable {
		raw, err := readU64(r)
		if err != nil {
			return nil, err
		}
		d.hashTable[i] = NewHash40(raw)
	}

	if _, err := r.Seek(paramStart, io.SeekStart); err != nil {
		return nil, err
	}
	tag, err := readU8(r)
	if err != nil {
		return nil, err
	}
	if tag != TagStruct {
		return nil, ErrBadRootTag
	}
	if _, err := r.Seek(paramStart, io.SeekStart); err != nil {
		return nil, err
	}

	root, err := d.readParam()
	if err != nil {
		return nil, err
	}
	s, ok := root.(*ParamStruct)
	if !ok {
		return nil, ErrBadRootTag
	}
	return s, nil
}

// readParam reads one tagged param from the reader's current position.
// Scalars, Hash and Str leave the reader just past the param's own
// encoding (Str seeks into the reference table and back). List and Struct
// seek to each child in turn and leave the reader wherever the last child
// ended; callers never rely on the position afterwards, since every child
// read starts with an explicit seek.
func (d *decoder) readParam() (ParamKind, error) {
	tag, err := readU8(d.r)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagBool:
		v, err := readU8(d.r)
		return Bool(v != 0), err
	case TagI8:
		v, err := readU8(d.r)
		return I8(int8(v)), err
	case TagU8:
		v, err := readU8(d.r)
		return U8(v), err
	case TagI16:
		v, err := readU16(d.r)
		return I16(int16(v)), err
	case TagU16:
		v, err := readU16(d.r)
		return U16(v), err
	case TagI32:
		v, err := readU32(d.r)
		return I32(int32(v)), err
	case TagU32:
		v, err := readU32(d.r)
		return U32(v), err
	case TagFloat:
		v, err := readU32(d.r)
		return Float(math.Float32frombits(v)), err
	case TagHash:
		idx, err := readU32(d.r)
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(d.hashTable) {
			return nil, ErrOutsideBoundary
		}
		return Hash(d.hashTable[idx]), nil
	case TagStr:
		return d.readStr()
	case TagList:
		return d.readList()
	case TagStruct:
		return d.readStruct()
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tag)
	}
}

func (d *decoder) readStr() (ParamKind, error) {
	off, err := readU32(d.r)
	if err != nil {
		return nil, err
	}
	here, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	s, err := d.readCString(d.offs.refTablePos + int64(off))
	if err != nil {
		return nil, err
	}
	if _, err := d.r.Seek(here, io.SeekStart); err != nil {
		return nil, err
	}
	return Str(s), nil
}

func (d *decoder) readCString(at int64) (string, error) {
	if _, err := d.r.Seek(at, io.SeekStart); err != nil {
		return "", err
	}
	var buf []byte
	for {
		b, err := readU8(d.r)
		if err == io.EOF {
			return "", ErrUnterminatedString
		}
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

func (d *decoder) readList() (ParamKind, error) {
	here, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	start := here - 1

	length, err := readU32(d.r)
	if err != nil {
		return nil, err
	}

	nodes := make([]ParamKind, length)
	for i := uint32(0); i < length; i++ {
		if _, err := d.r.Seek(start+5+int64(i)*4, io.SeekStart); err != nil {
			return nil, err
		}
		childOff, err := readU32(d.r)
		if err != nil {
			return nil, err
		}
		if _, err := d.r.Seek(start+int64(childOff), io.SeekStart); err != nil {
			return nil, err
		}
		child, err := d.readParam()
		if err != nil {
			return nil, err
		}
		nodes[i] = child
	}
	return &ParamList{Nodes: nodes}, nil
}

func (d *decoder) readStruct() (ParamKind, error) {
	here, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	start := here - 1

	length, err := readU32(d.r)
	if err != nil {
		return nil, err
	}
	refOffset, err := readU32(d.r)
	if err != nil {
		return nil, err
	}

	entries, ok := d.refCache[refOffset]
	if !ok {
		entries = make([]refEntry, length)
		for i := uint32(0); i < length; i++ {
			pos := d.offs.refTablePos + int64(refOffset) + int64(i)*8
			if _, err := d.r.Seek(pos, io.SeekStart); err != nil {
				return nil, err
			}
			hashIndex, err := readU32(d.r)
			if err != nil {
				return nil, err
			}
			if int(hashIndex) >= len(d.hashTable) {
				return nil, ErrOutsideBoundary
			}
			paramOffset, err := readU32(d.r)
			if err != nil {
				return nil, err
			}
			entries[i] = refEntry{hashIndex: hashIndex, paramOffset: paramOffset}
		}
		// The on-disk table is sorted by the dereferenced Hash40 value, not
		// by hash_index: an index is only a first-seen-order slot in the
		// file-global hash table, so two structs can assign a large hash a
		// small index (seen early) and a small hash a larger one (seen
		// later). Sorting by index instead of value would desync from
		// schema.go's SearchChild, which binary-searches by value.
		sort.Slice(entries, func(i, j int) bool {
			return d.hashTable[entries[i].hashIndex] < d.hashTable[entries[j].hashIndex]
		})
		d.refCache[refOffset] = entries
	}

	out := &ParamStruct{Entries: make([]StructEntry, len(entries))}
	for i, e := range entries {
		if _, err := d.r.Seek(start+int64(e.paramOffset), io.SeekStart); err != nil {
			return nil, err
		}
		child, err := d.readParam()
		if err != nil {
			return nil, err
		}
		out.Entries[i] = StructEntry{Hash: d.hashTable[e.hashIndex], Value: child}
	}
	return out, nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
