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

// hashRole distinguishes a Hash40 used as a struct key from one used as a
// Hash-typed value; the two are interned as distinct hash-table entries
// even when the underlying 40-bit value is identical.
type hashRole int

const (
	hashValue hashRole = iota
	hashKey
)

type hashKey40 struct {
	hash Hash40
	role hashRole
}

// tableRow is one on-disk (hash_index, param_offset) row of a pending
// struct reference entry, struct-start-relative.
type tableRow struct {
	hashIndex   uint32
	paramOffset uint32
}

// refEntryWork is a reference-table entry reserved during body layout,
// later deduplicated and placed by offset.
type refEntryWork struct {
	isTable     bool
	str         string
	table       []tableRow
	paramOffset uint32 // position of this entry's placeholder slot in the scratch body
	isDuplicate bool
	refOffset   uint32
}

func (e *refEntryWork) equal(o *refEntryWork) bool {
	if e.isTable != o.isTable {
		return false
	}
	if e.isTable {
		if len(e.table) != len(o.table) {
			return false
		}
		for i, row := range e.table {
			if row != o.table[i] {
				return false
			}
		}
		return true
	}
	return e.str == o.str
}

// asmState accumulates the file-global hash table (in first-seen order)
// and the pending reference-table entries (in traversal order) while the
// param body is laid out into a scratch buffer.
type asmState struct {
	hashes    []hashKey40
	hashIndex map[hashKey40]int
	refEntries []*refEntryWork
}

func newAsmState() *asmState {
	s := &asmState{hashIndex: make(map[hashKey40]int)}
	s.pushHash(Hash40(0), hashValue)
	return s
}

func (s *asmState) pushHash(h Hash40, role hashRole) int {
	k := hashKey40{hash: h, role: role}
	if idx, ok := s.hashIndex[k]; ok {
		return idx
	}
	idx := len(s.hashes)
	s.hashes = append(s.hashes, k)
	s.hashIndex[k] = idx
	return idx
}

// indexOf looks up a hash already collected in phase 1. A miss means phase
// 1's traversal and phase 2's traversal disagreed about which hashes the
// tree contains, which is a fatal encoder bug, not a recoverable error.
func (s *asmState) indexOf(h Hash40, role hashRole) uint32 {
	idx, ok := s.hashIndex[hashKey40{hash: h, role: role}]
	if !ok {
		panic(fmt.Sprintf("prc: encoder bug: hash %s (role %d) missing from collected table", h, role))
	}
	return uint32(idx)
}

// Encode writes param as a canonical paracobn file into w, which must
// support seeking for the header's ref_size back-patch (reference-table
// offsets are back-patched in an in-memory scratch body). The
// same tree always produces the same bytes (spec's canonicality
// requirement), independent of any prior decode that produced it.
func Encode(w io.WriteSeeker, param *ParamStruct) error {
	fd := newAsmState()
	collectStructHashes(fd, param)

	scratch := &cursorBuf{}
	if err := writeParamStructBody(scratch, fd, param); err != nil {
		return err
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	hashSize := uint32(8 * len(fd.hashes))
	if err := writeU32(w, hashSize); err != nil {
		return err
	}
	if _, err := w.Seek(4, io.SeekCurrent); err != nil { // ref_size placeholder
		return err
	}
	for _, he := range fd.hashes {
		if err := writeU64(w, uint64(he.hash)); err != nil {
			return err
		}
	}

	dedupRefEntries(fd.refEntries)
	if err := writeRefEntries(w, scratch, fd.refEntries); err != nil {
		return err
	}

	paramPos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	refSize := uint32(paramPos - (start + 0x10 + int64(hashSize)))
	if _, err := w.Seek(start+0xC, io.SeekStart); err != nil {
		return err
	}
	if err := writeU32(w, refSize); err != nil {
		return err
	}
	if _, err := w.Seek(paramPos, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.Write(scratch.buf); err != nil {
		return err
	}
	return nil
}

// collectStructHashes is phase 1's struct-level pass: every key is pushed
// as a hashKey role entry, then each value is walked by collectHashes.
func collectStructHashes(fd *asmState, s *ParamStruct) {
	for _, e := range s.Entries {
		fd.pushHash(e.Hash, hashKey)
		collectHashes(fd, e.Value)
	}
}

// collectHashes is phase 1's per-value pass: Hash values are interned,
// List/Struct children are recursed into. Scalars and strings contribute
// no hash-table entries (a string's bytes live in the reference table,
// not the hash table).
func collectHashes(fd *asmState, p ParamKind) {
	switch v := p.(type) {
	case Hash:
		fd.pushHash(Hash40(v), hashValue)
	case *ParamList:
		for _, child := range v.Nodes {
			collectHashes(fd, child)
		}
	case *ParamStruct:
		collectStructHashes(fd, v)
	}
}

// writeParam serializes one param into the scratch body, reserving a
// reference-table entry for Str and Struct nodes as it goes.
func writeParam(s *cursorBuf, fd *asmState, p ParamKind) error {
	switch v := p.(type) {
	case Bool:
		if err := writeU8(s, TagBool); err != nil {
			return err
		}
		b := uint8(0)
		if v {
			b = 1
		}
		return writeU8(s, b)
	case I8:
		if err := writeU8(s, TagI8); err != nil {
			return err
		}
		return writeU8(s, uint8(v))
	case U8:
		if err := writeU8(s, TagU8); err != nil {
			return err
		}
		return writeU8(s, uint8(v))
	case I16:
		if err := writeU8(s, TagI16); err != nil {
			return err
		}
		return writeU16(s, uint16(v))
	case U16:
		if err := writeU8(s, TagU16); err != nil {
			return err
		}
		return writeU16(s, uint16(v))
	case I32:
		if err := writeU8(s, TagI32); err != nil {
			return err
		}
		return writeU32(s, uint32(v))
	case U32:
		if err := writeU8(s, TagU32); err != nil {
			return err
		}
		return writeU32(s, uint32(v))
	case Float:
		if err := writeU8(s, TagFloat); err != nil {
			return err
		}
		return writeU32(s, math.Float32bits(float32(v)))
	case Hash:
		if err := writeU8(s, TagHash); err != nil {
			return err
		}
		return writeU32(s, fd.indexOf(Hash40(v), hashValue))
	case Str:
		if err := writeU8(s, TagStr); err != nil {
			return err
		}
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		fd.refEntries = append(fd.refEntries, &refEntryWork{str: string(v), paramOffset: uint32(pos)})
		return writeU32(s, 0) // placeholder, back-patched in phase 3/4
	case *ParamList:
		return writeParamList(s, fd, v)
	case *ParamStruct:
		return writeParamStructBody(s, fd, v)
	default:
		return fmt.Errorf("prc: encoder bug: unhandled param kind %T", p)
	}
}

func writeParamList(s *cursorBuf, fd *asmState, list *ParamList) error {
	startPos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeU8(s, TagList); err != nil {
		return err
	}
	if err := writeU32(s, uint32(len(list.Nodes))); err != nil {
		return err
	}

	tablePos := startPos + 5
	paramPos := tablePos + 4*int64(len(list.Nodes))
	for _, child := range list.Nodes {
		if _, err := s.Seek(tablePos, io.SeekStart); err != nil {
			return err
		}
		if err := writeU32(s, uint32(paramPos-startPos)); err != nil {
			return err
		}
		tablePos += 4

		if _, err := s.Seek(paramPos, io.SeekStart); err != nil {
			return err
		}
		if err := writeParam(s, fd, child); err != nil {
			return err
		}
		paramPos, err = s.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeParamStructBody(s *cursorBuf, fd *asmState, st *ParamStruct) error {
	startPos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeU8(s, TagStruct); err != nil {
		return err
	}
	if err := writeU32(s, uint32(len(st.Entries))); err != nil {
		return err
	}

	// Reserve the table entry before its children are written, so
	// dedup's traversal-order tiebreak matches phase 2's write order.
	work := &refEntryWork{isTable: true, table: make([]tableRow, 0, len(st.Entries)), paramOffset: uint32(startPos + 5)}
	fd.refEntries = append(fd.refEntries, work)
	if err := writeU32(s, 0); err != nil { // ref_offset placeholder
		return err
	}

	sorted := make([]StructEntry, len(st.Entries))
	copy(sorted, st.Entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hash < sorted[j].Hash })

	for _, e := range sorted {
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		work.table = append(work.table, tableRow{
			hashIndex:   fd.indexOf(e.Hash, hashKey),
			paramOffset: uint32(pos - startPos),
		})
		if err := writeParam(s, fd, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// dedupRefEntries is phase 3: scan entries in traversal order, collapsing
// any whose content structurally matches an earlier entry onto that
// entry's ref_offset; otherwise assign the next offset and advance the
// cursor by the entry's on-disk width.
func dedupRefEntries(entries []*refEntryWork) {
	var offset uint32
	for i, e := range entries {
		found := false
		for j := i - 1; j >= 0; j-- {
			if entries[j].equal(e) {
				e.isDuplicate = true
				e.refOffset = entries[j].refOffset
				found = true
				break
			}
		}
		if !found {
			e.refOffset = offset
			if e.isTable {
				offset += 8 * uint32(len(e.table))
			} else {
				offset += 1 + uint32(len(e.str))
			}
		}
	}
}

// writeRefEntries is phase 4 steps 2-3: back-patch every entry's
// placeholder in the scratch body with its final ref_offset, then append
// each non-duplicate entry's bytes to the destination.
func writeRefEntries(w io.Writer, scratch *cursorBuf, entries []*refEntryWork) error {
	for _, e := range entries {
		if _, err := scratch.Seek(int64(e.paramOffset), io.SeekStart); err != nil {
			return err
		}
		if err := writeU32(scratch, e.refOffset); err != nil {
			return err
		}
		if e.isDuplicate {
			continue
		}
		if e.isTable {
			for _, row := range e.table {
				if err := writeU32(w, row.hashIndex); err != nil {
					return err
				}
				if err := writeU32(w, row.paramOffset); err != nil {
					return err
				}
			}
		} else {
			if _, err := w.Write([]byte(e.str)); err != nil {
				return err
			}
			if err := writeU8(w, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// cursorBuf is an in-memory growable buffer that can be written at an
// arbitrary seeked position, extending as needed — the Go equivalent of
// Rust's Cursor<Vec<u8>>, used as the scratch body buffer during layout.
type cursorBuf struct {
	buf []byte
	pos int64
}

func (c *cursorBuf) Write(p []byte) (int, error) {
	end := c.pos + int64(len(p))
	if end > int64(len(c.buf)) {
		grown := make([]byte, end)
		copy(grown, c.buf)
		c.buf = grown
	}
	copy(c.buf[c.pos:end], p)
	c.pos = end
	return len(p), nil
}

func (c *cursorBuf) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = c.pos + offset
	case io.SeekEnd:
		newPos = int64(len(c.buf)) + offset
	default:
		return 0, fmt.Errorf("prc: invalid seek whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("prc: negative seek position %d", newPos)
	}
	c.pos = newPos
	return newPos, nil
}
