// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import "errors"

// Format errors returned while disassembling a binary param file.
var (
	// ErrBadMagic is returned when the first 8 bytes of the stream are not
	// the paracobn magic.
	ErrBadMagic = errors.New("prc: bad magic, not a paracobn file")

	// ErrBadRootTag is returned when the param body's first byte is not the
	// struct tag (0x0C).
	ErrBadRootTag = errors.New("prc: root param is not a struct")

	// ErrUnknownTag is returned when a param tag byte outside 1-12 is read.
	ErrUnknownTag = errors.New("prc: unknown param tag byte")

	// ErrUnterminatedString is returned when a string record in the
	// reference table runs past the end of the available data without a
	// null terminator.
	ErrUnterminatedString = errors.New("prc: unterminated string in reference table")

	// ErrOutsideBoundary is returned when the header's hash-table size is
	// not a multiple of 8, or when a hash index read while decoding lies
	// past the end of the hash table.
	ErrOutsideBoundary = errors.New("prc: read outside file boundary")

	// ErrHashNotLabeled is returned by the label map in strict mode when a
	// label has no known hash.
	ErrHashNotLabeled = errors.New("prc: label has no registered hash and map is strict")

	// ErrWrongKind is returned by the typed ParamKind extractors when the
	// stored variant doesn't match the requested type.
	ErrWrongKind = errors.New("prc: inconsistent param kind")
)
