// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prc reads and writes the paracobn binary param-container format
// used by Smash Ultimate and related titles: a hash40-keyed tree of typed
// scalars, ordered lists and ordered structs. It provides a random-access
// binary codec (Decode/Encode), a seek-driven typed schema reader for
// pulling individual fields without materializing a whole tree (schema.go),
// and a round-trippable XML bridge (xml.go).
package prc

import (
	"bytes"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/ultimate-research/prc-rs/log"
)

// Options configures how a param file is opened.
type Options struct {
	// Strict makes label resolution (see hash40.go's LabelMap) fail on an
	// unrecognized label instead of silently falling back to the computed
	// hash. Off by default.
	Strict bool

	// A custom logger. Defaults to a stderr logger filtered to error level.
	Logger log.Logger
}

func (o *Options) orDefault() *Options {
	if o != nil {
		return o
	}
	return &Options{}
}

func newHelper(opts *Options) *log.Helper {
	if opts.Logger != nil {
		return log.NewHelper(opts.Logger)
	}
	return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelError)))
}

// File is a memory-mapped, already-decoded param container opened with
// New. Close unmaps and closes the underlying file.
type File struct {
	Root *ParamStruct

	data   mmap.MMap
	f      *os.File
	opts   *Options
	logger *log.Helper
}

// New memory-maps name and decodes its root param struct.
func New(name string, opts *Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := &File{opts: opts.orDefault(), f: f, data: data}
	file.logger = newHelper(file.opts)
	DefaultLabelMap().SetStrict(file.opts.Strict)

	root, err := Decode(bytes.NewReader(data))
	if err != nil {
		file.logger.Errorf("decode failed: %v", err)
		_ = data.Unmap()
		f.Close()
		return nil, err
	}
	file.Root = root
	return file, nil
}

// NewBytes decodes a root param struct from an in-memory buffer, without
// memory-mapping a file.
func NewBytes(data []byte, opts *Options) (*File, error) {
	file := &File{opts: opts.orDefault()}
	file.logger = newHelper(file.opts)
	DefaultLabelMap().SetStrict(file.opts.Strict)

	root, err := Decode(bytes.NewReader(data))
	if err != nil {
		file.logger.Errorf("decode failed: %v", err)
		return nil, err
	}
	file.Root = root
	return file, nil
}

// Close unmaps and closes the underlying file, if New opened one.
func (file *File) Close() error {
	if file.data != nil {
		_ = file.data.Unmap()
	}
	if file.f != nil {
		return file.f.Close()
	}
	return nil
}

// Open is a functional shorthand for New followed by Close: it returns
// just the decoded tree, for callers that don't need the mapped file kept
// open.
func Open(name string, opts *Options) (*ParamStruct, error) {
	file, err := New(name, opts)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.Root, nil
}

// Save encodes root as a canonical paracobn file at name, creating or
// truncating it.
func Save(name string, root *ParamStruct) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, root)
}
