// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XML tag vocabulary. Struct and list children carry a "hash" or "index"
// attribute identifying their place in the parent container; scalar tags
// hold their value as element text.
const (
	tagXMLBool   = "bool"
	tagXMLI8     = "sbyte"
	tagXMLU8     = "byte"
	tagXMLI16    = "short"
	tagXMLU16    = "ushort"
	tagXMLI32    = "int"
	tagXMLU32    = "uint"
	tagXMLFloat  = "float"
	tagXMLHash   = "hash40"
	tagXMLStr    = "string"
	tagXMLList   = "list"
	tagXMLStruct = "struct"
)

var scalarXMLTags = map[string]bool{
	tagXMLBool: true, tagXMLI8: true, tagXMLU8: true, tagXMLI16: true,
	tagXMLU16: true, tagXMLI32: true, tagXMLU32: true, tagXMLFloat: true,
	tagXMLHash: true, tagXMLStr: true,
}

var (
	ErrXMLUnknownTag    = errors.New("prc: xml: unknown tag")
	ErrXMLUnexpectedTag = errors.New("prc: xml: unexpected tag")
	ErrXMLMismatchedTag = errors.New("prc: xml: mismatched close tag")
	ErrXMLMissingHash   = errors.New("prc: xml: struct child missing hash attribute")
	ErrXMLParseValue    = errors.New("prc: xml: could not parse value")
)

// WriteXML renders param as an indented XML document: root <struct>,
// list/struct children tagged by index or hash attribute, scalar children
// as a typed tag wrapping their text value. Empty containers are
// self-closing.
func WriteXML(w io.Writer, param *ParamStruct) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n"); err != nil {
		return err
	}
	if err := writeStructNode(bw, 0, "", param); err != nil {
		return err
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, depth int, s string) error {
	for i := 0; i < depth; i++ {
		if _, err := w.WriteString("  "); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\n")
	return err
}

func writeStructNode(w *bufio.Writer, depth int, attr string, s *ParamStruct) error {
	open := tagXMLStruct
	if attr != "" {
		open += " " + attr
	}
	if len(s.Entries) == 0 {
		return writeLine(w, depth, "<"+open+"/>")
	}
	if err := writeLine(w, depth, "<"+open+">"); err != nil {
		return err
	}
	for _, e := range s.Entries {
		if err := writeParamNode(w, depth+1, fmt.Sprintf(`hash="%s"`, hashXMLLiteral(e.Hash)), e.Value); err != nil {
			return err
		}
	}
	return writeLine(w, depth, "</"+tagXMLStruct+">")
}

func writeListNode(w *bufio.Writer, depth int, attr string, l *ParamList) error {
	open := tagXMLList
	if attr != "" {
		open += " " + attr
	}
	if len(l.Nodes) == 0 {
		return writeLine(w, depth, "<"+open+"/>")
	}
	if err := writeLine(w, depth, "<"+open+">"); err != nil {
		return err
	}
	for i, child := range l.Nodes {
		if err := writeParamNode(w, depth+1, fmt.Sprintf(`index="%d"`, i), child); err != nil {
			return err
		}
	}
	return writeLine(w, depth, "</"+tagXMLList+">")
}

func writeParamNode(w *bufio.Writer, depth int, attr string, p ParamKind) error {
	switch v := p.(type) {
	case Bool:
		return writeScalarNode(w, depth, tagXMLBool, attr, strconv.FormatBool(bool(v)))
	case I8:
		return writeScalarNode(w, depth, tagXMLI8, attr, strconv.FormatInt(int64(v), 10))
	case U8:
		return writeScalarNode(w, depth, tagXMLU8, attr, strconv.FormatUint(uint64(v), 10))
	case I16:
		return writeScalarNode(w, depth, tagXMLI16, attr, strconv.FormatInt(int64(v), 10))
	case U16:
		return writeScalarNode(w, depth, tagXMLU16, attr, strconv.FormatUint(uint64(v), 10))
	case I32:
		return writeScalarNode(w, depth, tagXMLI32, attr, strconv.FormatInt(int64(v), 10))
	case U32:
		return writeScalarNode(w, depth, tagXMLU32, attr, strconv.FormatUint(uint64(v), 10))
	case Float:
		return writeScalarNode(w, depth, tagXMLFloat, attr, strconv.FormatFloat(float64(v), 'g', -1, 32))
	case Hash:
		return writeScalarNode(w, depth, tagXMLHash, attr, Hash40(v).String())
	case Str:
		return writeScalarNode(w, depth, tagXMLStr, attr, string(v))
	case *ParamList:
		return writeListNode(w, depth, attr, v)
	case *ParamStruct:
		return writeStructNode(w, depth, attr, v)
	default:
		return fmt.Errorf("prc: xml: unhandled param kind %T", p)
	}
}

func writeScalarNode(w *bufio.Writer, depth int, tag, attr, text string) error {
	open := tag
	if attr != "" {
		open += " " + attr
	}
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return err
	}
	return writeLine(w, depth, fmt.Sprintf("<%s>%s</%s>", open, escaped.String(), tag))
}

func hashXMLLiteral(h Hash40) string {
	return fmt.Sprintf("0x%010x", uint64(h))
}

func parseHashLiteral(text string) (Hash40, error) {
	if text == "" {
		return 0, nil
	}
	s := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as hash40", ErrXMLParseValue, text)
	}
	return NewHash40(v), nil
}

// resolveHash40Text parses a hash40 tag's text or a struct child's "hash"
// attribute: a 0x-prefixed literal is read as raw hex, matching what
// WriteXML emits for an unresolved hash; anything else is a label, looked
// up (and, under strict mode, required to already be registered) the same
// way the rest of the label-resolving tooling treats label text.
func resolveHash40Text(text string) (Hash40, error) {
	if text == "" || strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		return parseHashLiteral(text)
	}
	return DefaultLabelMap().Resolve(text)
}

// XMLError reports the byte offset in the source document a read failure
// occurred at, for use with FormatXMLError.
type XMLError struct {
	Offset int64
	Err    error
}

func (e *XMLError) Error() string {
	return fmt.Sprintf("prc: xml: offset %d: %v", e.Offset, e.Err)
}

func (e *XMLError) Unwrap() error { return e.Err }

// FormatXMLError renders the source line containing e's offset with a
// caret pointing at the exact column, the way a command-line tool reports
// where a malformed param XML file went wrong.
func FormatXMLError(src []byte, e *XMLError) string {
	if e == nil {
		return ""
	}
	offset := int(e.Offset)
	if offset < 0 {
		offset = 0
	}
	if offset > len(src) {
		offset = len(src)
	}
	lineStart := bytes.LastIndexByte(src[:offset], '\n') + 1
	lineEnd := len(src)
	if rel := bytes.IndexByte(src[offset:], '\n'); rel >= 0 {
		lineEnd = offset + rel
	}
	line := string(src[lineStart:lineEnd])
	col := offset - lineStart
	if col < 0 {
		col = 0
	}
	return line + "\n" + strings.Repeat(" ", col) + "^"
}

// frame is one open element on the reader's stack: a struct or list under
// construction, or a scalar leaf accumulating text before its close tag.
type frame struct {
	kind      string
	hash      Hash40
	container *ParamStruct
	list      *ParamList
	text      strings.Builder
}

func (f *frame) value() (ParamKind, error) {
	switch {
	case f.container != nil:
		return f.container, nil
	case f.list != nil:
		return f.list, nil
	default:
		return parseScalar(f.kind, f.text.String())
	}
}

type xmlDecoder struct {
	stack []*frame
}

func (d *xmlDecoder) push(t xml.StartElement) error {
	name := t.Name.Local
	if len(d.stack) == 0 {
		if name != tagXMLStruct {
			return fmt.Errorf("%w: expected root <struct>, got <%s>", ErrXMLUnexpectedTag, name)
		}
		d.stack = append(d.stack, &frame{kind: tagXMLStruct, container: &ParamStruct{}})
		return nil
	}

	parent := d.stack[len(d.stack)-1]
	if scalarXMLTags[parent.kind] {
		return fmt.Errorf("%w: <%s> cannot contain child elements", ErrXMLUnexpectedTag, parent.kind)
	}

	f := &frame{kind: name}
	switch {
	case scalarXMLTags[name]:
	case name == tagXMLList:
		f.list = &ParamList{}
	case name == tagXMLStruct:
		f.container = &ParamStruct{}
	default:
		return fmt.Errorf("%w: <%s>", ErrXMLUnknownTag, name)
	}

	if parent.container != nil {
		h, err := hashAttr(t)
		if err != nil {
			return err
		}
		f.hash = h
	}
	d.stack = append(d.stack, f)
	return nil
}

func (d *xmlDecoder) text(b []byte) error {
	if len(d.stack) == 0 {
		return nil
	}
	top := d.stack[len(d.stack)-1]
	if !scalarXMLTags[top.kind] {
		if len(bytes.TrimSpace(b)) == 0 {
			return nil
		}
		return fmt.Errorf("%w: unexpected text inside <%s>", ErrXMLUnexpectedTag, top.kind)
	}
	top.text.Write(b)
	return nil
}

// pop closes the element named name. It returns the completed root struct
// with done=true once the outermost struct closes.
func (d *xmlDecoder) pop(name string) (root *ParamStruct, done bool, err error) {
	if len(d.stack) == 0 {
		return nil, false, fmt.Errorf("%w: unmatched close tag </%s>", ErrXMLMismatchedTag, name)
	}
	top := d.stack[len(d.stack)-1]
	if top.kind != name {
		return nil, false, fmt.Errorf("%w: expected </%s>, got </%s>", ErrXMLMismatchedTag, top.kind, name)
	}
	d.stack = d.stack[:len(d.stack)-1]

	val, err := top.value()
	if err != nil {
		return nil, false, err
	}

	if len(d.stack) == 0 {
		s, ok := val.(*ParamStruct)
		if !ok {
			return nil, false, fmt.Errorf("prc: xml: root element did not produce a struct")
		}
		return s, true, nil
	}

	parent := d.stack[len(d.stack)-1]
	switch {
	case parent.container != nil:
		parent.container.Push(top.hash, val)
	case parent.list != nil:
		parent.list.Nodes = append(parent.list.Nodes, val)
	}
	return nil, false, nil
}

func hashAttr(t xml.StartElement) (Hash40, error) {
	for _, a := range t.Attr {
		if a.Name.Local == "hash" {
			return resolveHash40Text(a.Value)
		}
	}
	return 0, ErrXMLMissingHash
}

func parseScalar(tag, text string) (ParamKind, error) {
	switch tag {
	case tagXMLBool:
		if text == "" {
			return Bool(false), nil
		}
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as bool", ErrXMLParseValue, text)
		}
		return Bool(v), nil
	case tagXMLI8:
		v, err := parseIntText(text, 8)
		return I8(v), err
	case tagXMLU8:
		v, err := parseUintText(text, 8)
		return U8(v), err
	case tagXMLI16:
		v, err := parseIntText(text, 16)
		return I16(v), err
	case tagXMLU16:
		v, err := parseUintText(text, 16)
		return U16(v), err
	case tagXMLI32:
		v, err := parseIntText(text, 32)
		return I32(v), err
	case tagXMLU32:
		v, err := parseUintText(text, 32)
		return U32(v), err
	case tagXMLFloat:
		if text == "" {
			return Float(0), nil
		}
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q as float", ErrXMLParseValue, text)
		}
		return Float(v), nil
	case tagXMLHash:
		h, err := resolveHash40Text(text)
		return Hash(h), err
	case tagXMLStr:
		return Str(text), nil
	default:
		return nil, fmt.Errorf("%w: <%s>", ErrXMLUnknownTag, tag)
	}
}

func parseIntText(text string, bits int) (int64, error) {
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrXMLParseValue, text)
	}
	return v, nil
}

func parseUintText(text string, bits int) (uint64, error) {
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrXMLParseValue, text)
	}
	return v, nil
}

// ReadXML parses an XML document written by WriteXML (or an equivalent
// producer) back into a ParamStruct.
func ReadXML(r io.Reader) (*ParamStruct, error) {
	dec := xml.NewDecoder(r)
	d := &xmlDecoder{}
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, &XMLError{Offset: offset, Err: fmt.Errorf("unexpected end of document")}
			}
			return nil, &XMLError{Offset: offset, Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := d.push(t); err != nil {
				return nil, &XMLError{Offset: offset, Err: err}
			}
		case xml.CharData:
			if err := d.text(t); err != nil {
				return nil, &XMLError{Offset: offset, Err: err}
			}
		case xml.EndElement:
			root, done, err := d.pop(t.Name.Local)
			if err != nil {
				return nil, &XMLError{Offset: offset, Err: err}
			}
			if done {
				return root, nil
			}
		}
	}
}
