// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/ultimate-research/prc-rs"
)

// toValue flattens a param tree into plain Go values (map[string]any,
// []any, and scalar leaves) so it can be marshaled as JSON (for the jd
// structural differ) or YAML (for a more readable dump than the XML
// format produces). Struct keys render through the label map the same
// way Hash40.String does, so a diff or dump is only as readable as the
// loaded label table.
func toValue(p prc.ParamKind) interface{} {
	switch v := p.(type) {
	case prc.Bool:
		return bool(v)
	case prc.I8:
		return int8(v)
	case prc.U8:
		return uint8(v)
	case prc.I16:
		return int16(v)
	case prc.U16:
		return uint16(v)
	case prc.I32:
		return int32(v)
	case prc.U32:
		return uint32(v)
	case prc.Float:
		return float32(v)
	case prc.Hash:
		return prc.Hash40(v).String()
	case prc.Str:
		return string(v)
	case *prc.ParamList:
		out := make([]interface{}, len(v.Nodes))
		for i, n := range v.Nodes {
			out[i] = toValue(n)
		}
		return out
	case *prc.ParamStruct:
		out := make(map[string]interface{}, len(v.Entries))
		for _, e := range v.Entries {
			out[e.Hash.String()] = toValue(e.Value)
		}
		return out
	default:
		return nil
	}
}
