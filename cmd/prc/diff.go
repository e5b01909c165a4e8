// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	jd "github.com/josephburnett/jd/v2"
	"gopkg.in/yaml.v3"

	"github.com/ultimate-research/prc-rs"
)

// diffHunk is one "@ [path]" block of jd's diff-language output, rendered
// as a YAML document instead of jd's own text format.
type diffHunk struct {
	Path  string   `yaml:"path"`
	Lines []string `yaml:"lines"`
}

// splitDiffHunks groups jd's Render() output into per-path hunks. Each hunk
// starts with a line of the form "@ [...]" followed by "-"/"+" context and
// change lines, per jd's diff language.
func splitDiffHunks(rendered string) []diffHunk {
	var hunks []diffHunk
	for _, line := range strings.Split(rendered, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@ ") {
			hunks = append(hunks, diffHunk{Path: strings.TrimPrefix(line, "@ ")})
			continue
		}
		if len(hunks) == 0 {
			continue
		}
		last := &hunks[len(hunks)-1]
		last.Lines = append(last.Lines, line)
	}
	return hunks
}

// loadStruct opens a .prc or .xml file by extension, returning its root
// param struct either way, so diff can compare across formats.
func loadStruct(path string) (*prc.ParamStruct, error) {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return prc.ReadXML(f)
	}
	return prc.Open(path, &prc.Options{Strict: strict})
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Structurally diff two param files (.prc or .xml)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadStruct(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			b, err := loadStruct(args[1])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[1], err)
			}

			aJSON, err := json.Marshal(toValue(a))
			if err != nil {
				return err
			}
			bJSON, err := json.Marshal(toValue(b))
			if err != nil {
				return err
			}

			aNode, err := jd.ReadJsonString(string(aJSON))
			if err != nil {
				return err
			}
			bNode, err := jd.ReadJsonString(string(bJSON))
			if err != nil {
				return err
			}

			diff := aNode.Diff(bNode)
			rendered := diff.Render()
			if rendered == "" {
				fmt.Println("no structural differences")
				return nil
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(splitDiffHunks(rendered))
		},
	}
	return cmd
}
