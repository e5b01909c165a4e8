// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ultimate-research/prc-rs"
)

func newDisasmCmd() *cobra.Command {
	var out string
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "disasm <file>",
		Short: "Decode a paracobn file into a readable text format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := prc.Open(args[0], &prc.Options{Strict: strict})
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			dest := out
			if dest == "" {
				if asYAML {
					dest = "out.yaml"
				} else {
					dest = "out.xml"
				}
			}
			w, err := os.Create(dest)
			if err != nil {
				return err
			}
			defer w.Close()

			if asYAML {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(toValue(root))
			}
			return prc.WriteXML(w, root)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default out.xml or out.yaml)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write YAML instead of XML (one-way; asm only reads XML back)")
	return cmd
}
