// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ultimate-research/prc-rs"
)

func newAsmCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "asm <file>",
		Short: "Encode a param XML file back into paracobn binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			root, err := prc.ReadXML(f)
			if err != nil {
				if xerr, ok := err.(*prc.XMLError); ok {
					src, rerr := os.ReadFile(args[0])
					if rerr == nil {
						fmt.Fprintln(os.Stderr, prc.FormatXMLError(src, xerr))
					}
				}
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			dest := out
			if dest == "" {
				dest = "out.prc"
			}
			return prc.Save(dest, root)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default out.prc)")
	return cmd
}
