// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ultimate-research/prc-rs"
)

func newHashCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "hash [label...]",
		Short: "Resolve labels to hash40 values, or list a loaded label table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, e := range prc.DefaultLabelMap().Entries() {
					fmt.Printf("0x%010x  %s\n", uint64(e.Hash), e.Label)
				}
				return nil
			}
			for _, label := range args {
				h, err := prc.DefaultLabelMap().Resolve(label)
				if err != nil {
					return err
				}
				fmt.Printf("%-40s 0x%010x\n", label, uint64(h))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print every label in the loaded table instead of resolving arguments")
	return cmd
}
