// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ultimate-research/prc-rs"
)

var (
	labelFile string
	strict    bool
)

func loadLabels() {
	prc.DefaultLabelMap().SetStrict(strict)
	if labelFile == "" {
		return
	}
	entries, err := prc.LoadLabelsFromFile(labelFile)
	if err != nil {
		log.Fatalf("failed to load label table %s: %v", labelFile, err)
	}
	prc.DefaultLabelMap().AddLabels(entries)
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "prc",
		Short: "A paracobn param-container codec",
		Long:  "Disassembles, assembles, hashes and diffs Smash Ultimate-style paracobn param files.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadLabels()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&labelFile, "labels", "l", "", "label table to resolve hash40 values against")
	rootCmd.PersistentFlags().BoolVarP(&strict, "strict", "s", false, "fail hash resolution on an unrecognized label instead of hashing it raw")

	rootCmd.AddCommand(newDisasmCmd())
	rootCmd.AddCommand(newAsmCmd())
	rootCmd.AddCommand(newHashCmd())
	rootCmd.AddCommand(newDiffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
