// Copyright 2024 ultimate-research. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prc

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LoadLabels reads a label table from r: one label per line, blank lines
// and lines starting with '#' ignored, and returns the resulting entries
// without touching any LabelMap. Callers pass the result to AddLabels,
// typically on DefaultLabelMap(), after choosing whether to also enable
// strict mode.
func LoadLabels(r io.Reader) ([]LabelEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []LabelEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, LabelEntry{Hash: NewHash40FromLabel(line), Label: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadLabelsFromFile is a convenience wrapper around LoadLabels for the
// common case of a label table kept in a text file, used by the hash and
// disasm/asm CLI tools' --labels flag.
func LoadLabelsFromFile(path string) ([]LabelEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLabels(f)
}
