// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package provenance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var entryLine = regexp.MustCompile(`^(\d+): ([A-Za-z_][A-Za-z0-9_]*)\((.*)\) <- \[(.*)\]$`)

// ParseEntry reads a single rendered entry line.
func ParseEntry(line string) (Entry, error) {
	m := entryLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Entry{}, fmt.Errorf("malformed history line %q", line)
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return Entry{}, fmt.Errorf("malformed sequence number in %q: %w", line, err)
	}
	e := Entry{Seq: seq, Operation: m[2], Params: m[3]}
	if m[4] != "" {
		e.Inputs = strings.Split(m[4], ", ")
	}
	return e, nil
}

// Parse reads a rendered trail back into its entries. Lines that are not
// ledger entries (for example history written by other tools before the
// data was loaded) are skipped; the trailing run of entries is returned.
func Parse(history string) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(history, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			entries = nil
			continue
		}
		if len(entries) > 0 && e.Seq != entries[len(entries)-1].Seq+1 {
			entries = nil
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no ledger entries found in history")
	}
	if entries[0].Seq != 1 {
		return nil, fmt.Errorf("ledger entries start at %d, want 1", entries[0].Seq)
	}
	return entries, nil
}
