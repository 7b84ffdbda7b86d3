// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package provenance records the ordered history of operations that led to
// a node and renders it as the human-readable trail attached to results.
//
// A Ledger is immutable. A child's ledger is always built from its parents'
// ledgers by Merge, never by editing an existing ledger, so the same graph
// structure always yields the same history regardless of execution order.
package provenance

import (
	"fmt"
	"slices"
	"strings"
)

// Entry is a single recorded operation application.
type Entry struct {
	// Seq is the 1-based position of the entry within its ledger.
	Seq int
	// Operation is the registered operation name, e.g. "scale".
	Operation string
	// Kind is the operation kind, e.g. "reduction". It is not rendered.
	Kind string
	// Inputs holds the identifiers of the nodes the operation consumed.
	Inputs []string
	// Params is a human-readable digest of the operation parameters.
	Params string
}

// String renders the entry as "{seq}: {operation}({params}) <- [{inputs}]".
func (e Entry) String() string {
	return fmt.Sprintf("%d: %s(%s) <- [%s]", e.Seq, e.Operation, e.Params, strings.Join(e.Inputs, ", "))
}

// Equal reports whether two entries are identical.
func (e Entry) Equal(o Entry) bool {
	return e.Seq == o.Seq && e.Operation == o.Operation && e.Kind == o.Kind &&
		e.Params == o.Params && slices.Equal(e.Inputs, o.Inputs)
}

func (e Entry) clone() Entry {
	e.Inputs = slices.Clone(e.Inputs)
	return e
}

// Ledger is an ordered, immutable sequence of entries.
type Ledger struct {
	entries []Entry
}

// New builds a ledger from entries in the given order, numbering them 1..n.
func New(entries ...Entry) Ledger {
	l := Ledger{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		e = e.clone()
		e.Seq = i + 1
		l.entries[i] = e
	}
	return l
}

// Merge concatenates the parent ledgers in declaration order and appends
// own. Entries are never reordered or collapsed, so a parent shared along
// two paths contributes its history twice.
func Merge(parents []Ledger, own Entry) Ledger {
	n := 1
	for _, p := range parents {
		n += len(p.entries)
	}
	all := make([]Entry, 0, n)
	for _, p := range parents {
		all = append(all, p.entries...)
	}
	all = append(all, own)
	return New(all...)
}

// Len returns the number of entries.
func (l Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Last returns the final entry, if any.
func (l Ledger) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// Operations returns the operation names in ledger order.
func (l Ledger) Operations() []string {
	ops := make([]string, len(l.entries))
	for i, e := range l.entries {
		ops[i] = e.Operation
	}
	return ops
}

// HasKind reports whether any entry was recorded for an operation of kind.
func (l Ledger) HasKind(kind string) bool {
	for _, e := range l.entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Equal reports whether both ledgers hold identical entries.
func (l Ledger) Equal(o Ledger) bool {
	return slices.EqualFunc(l.entries, o.entries, Entry.Equal)
}

// Render returns the newline-joined trail of the ledger.
func (l Ledger) Render() string {
	lines := make([]string, len(l.entries))
	for i, e := range l.entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// AppendHistory appends a rendered trail to a pre-existing history
// attribute. Existing history is kept as is.
func AppendHistory(existing, rendered string) string {
	existing = strings.TrimRight(existing, "\n")
	switch {
	case existing == "":
		return rendered
	case rendered == "":
		return existing
	default:
		return existing + "\n" + rendered
	}
}
