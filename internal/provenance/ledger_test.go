// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package provenance

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestMergeKeepsParentOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a := Merge(nil, Entry{Operation: "load", Params: "location=mem://a"})
	a = Merge([]Ledger{a}, Entry{Operation: "scale", Params: "factor=2", Inputs: []string{"n0"}})
	b := Merge(nil, Entry{Operation: "load", Params: "location=mem://b"})

	// --- Act ---
	child := Merge([]Ledger{a, b}, Entry{Operation: "add", Inputs: []string{"n1", "n2"}})

	// --- Assert ---
	assert.Equal(t, []string{"load", "scale", "load", "add"}, child.Operations())
	for i, e := range child.Entries() {
		assert.Equal(t, i+1, e.Seq)
	}
	// Parents are untouched.
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestMergeNeverCollapsesDuplicates(t *testing.T) {
	t.Parallel()
	base := Merge(nil, Entry{Operation: "load"})
	diamond := Merge([]Ledger{base, base}, Entry{Operation: "add"})
	assert.Equal(t, []string{"load", "load", "add"}, diamond.Operations())
}

func TestRenderAndParse(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	l := New(
		Entry{Operation: "load", Params: "location=mem://t2m"},
		Entry{Operation: "scale", Params: "factor=2", Inputs: []string{"n0"}},
		Entry{Operation: "reduce_sum", Params: "axis=[0]", Inputs: []string{"n1"}},
	)

	// --- Act ---
	rendered := l.Render()
	parsed, err := Parse(AppendHistory("opened by ncks\nregridded", rendered))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "1: load(location=mem://t2m) <- []\n2: scale(factor=2) <- [n0]\n3: reduce_sum(axis=[0]) <- [n1]", rendered)
	if diff := cmp.Diff(l.Entries(), parsed); diff != "" {
		t.Errorf("parsed entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	_, err := Parse("nothing to see here")
	assert.ErrorContains(t, err, "no ledger entries")

	_, err = Parse("2: scale(factor=2) <- [n0]")
	assert.ErrorContains(t, err, "start at 2")
}

func TestAppendHistory(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "new", AppendHistory("", "new"))
	assert.Equal(t, "old\nnew", AppendHistory("old\n", "new"))
	assert.Equal(t, "old", AppendHistory("old", ""))
}

func TestDigestIsSortedAndStable(t *testing.T) {
	t.Parallel()
	params := map[string]cty.Value{
		"factor": cty.NumberFloatVal(2),
		"dims":   cty.ListVal([]cty.Value{cty.StringVal("lat"), cty.StringVal("lon")}),
		"keep":   cty.True,
	}
	assert.Equal(t, "dims=[lat, lon], factor=2, keep=true", Digest(params))
	assert.Equal(t, "", Digest(nil))
	assert.Equal(t, "0.5", FormatValue(cty.NumberFloatVal(0.5)))
}

func TestHasKindAndLast(t *testing.T) {
	t.Parallel()
	l := New(Entry{Operation: "load", Kind: "source-load"}, Entry{Operation: "isel", Kind: "coordinate-transform"})
	assert.True(t, l.HasKind("coordinate-transform"))
	assert.False(t, l.HasKind("reduction"))

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "isel", last.Operation)

	_, ok = Ledger{}.Last()
	assert.False(t, ok)
}
