// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package provenance

import (
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Digest renders operation parameters as "key=value" pairs joined by ", ",
// sorted by key, so equal parameters always produce equal digests.
func Digest(params map[string]cty.Value) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + FormatValue(params[k])
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders a single cty value for a digest.
func FormatValue(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case !v.IsKnown():
		return "?"
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var items []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			items = append(items, FormatValue(ev))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case ty.IsMapType() || ty.IsObjectType():
		m := make(map[string]cty.Value)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			m[k.AsString()] = ev
		}
		return "{" + Digest(m) + "}"
	default:
		return ty.FriendlyName()
	}
}
