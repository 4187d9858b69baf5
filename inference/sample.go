package inference

import (
	"strings"

	"github.com/xmletl/core/value"
)

// fieldsFromRecord builds the FieldMap for a single record's value tree,
// implementing the recursive classification rules of spec.md §4.3:
// child-element keys are always lists (C1's invariant); a list element
// is either a leaf (probed from its #text) or a Struct (folded across
// the list's own items); attribute keys at this level become plain leaf
// fields, and a #text key at this level is skipped.
func fieldsFromRecord(tree value.Node) *value.FieldMap {
	fields := value.NewFieldMap()
	for _, key := range tree.Keys() {
		if key == value.TextKey {
			continue
		}
		v, _ := tree.Get(key)
		if value.IsAttrKey(key) {
			fields.Set(value.Field{Name: key, Type: value.ProbeLeafType(v.Text), Nullable: false})
			continue
		}
		// Every non-attribute, non-#text key is a NodeList by C1's
		// invariant (single occurrence still yields a one-element list).
		typ, repeating := fieldTypeFromList(v.List)
		fields.Set(value.Field{Name: key, Type: typ, Nullable: false, Repeating: repeating})
	}
	return fields
}

// fieldTypeFromList classifies a child-element's list of occurrences per
// spec.md §4.3: a list of leaf records becomes a leaf type probed from
// the first occurrence's text; a list of non-leaf records becomes a
// Struct folded across every occurrence. repeating is true whenever more
// than one occurrence was observed in this sample.
func fieldTypeFromList(items []value.Node) (value.Type, bool) {
	repeating := len(items) > 1
	if len(items) == 0 {
		return value.TStr(), repeating
	}
	if isLeafRecord(items[0]) {
		text, _ := items[0].TextContent()
		return value.ProbeLeafType(text), repeating
	}

	var merged *value.FieldMap
	for _, item := range items {
		if isLeafRecord(item) {
			// A mix of leaf and struct occurrences is not addressed by
			// the merge rules; skip the outlier rather than guess.
			continue
		}
		fields := fieldsFromRecord(item)
		if merged == nil {
			merged = fields
		} else {
			merged = mergeFieldMaps(merged, fields)
		}
	}
	if merged == nil {
		merged = value.NewFieldMap()
	}
	return value.TStruct(merged), repeating
}

// isLeafRecord reports whether r (always a NodeRecord, per C1's
// invariant) contains only "#text" and/or "@"-prefixed attribute keys —
// spec.md §4.3's "map that contains only #text (optionally plus
// @-prefixed attribute keys) is a leaf" and "a map that contains only
// attribute keys is Str" rules, unified: either way the node collapses
// to a scalar field rather than a Struct.
func isLeafRecord(r value.Node) bool {
	if r.Kind != value.NodeRecord {
		return true
	}
	for _, key := range r.Keys() {
		if key != value.TextKey && !value.IsAttrKey(key) {
			return false
		}
	}
	return true
}

// topLevelKey extracts the first path segment, per spec.md §4.3's
// override rule #3: "paths that traverse more than one level are
// accepted syntactically but applied only at the top-level key."
func topLevelKey(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
