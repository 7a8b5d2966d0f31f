// Package merge deep-merges partial fragment results into one canonical
// person record.
//
// Merge order is caller-determined: later fragments win scalar conflicts
// (last-writer-wins). Callers that need deterministic output across runs
// sort fragments before merging, e.g. by information source ID.
//
// The merge never fails. Type mismatches resolve by overwriting the
// destination with the incoming value. This is a deliberate robustness
// trade-off: partial or inconsistent adapter data must not abort the whole
// request, so do not tighten this into a strict merge.
package merge

import (
	"reflect"

	"lif/internal/lif/fragment"
)

// Merge combines fragments, in order, into a canonical record. Each fragment
// is anchored into the record tree at its dotted path before merging. The
// result never aliases the input fragments.
func Merge(fragments []fragment.Fragment) fragment.Record {
	person := []map[string]any{}
	for _, f := range fragments {
		person = MergeItems(person, anchor(f))
	}
	return fragment.Record{Person: person}
}

// anchor nests a fragment's items under its path segments below the person
// root, so that "person.name" with items I becomes [{"name": I}] and merges
// element-wise with sibling fragments.
func anchor(f fragment.Fragment) []map[string]any {
	segments := f.Path().Segments()
	items := f.Items()
	for i := len(segments) - 1; i >= 1; i-- {
		items = []map[string]any{{segments[i]: items}}
	}
	return items
}

// MergeItems merges a sequence of mappings element-wise by index. Incoming
// extras are appended as deep copies; trailing destination elements are
// untouched. Returns the (possibly grown) destination.
func MergeItems(dst, src []map[string]any) []map[string]any {
	for i, item := range src {
		if i < len(dst) {
			MergeInto(dst[i], item)
		} else {
			dst = append(dst, fragment.CopyMap(item))
		}
	}
	return dst
}

// MergeInto merges src into dst, key by key:
//
//   - mapping into mapping: recursive merge
//   - sequence-of-mapping into sequence-of-mapping: element-wise by index
//   - sequence of non-mappings into sequence: append values not already
//     present, destination order first
//   - key absent, or any other type combination: overwrite with a deep copy
func MergeInto(dst, src map[string]any) {
	for key, sv := range src {
		dv, exists := dst[key]
		if !exists {
			dst[key] = fragment.CopyValue(sv)
			continue
		}

		if sm, ok := sv.(map[string]any); ok {
			if dm, ok := dv.(map[string]any); ok {
				MergeInto(dm, sm)
				continue
			}
			dst[key] = fragment.CopyMap(sm)
			continue
		}

		if srcSeq, isSeq := asSequence(sv); isSeq {
			// An empty incoming sequence contributes nothing either way.
			if len(srcSeq) == 0 {
				continue
			}
			dstSeq, dstIsSeq := asSequence(dv)
			if dstIsSeq {
				srcItems, srcAllMaps := asItems(srcSeq)
				dstItems, dstAllMaps := asItems(dstSeq)
				if srcAllMaps && dstAllMaps {
					dst[key] = MergeItems(dstItems, srcItems)
					continue
				}
				if !srcAllMaps {
					dst[key] = appendMissing(dstSeq, srcSeq)
					continue
				}
			}
			dst[key] = fragment.CopyValue(sv)
			continue
		}

		dst[key] = fragment.CopyValue(sv)
	}
}

// asSequence normalizes both sequence shapes this engine sees: []any from
// JSON decoding and []map[string]any from fragment construction.
func asSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// asItems reports whether every element of the sequence is a mapping, and
// returns the mapping view when so.
func asItems(seq []any) ([]map[string]any, bool) {
	items := make([]map[string]any, len(seq))
	for i, e := range seq {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, false
		}
		items[i] = m
	}
	return items, true
}

// appendMissing appends the incoming values not already present, preserving
// destination order then appended order. Presence is structural equality.
func appendMissing(dst, src []any) []any {
	for _, sv := range src {
		present := false
		for _, dv := range dst {
			if reflect.DeepEqual(dv, sv) {
				present = true
				break
			}
		}
		if !present {
			dst = append(dst, fragment.CopyValue(sv))
		}
	}
	return dst
}
