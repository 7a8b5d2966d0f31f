// Package fragment provides the domain primitives of the LIF person model:
// dotted fragment paths, partial fragments contributed by information
// sources, and the canonical merged record.
//
// Domain Purity: this package contains only pure domain types with no I/O
// and no context.Context. Validation happens at construction time and types
// are immutable once constructed.
package fragment

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Root is the anchor segment every fragment path starts from.
const Root = "person"

// Path is a validated, dotted fragment path rooted at "person",
// e.g. "person.name.firstName".
//
// Invariants:
//   - Non-empty
//   - Matches person(\.[A-Za-z0-9_]+)*
//   - Case-sensitive; no array-index segments (indices appear only inside
//     returned fragment values, never in the path string)
type Path struct {
	value string
}

var pathPattern = regexp.MustCompile(`^person(\.[A-Za-z0-9_]+)*$`)

// ErrInvalidPath indicates the fragment path failed validation.
var ErrInvalidPath = errors.New("invalid fragment path: must match person(.segment)*")

// NewPath creates a validated Path.
func NewPath(value string) (Path, error) {
	if !pathPattern.MatchString(value) {
		return Path{}, ErrInvalidPath
	}
	return Path{value: value}, nil
}

// MustPath creates a Path, panicking if invalid.
// Use only in tests or when the value is known to be valid.
func MustPath(value string) Path {
	p, err := NewPath(value)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePaths validates a batch of raw path strings, preserving order.
func ParsePaths(values []string) ([]Path, error) {
	paths := make([]Path, 0, len(values))
	for _, v := range values {
		p, err := NewPath(v)
		if err != nil {
			return nil, errors.Join(err, errors.New(v))
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// String returns the dotted path value.
func (p Path) String() string {
	return p.value
}

// IsZero returns true if this is the zero value (uninitialized).
func (p Path) IsZero() bool {
	return p.value == ""
}

// IsRoot returns true for the bare "person" path.
func (p Path) IsRoot() bool {
	return p.value == Root
}

// Segments returns the path split on dots, including the root segment.
func (p Path) Segments() []string {
	return strings.Split(p.value, ".")
}

// Parent returns the path with the last segment removed. ok is false at the
// root.
func (p Path) Parent() (Path, bool) {
	idx := strings.LastIndexByte(p.value, '.')
	if idx < 0 {
		return Path{}, false
	}
	return Path{value: p.value[:idx]}, true
}

// MarshalJSON renders the path as its dotted string.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON parses and validates a dotted path string.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewPath(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// HasPrefix reports whether ancestor is p itself or a dotted ancestor of p.
// Prefixes match on whole segments: "person.na" is not a prefix of
// "person.name".
func (p Path) HasPrefix(ancestor Path) bool {
	if p.value == ancestor.value {
		return true
	}
	return strings.HasPrefix(p.value, ancestor.value+".")
}

// Fragment is a partial JSON value scoped to one dotted path within the
// canonical person record. Created per adapter response, consumed by the
// merge engine and discarded after merge.
//
// Invariants:
//   - path is valid (see Path)
//   - items is a non-empty sequence whose every element is a mapping
type Fragment struct {
	path  Path
	items []map[string]any
}

var (
	// ErrEmptyFragment indicates the fragment sequence was empty or nil.
	ErrEmptyFragment = errors.New("fragment must be a non-empty sequence")

	// ErrNonMappingElement indicates a fragment element was not a mapping.
	ErrNonMappingElement = errors.New("fragment elements must be mappings")
)

// NewFragment creates a validated Fragment. The items are deep-copied so the
// fragment cannot be corrupted by later caller mutation.
func NewFragment(path Path, items []map[string]any) (Fragment, error) {
	if path.IsZero() {
		return Fragment{}, ErrInvalidPath
	}
	if len(items) == 0 {
		return Fragment{}, ErrEmptyFragment
	}
	for _, item := range items {
		if item == nil {
			return Fragment{}, ErrNonMappingElement
		}
	}
	return Fragment{path: path, items: CopyItems(items)}, nil
}

// Path returns the fragment's dotted path.
func (f Fragment) Path() Path {
	return f.path
}

// Items returns the fragment's value sequence. The slice belongs to the
// fragment; consumers copy before mutating.
func (f Fragment) Items() []map[string]any {
	return f.items
}

// Record is the canonical merged output. The person key is always rendered,
// even when the sequence is empty (a valid "no data" result).
type Record struct {
	Person []map[string]any `json:"person"`
}

// EmptyRecord returns the valid "no data" record.
func EmptyRecord() Record {
	return Record{Person: []map[string]any{}}
}

// CopyValue deep-copies a JSON-shaped value (maps, slices, scalars).
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CopyValue(e)
		}
		return out
	case []map[string]any:
		return CopyItems(t)
	default:
		return v
	}
}

// CopyMap deep-copies a JSON-shaped mapping.
func CopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyItems deep-copies a sequence of mappings.
func CopyItems(items []map[string]any) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = CopyMap(item)
	}
	return out
}
