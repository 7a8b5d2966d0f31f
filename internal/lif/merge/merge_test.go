package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lif/internal/lif/fragment"
)

func mustFragment(t *testing.T, path string, items []map[string]any) fragment.Fragment {
	t.Helper()
	f, err := fragment.NewFragment(fragment.MustPath(path), items)
	require.NoError(t, err)
	return f
}

func TestMerge_Empty(t *testing.T) {
	record := Merge(nil)
	require.NotNil(t, record.Person)
	assert.Empty(t, record.Person)
}

func TestMerge_SingleFragmentAtRoot(t *testing.T) {
	f := mustFragment(t, "person", []map[string]any{{"id": "p-1"}})
	record := Merge([]fragment.Fragment{f})
	assert.Equal(t, []map[string]any{{"id": "p-1"}}, record.Person)
}

func TestMerge_SiblingLeafPaths(t *testing.T) {
	first := mustFragment(t, "person.name", []map[string]any{{"firstName": "Ada"}})
	second := mustFragment(t, "person.name", []map[string]any{{"lastName": "Lovelace"}})

	record := Merge([]fragment.Fragment{first, second})

	require.Len(t, record.Person, 1)
	name := record.Person[0]["name"].([]map[string]any)
	require.Len(t, name, 1)
	assert.Equal(t, "Ada", name[0]["firstName"])
	assert.Equal(t, "Lovelace", name[0]["lastName"])
}

// Two sources contributing different keys at index 0 of the same list path
// yield one merged element, not two separate entries.
func TestMerge_ListOfMappings_IndexAligned(t *testing.T) {
	captions := mustFragment(t, "person.photos", []map[string]any{{"caption": "x"}})
	ids := mustFragment(t, "person.photos", []map[string]any{{"imageId": "y"}})

	record := Merge([]fragment.Fragment{captions, ids})

	require.Len(t, record.Person, 1)
	photos := record.Person[0]["photos"].([]map[string]any)
	require.Len(t, photos, 1)
	assert.Equal(t, map[string]any{"caption": "x", "imageId": "y"}, photos[0])
}

func TestMerge_ListOfMappings_ExtrasAppended(t *testing.T) {
	one := mustFragment(t, "person.photos", []map[string]any{{"caption": "x"}})
	two := mustFragment(t, "person.photos", []map[string]any{
		{"imageId": "y"},
		{"imageId": "z"},
	})

	record := Merge([]fragment.Fragment{one, two})

	photos := record.Person[0]["photos"].([]map[string]any)
	require.Len(t, photos, 2)
	assert.Equal(t, map[string]any{"caption": "x", "imageId": "y"}, photos[0])
	assert.Equal(t, map[string]any{"imageId": "z"}, photos[1])
}

func TestMerge_ShorterIncomingLeavesTrailingElements(t *testing.T) {
	dst := map[string]any{"photos": []any{
		map[string]any{"caption": "a"},
		map[string]any{"caption": "b"},
	}}
	MergeInto(dst, map[string]any{"photos": []any{
		map[string]any{"imageId": "1"},
	}})

	photos := dst["photos"].([]map[string]any)
	require.Len(t, photos, 2)
	assert.Equal(t, map[string]any{"caption": "a", "imageId": "1"}, photos[0])
	assert.Equal(t, map[string]any{"caption": "b"}, photos[1])
}

func TestMergeInto_ScalarListAppendDedupe(t *testing.T) {
	dst := map[string]any{"emails": []any{"a", "b"}}
	MergeInto(dst, map[string]any{"emails": []any{"b", "c"}})
	assert.Equal(t, []any{"a", "b", "c"}, dst["emails"])
}

func TestMergeInto_ScalarLastWriterWins(t *testing.T) {
	dst := map[string]any{"status": "active"}
	MergeInto(dst, map[string]any{"status": "inactive"})
	assert.Equal(t, "inactive", dst["status"])
}

// Type mismatches never raise; the incoming value overwrites.
func TestMergeInto_TypeMismatchOverwrites(t *testing.T) {
	dst := map[string]any{
		"name":  map[string]any{"firstName": "Ada"},
		"score": 10,
		"tags":  []any{"x"},
	}
	MergeInto(dst, map[string]any{
		"name":  "flattened",
		"score": map[string]any{"value": 10},
		"tags":  map[string]any{"primary": "x"},
	})

	assert.Equal(t, "flattened", dst["name"])
	assert.Equal(t, map[string]any{"value": 10}, dst["score"])
	assert.Equal(t, map[string]any{"primary": "x"}, dst["tags"])
}

func TestMergeInto_EmptyIncomingSequenceKeepsDestination(t *testing.T) {
	dst := map[string]any{"emails": []any{"a"}}
	MergeInto(dst, map[string]any{"emails": []any{}})
	assert.Equal(t, []any{"a"}, dst["emails"])
}

func TestMergeInto_AbsentKeyInsertedAsDeepCopy(t *testing.T) {
	src := map[string]any{"address": map[string]any{"city": "London"}}
	dst := map[string]any{}
	MergeInto(dst, src)

	src["address"].(map[string]any)["city"] = "mutated"
	assert.Equal(t, "London", dst["address"].(map[string]any)["city"])
}

// Merging [A, B, C] in one call equals applying A, then B, then C.
func TestMerge_SequentialApplicationEquivalence(t *testing.T) {
	a := mustFragment(t, "person.name", []map[string]any{{"firstName": "Ada"}})
	b := mustFragment(t, "person.name", []map[string]any{{"lastName": "Lovelace"}})
	c := mustFragment(t, "person.emails", []map[string]any{{"value": "ada@example.org"}})

	all := Merge([]fragment.Fragment{a, b, c})

	step := Merge([]fragment.Fragment{a})
	step.Person = MergeItems(step.Person, []map[string]any{{"name": b.Items()}})
	step.Person = MergeItems(step.Person, []map[string]any{{"emails": c.Items()}})

	assert.Equal(t, all, step)
}

func TestMerge_IdempotentForMappings(t *testing.T) {
	f := mustFragment(t, "person.name", []map[string]any{{"firstName": "Ada"}})

	once := Merge([]fragment.Fragment{f})
	twice := Merge([]fragment.Fragment{f, f})

	assert.Equal(t, once, twice)
}

func TestMerge_ScalarListRepeatDedupedByConstruction(t *testing.T) {
	dst := map[string]any{"emails": []any{"a"}}
	MergeInto(dst, map[string]any{"emails": []any{"a"}})
	MergeInto(dst, map[string]any{"emails": []any{"a"}})
	assert.Equal(t, []any{"a"}, dst["emails"])
}

func TestMerge_OutputDoesNotAliasFragments(t *testing.T) {
	items := []map[string]any{{"firstName": "Ada"}}
	f := mustFragment(t, "person.name", items)

	record := Merge([]fragment.Fragment{f})

	// Mutate the fragment's own items; the record must be unaffected.
	f.Items()[0]["firstName"] = "corrupted"
	name := record.Person[0]["name"].([]map[string]any)
	assert.Equal(t, "Ada", name[0]["firstName"])
}

func TestMerge_DeterministicForFixedOrder(t *testing.T) {
	a := mustFragment(t, "person.name", []map[string]any{{"firstName": "Ada", "lastName": "A"}})
	b := mustFragment(t, "person.name", []map[string]any{{"lastName": "Lovelace"}})

	first := Merge([]fragment.Fragment{a, b})
	second := Merge([]fragment.Fragment{a, b})
	assert.Equal(t, first, second)

	// Order matters for conflicting scalars: later fragments win.
	reversed := Merge([]fragment.Fragment{b, a})
	name := reversed.Person[0]["name"].([]map[string]any)
	assert.Equal(t, "A", name[0]["lastName"])
	forward := first.Person[0]["name"].([]map[string]any)
	assert.Equal(t, "Lovelace", forward[0]["lastName"])
}
