// File: internal/docs/format_test.go
package docs

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procdoc-lab/cua-cli/api/schemas"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims surrounding whitespace", "  open the portal  \n", "open the portal"},
		{"collapses tabs and space runs", "click\t\tthe   button", "click the button"},
		{"collapses stacked blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"normalizes CRLF", "a\r\nb", "a\nb"},
		{"empty input stays empty", "   \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	in := "  Step one.\n\n\nStep\ttwo.  "
	once := NormalizeText(in)
	twice := NormalizeText(once)
	assert.Equal(t, once, twice, "normalization must be idempotent")
}

func TestFormatStepsEmptyResult(t *testing.T) {
	got := FormatSteps(schemas.GraphQueryResult{})
	assert.Equal(t, EmptyGraphMarker, got, "an empty query result must yield the explicit marker, not an empty block")
}

func TestFormatStepsPreservesOrderAndRelations(t *testing.T) {
	result := schemas.GraphQueryResult{Steps: []schemas.ProcessStep{
		{ID: 1, Description: "Open the browser", Next: []int{2}},
		{ID: 2, Description: "Navigate to the portal", Prev: []int{1}, Next: []int{3}},
		{ID: 3, Description: "Submit the form", Prev: []int{2}},
	}}

	block := FormatSteps(result)
	require.Contains(t, block, "3 steps in execution order")

	// Every step appears, in order, with its successor annotated.
	idx1 := indexOf(t, block, "(step 1) Open the browser [next: step 2]")
	idx2 := indexOf(t, block, "(step 2) Navigate to the portal [next: step 3]")
	idx3 := indexOf(t, block, "(step 3) Submit the form")
	assert.Less(t, idx1, idx2)
	assert.Less(t, idx2, idx3)
}

func TestFormatStepsDeterministic(t *testing.T) {
	result := schemas.GraphQueryResult{Steps: []schemas.ProcessStep{
		{ID: 5, Description: "alpha", Next: []int{7}},
		{ID: 7, Description: "beta", Prev: []int{5}},
	}}
	first := FormatSteps(result)
	second := FormatSteps(result)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("formatting is not deterministic (-first +second):\n%s", diff)
	}
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("chain given out of order", func(t *testing.T) {
		steps := []schemas.ProcessStep{
			{ID: 3, Description: "c", Prev: []int{2}},
			{ID: 1, Description: "a", Next: []int{2}},
			{ID: 2, Description: "b", Prev: []int{1}, Next: []int{3}},
		}
		got := TopologicalOrder(steps)
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 2, 3}, ids(got))
	})

	t.Run("ties broken by input position", func(t *testing.T) {
		// Two independent roots: the one listed first wins.
		steps := []schemas.ProcessStep{
			{ID: 9, Description: "root b"},
			{ID: 4, Description: "root a"},
		}
		got := TopologicalOrder(steps)
		assert.Equal(t, []int{9, 4}, ids(got))
	})

	t.Run("cycle members are kept, not dropped", func(t *testing.T) {
		steps := []schemas.ProcessStep{
			{ID: 1, Prev: []int{2}, Next: []int{2}},
			{ID: 2, Prev: []int{1}, Next: []int{1}},
		}
		got := TopologicalOrder(steps)
		assert.Len(t, got, 2, "no step may ever be silently dropped")
	})

	t.Run("external predecessors are ignored", func(t *testing.T) {
		// Step 2's predecessor was filtered out by a match-scope query.
		steps := []schemas.ProcessStep{
			{ID: 2, Prev: []int{1}, Next: []int{3}},
			{ID: 3, Prev: []int{2}},
		}
		got := TopologicalOrder(steps)
		assert.Equal(t, []int{2, 3}, ids(got))
	})
}

func ids(steps []schemas.ProcessStep) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "expected %q in formatted block:\n%s", needle, haystack)
	return idx
}
