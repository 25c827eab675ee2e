// File: internal/docs/format.go
package docs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/procdoc-lab/cua-cli/api/schemas"
)

// EmptyGraphMarker is emitted when a graph query matched nothing. An explicit
// marker keeps the model from mistaking an empty block for "no documentation
// was requested".
const EmptyGraphMarker = "No matching process documentation found."

var (
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText applies the light normalization used for textual grounding:
// trim, collapse horizontal whitespace runs, collapse stacked blank lines.
// Content is otherwise injected verbatim.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalRuns.ReplaceAllString(s, " ")
	s = blankLineRuns.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// FormatSteps linearizes a graph query result into the grounding block.
// Step order is preserved exactly as returned (the query layer guarantees
// topological order with insertion-order tiebreaks), no step is ever dropped,
// and identical input always yields identical output.
func FormatSteps(result schemas.GraphQueryResult) string {
	if len(result.Steps) == 0 {
		return EmptyGraphMarker
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Process documentation, %d steps in execution order:\n", len(result.Steps))
	for i, step := range result.Steps {
		fmt.Fprintf(&b, "%d. (step %d) %s", i+1, step.ID, step.Description)
		if len(step.Next) > 0 {
			fmt.Fprintf(&b, " [next: %s]", joinIDs(step.Next))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("step %d", id)
	}
	return strings.Join(parts, ", ")
}

// TopologicalOrder sorts steps so that every predecessor appears before its
// successors, breaking ties by the original input position. The input slice
// is not modified; the result always contains every input step, including
// members of cycles, which are appended in input order after the acyclic
// prefix rather than dropped.
func TopologicalOrder(steps []schemas.ProcessStep) []schemas.ProcessStep {
	index := make(map[int]int, len(steps))
	for i, s := range steps {
		index[s.ID] = i
	}

	// Predecessors outside the slice (filtered out by a match-scope query)
	// do not count towards the in-degree.
	indegree := make([]int, len(steps))
	for i, s := range steps {
		for _, p := range s.Prev {
			if _, ok := index[p]; ok {
				indegree[i]++
			}
		}
	}

	// Kahn's algorithm with an ordered frontier: the ready step with the
	// smallest input position is emitted first, which makes the order
	// deterministic for identical inputs.
	emitted := make([]bool, len(steps))
	ordered := make([]schemas.ProcessStep, 0, len(steps))
	for len(ordered) < len(steps) {
		next := -1
		for i := range steps {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			// Remaining steps form a cycle; append them in input order.
			for i := range steps {
				if !emitted[i] {
					emitted[i] = true
					ordered = append(ordered, steps[i])
				}
			}
			break
		}

		emitted[next] = true
		ordered = append(ordered, steps[next])
		for _, succ := range steps[next].Next {
			if j, ok := index[succ]; ok && !emitted[j] {
				indegree[j]--
			}
		}
	}
	return ordered
}
