package harness

import (
	"fmt"
	"slices"

	"github.com/dhowell/statepick/internal/scenario"
)

// evaluateAssertions checks the scenario's final assertions against the
// recorded result and returns one failure string per violation.
func evaluateAssertions(sc *scenario.Scenario, res *Result) []string {
	var failures []string
	for i, a := range sc.Assertions {
		switch a.Type {
		case scenario.AssertActiveSequence:
			if !slices.Equal(a.Sequence, res.Actives) {
				failures = append(failures, fmt.Sprintf(
					"assertion %d: active sequence %v, expected %v", i, res.Actives, a.Sequence))
			}
		case scenario.AssertTransitionCount:
			if len(res.Transitions) != a.Count {
				failures = append(failures, fmt.Sprintf(
					"assertion %d: %d transitions, expected %d", i, len(res.Transitions), a.Count))
			}
		case scenario.AssertFinalOrder:
			if !slices.Equal(a.Order, res.FinalOrder) {
				failures = append(failures, fmt.Sprintf(
					"assertion %d: final order %v, expected %v", i, res.FinalOrder, a.Order))
			}
		}
	}
	return failures
}
