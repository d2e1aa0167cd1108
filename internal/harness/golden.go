package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/dhowell/statepick/internal/scenario"
)

// Snapshot is the golden-file form of a scenario run.
type Snapshot struct {
	Scenario    string       `json:"scenario"`
	Actives     []string     `json:"actives"`
	Transitions []TraceEvent `json:"transitions"`
	FinalOrder  []string     `json:"final_order"`
}

// AssertGolden runs sc and compares its trace against the golden file
// named after the scenario under testdata/golden. Expectation and
// assertion failures inside the scenario fail the test before the golden
// comparison.
func AssertGolden(t *testing.T, r *Runner, sc *scenario.Scenario) {
	t.Helper()

	res, err := r.Run(sc)
	if err != nil {
		t.Fatalf("run scenario %s: %v", sc.Name, err)
	}
	for _, f := range res.Failures {
		t.Errorf("scenario %s: %s", sc.Name, f)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, marshalSnapshot(t, res))
}

func marshalSnapshot(t *testing.T, res *Result) []byte {
	t.Helper()

	snap := Snapshot{
		Scenario:    res.Scenario,
		Actives:     res.Actives,
		Transitions: res.Transitions,
		FinalOrder:  res.FinalOrder,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return append(data, '\n')
}

// Format renders a run as human-readable text, one line per tick plus a
// transition summary. The CLI uses it for its text output.
func Format(res *Result) string {
	out := fmt.Sprintf("scenario %s\n", res.Scenario)
	for i, a := range res.Actives {
		out += fmt.Sprintf("tick %3d  active %s\n", i+1, a)
	}
	for _, tr := range res.Transitions {
		mark := ""
		if tr.Forced {
			mark = "  (forced)"
		}
		out += fmt.Sprintf("transition tick=%d %s -> %s%s\n", tr.Tick, tr.From, tr.To, mark)
	}
	for _, f := range res.Failures {
		out += fmt.Sprintf("FAIL: %s\n", f)
	}
	return out
}
