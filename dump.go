package statepick

import (
	"fmt"
	"io"
	"strings"
)

// DumpOrder writes a human-readable view of the current priority order:
// one line per slot with the id, its runtime flags and the description of
// the resolver that placed it. Informational only - nothing parses this.
func (e *Engine[ID]) DumpOrder(w io.Writer) {
	for i, entry := range e.registry.entries {
		activeMark := " "
		enabledMark := "+"
		if rec, ok := e.records[entry.id]; ok {
			if rec.active {
				activeMark = "*"
			}
			if !rec.enabled {
				enabledMark = "-"
			}
		}
		fmt.Fprintf(w, "%3d %s%s %v  %s\n", i, activeMark, enabledMark, entry.id, entry.resolver.Describe())
	}
}

// OrderDump returns DumpOrder's output as a string.
func (e *Engine[ID]) OrderDump() string {
	var b strings.Builder
	e.DumpOrder(&b)
	return b.String()
}
