package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhowell/statepick"
)

func compile(t *testing.T, src string) (*MachineSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	return CompileMachine(ctx.CompileString(src))
}

func TestCompileMachine_Basic(t *testing.T) {
	spec, err := compile(t, `
machine: {
	name: "locomotion"
	tie:  "name"
	states: {
		idle: {group: 0, priority: 0}
		run:  {group: 0, priority: 1, modifiers: ["stamina", "terrain"]}
		slide: {after: "run"}
		pause: {boundary: "start"}
		cameo: {groupBoundary: {group: 0, side: "end"}}
		wedge: {relative: {group: 0, offset: 1}}
	}
}`)
	require.NoError(t, err)

	assert.Equal(t, "locomotion", spec.Name)
	assert.Equal(t, "name", spec.Tie)
	require.Len(t, spec.States, 6)

	// Declaration order is registration order.
	names := make([]string, len(spec.States))
	for i, s := range spec.States {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"idle", "run", "slide", "pause", "cameo", "wedge"}, names)

	run, ok := spec.State("run")
	require.True(t, ok)
	assert.Equal(t, PlaceDefault, run.Placement.Kind)
	assert.Equal(t, 1, run.Placement.Priority)
	assert.Equal(t, []string{"stamina", "terrain"}, run.Modifiers)

	slide, _ := spec.State("slide")
	assert.Equal(t, PlaceAfter, slide.Placement.Kind)
	assert.Equal(t, "run", slide.Placement.Target)

	pause, _ := spec.State("pause")
	assert.Equal(t, PlaceBoundary, pause.Placement.Kind)
	assert.True(t, pause.Placement.AtStart)

	cameo, _ := spec.State("cameo")
	assert.Equal(t, PlaceGroupBoundary, cameo.Placement.Kind)
	assert.False(t, cameo.Placement.AtStart)

	wedge, _ := spec.State("wedge")
	assert.Equal(t, PlaceRelative, wedge.Placement.Kind)
	assert.Equal(t, 1, wedge.Placement.Offset)
}

func TestCompileMachine_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"missing machine", `other: {}`, "machine struct is required"},
		{"missing name", `machine: {states: {a: {group: 0}}}`, "name is required"},
		{"missing states", `machine: {name: "m"}`, "states struct is required"},
		{"empty states", `machine: {name: "m", states: {}}`, "at least one state"},
		{"no placement", `machine: {name: "m", states: {a: {}}}`, "exactly one placement form"},
		{"two placements", `machine: {name: "m", states: {a: {group: 0, after: "b"}}}`, "exactly one placement form"},
		{"bad boundary side", `machine: {name: "m", states: {a: {boundary: "middle"}}}`, "unknown side"},
		{"bad tie", `machine: {name: "m", tie: "coin", states: {a: {group: 0}}}`, "unknown tie rule"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compile(t, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMachineSpec_ResolverFor(t *testing.T) {
	spec, err := compile(t, `
machine: {
	name: "m"
	tie:  "name"
	states: {
		b: {group: 0, priority: 1}
		a: {group: 0, priority: 1}
		tail: {after: "a"}
	}
}`)
	require.NoError(t, err)

	// Materialized resolvers drive a real registry; the name tie orders
	// equal keys lexicographically.
	reg := statepick.NewOrderedRegistry[string]()
	for _, st := range spec.States {
		require.NoError(t, reg.Insert(st.Name, spec.ResolverFor(st)))
	}
	assert.Equal(t, []string{"a", "tail", "b"}, reg.IDs())
}

func TestMachineSpec_ResolverFor_Descriptions(t *testing.T) {
	spec, err := compile(t, `
machine: {
	name: "m"
	states: {
		a: {group: 2, priority: 3}
		first: {boundary: "start"}
	}
}`)
	require.NoError(t, err)

	a, _ := spec.State("a")
	assert.Equal(t, "default(group=2, priority=3)", spec.ResolverFor(a).Describe())
	first, _ := spec.State("first")
	assert.Equal(t, "boundary(start)", spec.ResolverFor(first).Describe())
}
