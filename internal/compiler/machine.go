// Package compiler turns declarative CUE machine definitions into
// MachineSpec values a host (or the scenario harness) can instantiate an
// engine from.
//
// A machine definition looks like:
//
//	machine: {
//		name: "locomotion"
//		tie:  "name"
//		states: {
//			idle: {group: 0, priority: 0}
//			run:  {group: 0, priority: 1, modifiers: ["stamina"]}
//			jump: {group: 0, priority: 2}
//			slide: {after: "run"}
//			pause: {boundary: "start"}
//		}
//	}
//
// Each state declares exactly one placement form. State and modifier names
// are NFC-normalized so definitions written on different platforms compare
// equal.
package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"

	"github.com/dhowell/statepick"
)

// PlacementKind enumerates the placement forms a state may declare.
type PlacementKind int

const (
	PlaceDefault PlacementKind = iota
	PlaceAfter
	PlaceBefore
	PlaceBoundary
	PlaceGroupBoundary
	PlaceRelative
)

// Placement is the declarative form of one resolver.
type Placement struct {
	Kind     PlacementKind
	Group    int
	Priority int
	Target   string // after/before anchor
	AtStart  bool   // boundary side
	Offset   int    // relative group offset
}

// StateDef is one state declaration.
type StateDef struct {
	Name      string
	Placement Placement
	Modifiers []string
}

// MachineSpec is a compiled machine definition. States keep their
// declaration order; that order is the engine registration order.
type MachineSpec struct {
	Name   string
	Tie    string // "" or "name"
	States []StateDef
}

// State returns the definition of name, if declared.
func (m *MachineSpec) State(name string) (StateDef, bool) {
	for _, s := range m.States {
		if s.Name == name {
			return s, true
		}
	}
	return StateDef{}, false
}

// ResolverFor materializes the statepick resolver for one state
// definition, applying the machine-level tie rule to Default placements.
func (m *MachineSpec) ResolverFor(st StateDef) statepick.Resolver[string] {
	p := st.Placement
	switch p.Kind {
	case PlaceAfter:
		return statepick.NewAfter(p.Target)
	case PlaceBefore:
		return statepick.NewBefore(p.Target)
	case PlaceBoundary:
		return statepick.NewBoundary[string](p.AtStart)
	case PlaceGroupBoundary:
		return statepick.NewGroupBoundary[string](p.Group, p.AtStart)
	case PlaceRelative:
		return statepick.NewRelativeGroupPosition[string](p.Group, p.Offset)
	default:
		var tie statepick.Tiebreaker[string]
		if m.Tie == "name" {
			// Lexicographically smaller names place earlier.
			tie = func(candidate, occupant string) int {
				switch {
				case candidate < occupant:
					return 1
				case candidate > occupant:
					return -1
				default:
					return 0
				}
			}
		}
		return statepick.NewDefault(p.Group, p.Priority, tie)
	}
}

// CompileMachineFile reads and compiles a .cue machine definition.
func CompileMachineFile(path string) (*MachineSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read machine definition: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileString(string(src), cue.Filename(path))
	return CompileMachine(v)
}

// CompileMachine parses a CUE value holding a machine struct.
func CompileMachine(v cue.Value) (*MachineSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	mv := v.LookupPath(cue.ParsePath("machine"))
	if !mv.Exists() {
		return nil, &CompileError{Field: "machine", Message: "machine struct is required", Pos: v.Pos()}
	}

	spec := &MachineSpec{}

	nameVal := mv.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "machine.name", Message: "name is required", Pos: mv.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Name = norm.NFC.String(name)

	if tieVal := mv.LookupPath(cue.ParsePath("tie")); tieVal.Exists() {
		tie, err := tieVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if tie != "name" {
			return nil, &CompileError{
				Field:   "machine.tie",
				Message: fmt.Sprintf("unknown tie rule %q (want \"name\")", tie),
				Pos:     tieVal.Pos(),
			}
		}
		spec.Tie = tie
	}

	statesVal := mv.LookupPath(cue.ParsePath("states"))
	if !statesVal.Exists() {
		return nil, &CompileError{Field: "machine.states", Message: "states struct is required", Pos: mv.Pos()}
	}
	iter, err := statesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		st, err := parseState(norm.NFC.String(iter.Label()), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.States = append(spec.States, st)
	}
	if len(spec.States) == 0 {
		return nil, &CompileError{Field: "machine.states", Message: "at least one state is required", Pos: statesVal.Pos()}
	}
	return spec, nil
}

func parseState(name string, v cue.Value) (StateDef, error) {
	st := StateDef{Name: name}

	forms := 0
	if v.LookupPath(cue.ParsePath("group")).Exists() || v.LookupPath(cue.ParsePath("priority")).Exists() {
		forms++
		st.Placement.Kind = PlaceDefault
		g, err := optionalInt(v, "group")
		if err != nil {
			return st, err
		}
		p, err := optionalInt(v, "priority")
		if err != nil {
			return st, err
		}
		st.Placement.Group, st.Placement.Priority = g, p
	}
	if av := v.LookupPath(cue.ParsePath("after")); av.Exists() {
		forms++
		target, err := av.String()
		if err != nil {
			return st, formatCUEError(err)
		}
		st.Placement = Placement{Kind: PlaceAfter, Target: norm.NFC.String(target)}
	}
	if bv := v.LookupPath(cue.ParsePath("before")); bv.Exists() {
		forms++
		target, err := bv.String()
		if err != nil {
			return st, formatCUEError(err)
		}
		st.Placement = Placement{Kind: PlaceBefore, Target: norm.NFC.String(target)}
	}
	if bv := v.LookupPath(cue.ParsePath("boundary")); bv.Exists() {
		forms++
		side, err := bv.String()
		if err != nil {
			return st, formatCUEError(err)
		}
		atStart, err := parseSide(side, bv.Pos())
		if err != nil {
			return st, err
		}
		st.Placement = Placement{Kind: PlaceBoundary, AtStart: atStart}
	}
	if gv := v.LookupPath(cue.ParsePath("groupBoundary")); gv.Exists() {
		forms++
		g, err := requiredInt(gv, "group")
		if err != nil {
			return st, err
		}
		side, err := gv.LookupPath(cue.ParsePath("side")).String()
		if err != nil {
			return st, formatCUEError(err)
		}
		atStart, err := parseSide(side, gv.Pos())
		if err != nil {
			return st, err
		}
		st.Placement = Placement{Kind: PlaceGroupBoundary, Group: g, AtStart: atStart}
	}
	if rv := v.LookupPath(cue.ParsePath("relative")); rv.Exists() {
		forms++
		g, err := requiredInt(rv, "group")
		if err != nil {
			return st, err
		}
		off, err := requiredInt(rv, "offset")
		if err != nil {
			return st, err
		}
		st.Placement = Placement{Kind: PlaceRelative, Group: g, Offset: off}
	}
	if forms != 1 {
		return st, &CompileError{
			Field:   "machine.states." + name,
			Message: fmt.Sprintf("state must declare exactly one placement form, got %d", forms),
			Pos:     v.Pos(),
		}
	}

	if mv := v.LookupPath(cue.ParsePath("modifiers")); mv.Exists() {
		list, err := mv.List()
		if err != nil {
			return st, formatCUEError(err)
		}
		for list.Next() {
			m, err := list.Value().String()
			if err != nil {
				return st, formatCUEError(err)
			}
			st.Modifiers = append(st.Modifiers, norm.NFC.String(m))
		}
	}
	return st, nil
}

func parseSide(side string, pos token.Pos) (bool, error) {
	switch side {
	case "start":
		return true, nil
	case "end":
		return false, nil
	default:
		return false, &CompileError{
			Field:   "boundary",
			Message: fmt.Sprintf("unknown side %q (want \"start\" or \"end\")", side),
			Pos:     pos,
		}
	}
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func requiredInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
