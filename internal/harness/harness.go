// Package harness executes scenario tick-scripts against a live engine
// built from a compiled machine definition. It drives scripted behavior
// doubles, records the per-tick active trail and every transition, and
// evaluates the scenario's assertions.
package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dhowell/statepick"
	"github.com/dhowell/statepick/internal/compiler"
	"github.com/dhowell/statepick/internal/scenario"
	"github.com/dhowell/statepick/internal/testutil"
)

// TraceEvent is one recorded transition. From and To use the scenario
// "-" literal for "no state".
type TraceEvent struct {
	Tick   uint64 `json:"tick"`
	From   string `json:"from"`
	To     string `json:"to"`
	Forced bool   `json:"forced,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string

	// Actives is the active id after each step, "-" for none.
	Actives []string

	// Transitions lists every transition in occurrence order.
	Transitions []TraceEvent

	// FinalOrder is the registry order after the last step.
	FinalOrder []string

	// Failures lists expectation and assertion violations. An empty
	// slice means the scenario passed.
	Failures []string
}

// Runner executes scenarios.
type Runner struct {
	log *slog.Logger
}

// NewRunner returns a Runner logging through log, or discarding when log
// is nil.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{log: log}
}

// Run executes sc and returns its result. Extra listeners observe every
// transition alongside the harness recorder. An error means the run
// could not be executed at all; script violations land in
// Result.Failures instead.
func (r *Runner) Run(sc *scenario.Scenario, extra ...statepick.TransitionListener[string]) (*Result, error) {
	spec, err := compiler.CompileMachineFile(sc.MachinePath())
	if err != nil {
		return nil, fmt.Errorf("compile machine: %w", err)
	}

	res := &Result{Scenario: sc.Name}
	eng := statepick.New(
		statepick.WithLogger[string](r.log),
		statepick.WithListener[string](statepick.TransitionListenerFunc[string](func(t statepick.Transition[string]) {
			res.Transitions = append(res.Transitions, TraceEvent{
				Tick:   t.Tick,
				From:   idLabel(t.From),
				To:     idLabel(t.To),
				Forced: t.Forced,
			})
		})),
	)
	for _, l := range extra {
		eng.Subscribe(l)
	}

	states := make(map[string]*testutil.ScriptedState, len(spec.States))
	mods := make(map[string]map[string]*testutil.ScriptedModifier, len(spec.States))
	for _, st := range spec.States {
		b := testutil.NewScriptedState()
		states[st.Name] = b
		byName := make(map[string]*testutil.ScriptedModifier, len(st.Modifiers))
		attach := make([]statepick.Modifier, 0, len(st.Modifiers))
		for _, name := range st.Modifiers {
			m := testutil.NewScriptedModifier()
			byName[name] = m
			attach = append(attach, m)
		}
		mods[st.Name] = byName
		if err := eng.AddState(st.Name, b, spec.ResolverFor(st), attach...); err != nil {
			return nil, fmt.Errorf("add state %s: %w", st.Name, err)
		}
	}

	for id, g := range sc.Initial {
		if err := applyGates(eng, states, mods, id, g); err != nil {
			return nil, fmt.Errorf("initial gates: %w", err)
		}
	}

	eng.OnCreated()

	for i, step := range sc.Steps {
		for id, g := range step.Set {
			if err := applyGates(eng, states, mods, id, g); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}
		for j, op := range step.Ops {
			if err := applyOp(eng, op); err != nil {
				return nil, fmt.Errorf("step %d op %d: %w", i, j, err)
			}
		}
		eng.OnUpdate()

		active := scenario.NoActive
		if id, ok := eng.CurrentID(); ok {
			active = id
		}
		res.Actives = append(res.Actives, active)
		if step.ExpectActive != "" && step.ExpectActive != active {
			res.Failures = append(res.Failures,
				fmt.Sprintf("step %d: expected active %s, got %s", i, step.ExpectActive, active))
		}
	}

	res.FinalOrder = eng.Order()
	res.Failures = append(res.Failures, evaluateAssertions(sc, res)...)
	return res, nil
}

func applyGates(eng *statepick.Engine[string], states map[string]*testutil.ScriptedState, mods map[string]map[string]*testutil.ScriptedModifier, id string, g scenario.Gates) error {
	st, ok := states[id]
	if !ok {
		return fmt.Errorf("unknown state %q", id)
	}
	if g.CanEnter != nil {
		st.EnterOK = *g.CanEnter
	}
	if g.CanExit != nil {
		st.ExitOK = *g.CanExit
	}
	if g.Enabled != nil {
		if err := eng.SetStateEnabled(id, *g.Enabled); err != nil {
			return err
		}
	}
	for name, mg := range g.Modifiers {
		m, ok := mods[id][name]
		if !ok {
			return fmt.Errorf("state %q has no modifier %q", id, name)
		}
		if mg.CanEnter != nil {
			m.EnterOK = *mg.CanEnter
		}
		if mg.CanExit != nil {
			m.ExitOK = *mg.CanExit
		}
		if mg.Enabled != nil {
			if err := setModifierEnabled(eng, id, name, mods, *mg.Enabled); err != nil {
				return err
			}
		}
	}
	return nil
}

func setModifierEnabled(eng *statepick.Engine[string], id, name string, mods map[string]map[string]*testutil.ScriptedModifier, enabled bool) error {
	rec, err := eng.Record(id)
	if err != nil {
		return err
	}
	want := mods[id][name]
	for _, slot := range rec.Modifiers() {
		if slot.Modifier == want {
			slot.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("state %q has no modifier %q attached", id, name)
}

func applyOp(eng *statepick.Engine[string], op scenario.Op) error {
	switch {
	case op.ChangeState != "":
		return eng.ChangeState(op.ChangeState)
	case op.RemoveState != "":
		eng.RemoveState(op.RemoveState)
		return nil
	case op.Deactivate:
		eng.Deactivate()
		return nil
	case op.Revert:
		return eng.RevertToPreviousState()
	case op.Recalculate:
		return eng.RecalculateOrder()
	default:
		return fmt.Errorf("empty op")
	}
}

func idLabel(id *string) string {
	if id == nil {
		return scenario.NoActive
	}
	return *id
}
