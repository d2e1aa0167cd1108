// Package testutil provides scripted behavior doubles for engine tests and
// the scenario harness. Gates are plain settable fields so scripts can flip
// them deterministically between ticks.
package testutil

import "github.com/dhowell/statepick"

// ScriptedState is a Behavior with settable gates and dispatch counters.
type ScriptedState struct {
	EnterOK bool
	ExitOK  bool

	Created int
	Enters  int
	Exits   int
	Updates int
	Fixed   int
}

// NewScriptedState returns a fully admissible scripted state.
func NewScriptedState() *ScriptedState {
	return &ScriptedState{EnterOK: true, ExitOK: true}
}

func (s *ScriptedState) CanEnter() bool { return s.EnterOK }
func (s *ScriptedState) CanExit() bool  { return s.ExitOK }
func (s *ScriptedState) OnCreated()     { s.Created++ }
func (s *ScriptedState) OnEnter()       { s.Enters++ }
func (s *ScriptedState) OnExit()        { s.Exits++ }
func (s *ScriptedState) OnUpdate()      { s.Updates++ }
func (s *ScriptedState) OnFixedUpdate() { s.Fixed++ }

// ScriptedModifier is a Modifier with settable gates and dispatch counters.
type ScriptedModifier struct {
	EnterOK bool
	ExitOK  bool

	// Owner is captured from the Created hook.
	Owner statepick.Behavior

	Created int
	Enters  int
	Exits   int
	Updates int
	Fixed   int
}

// NewScriptedModifier returns a fully permissive scripted modifier.
func NewScriptedModifier() *ScriptedModifier {
	return &ScriptedModifier{EnterOK: true, ExitOK: true}
}

func (m *ScriptedModifier) CanEnter() bool { return m.EnterOK }
func (m *ScriptedModifier) CanExit() bool  { return m.ExitOK }
func (m *ScriptedModifier) OnCreated(owner statepick.Behavior) {
	m.Owner = owner
	m.Created++
}
func (m *ScriptedModifier) OnEnter()       { m.Enters++ }
func (m *ScriptedModifier) OnExit()        { m.Exits++ }
func (m *ScriptedModifier) OnUpdate()      { m.Updates++ }
func (m *ScriptedModifier) OnFixedUpdate() { m.Fixed++ }
