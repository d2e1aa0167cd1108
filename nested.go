package statepick

// SubMachine adapts a nested Engine into a Behavior, layering one selection
// machine inside a state of another. Lifecycle hooks forward into the
// nested engine: entering the outer state wakes the inner machine, leaving
// it deactivates the inner machine, and the outer Update/FixedUpdate drive
// the inner ticks. Plain recursive ownership - no protocol beyond that.
type SubMachine[ID comparable] struct {
	BaseBehavior
	inner *Engine[ID]

	// gate, when set, is the outer state's CanEnter.
	gate func() bool
}

// NewSubMachine wraps inner as a Behavior. canEnter gates the outer state's
// admission; pass nil for always-admissible.
func NewSubMachine[ID comparable](inner *Engine[ID], canEnter func() bool) *SubMachine[ID] {
	return &SubMachine[ID]{inner: inner, gate: canEnter}
}

// Inner returns the nested engine.
func (s *SubMachine[ID]) Inner() *Engine[ID] { return s.inner }

// CanEnter consults the gate, defaulting to admissible.
func (s *SubMachine[ID]) CanEnter() bool {
	if s.gate != nil {
		return s.gate()
	}
	return true
}

// OnCreated creates the nested engine.
func (s *SubMachine[ID]) OnCreated() { s.inner.OnCreated() }

// OnEnter re-runs the nested admission scan so the inner machine picks an
// active state as soon as the outer one activates.
func (s *SubMachine[ID]) OnEnter() { s.inner.OnUpdate() }

// OnExit deactivates the nested machine.
func (s *SubMachine[ID]) OnExit() { s.inner.Deactivate() }

// OnUpdate ticks the nested machine.
func (s *SubMachine[ID]) OnUpdate() { s.inner.OnUpdate() }

// OnFixedUpdate forwards the fixed tick.
func (s *SubMachine[ID]) OnFixedUpdate() { s.inner.OnFixedUpdate() }
