package statepick

// Transition describes one completed change of the active state.
// From and To are nil for the no-active side of a transition.
type Transition[ID comparable] struct {
	// Tick is the engine's update counter at the time of the transition.
	// Transitions fired outside OnUpdate (forced changes, removals) carry
	// the counter of the last update.
	Tick uint64

	From *ID
	To   *ID

	// Forced marks transitions that bypassed admission (ChangeState,
	// Deactivate, RevertToPreviousState).
	Forced bool
}

// TransitionListener observes completed transitions. Listeners are
// notified after the Exit/Enter hooks of the affected records have run;
// they cannot veto.
type TransitionListener[ID comparable] interface {
	OnTransition(t Transition[ID])
}

// TransitionListenerFunc adapts a function to TransitionListener.
type TransitionListenerFunc[ID comparable] func(t Transition[ID])

// OnTransition calls f.
func (f TransitionListenerFunc[ID]) OnTransition(t Transition[ID]) { f(t) }
