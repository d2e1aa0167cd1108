package statepick

// Behavior is the contract every registered state fulfils. The engine
// consumes it; it never stores anything on it.
//
// CanEnter answers whether the state is admissible this tick. CanExit
// answers whether the active state may be left. The On* hooks are
// lifecycle notifications dispatched by the engine:
//
//	OnCreated     once, when the owning engine is created (or immediately
//	              at AddState for states added after creation)
//	OnEnter       when the state becomes active
//	OnExit        when the state stops being active
//	OnUpdate      every tick while active, after transition resolution
//	OnFixedUpdate every fixed tick while active; never transitions
//
// Embed BaseBehavior to inherit defaults for everything except CanEnter,
// which each state must answer for itself.
type Behavior interface {
	CanEnter() bool
	CanExit() bool
	OnCreated()
	OnEnter()
	OnExit()
	OnUpdate()
	OnFixedUpdate()
}

// BaseBehavior supplies the default behavior contract: exit always allowed,
// hooks no-op. It deliberately does not implement CanEnter.
type BaseBehavior struct{}

// CanExit reports that leaving is always allowed.
func (BaseBehavior) CanExit() bool { return true }

// OnCreated is a no-op.
func (BaseBehavior) OnCreated() {}

// OnEnter is a no-op.
func (BaseBehavior) OnEnter() {}

// OnExit is a no-op.
func (BaseBehavior) OnExit() {}

// OnUpdate is a no-op.
func (BaseBehavior) OnUpdate() {}

// OnFixedUpdate is a no-op.
func (BaseBehavior) OnFixedUpdate() {}

// Modifier is an attachment to a state that shares veto power over its
// owner's admission and receives the owner's lifecycle. Modifiers are
// registered explicitly alongside the state at AddState time; each
// attachment carries its own enabled flag (see ModifierSlot).
//
// OnCreated receives the owning state's behavior so the modifier can bind
// to it; it fires regardless of the attachment's enabled flag - wiring and
// runtime gating are distinct concerns. All other hooks and the Can*
// predicates are consulted only while the attachment is enabled.
type Modifier interface {
	CanEnter() bool
	CanExit() bool
	OnCreated(owner Behavior)
	OnEnter()
	OnExit()
	OnUpdate()
	OnFixedUpdate()
}

// BaseModifier supplies the default modifier contract: both gates open,
// hooks no-op.
type BaseModifier struct{}

// CanEnter reports that entry is allowed.
func (BaseModifier) CanEnter() bool { return true }

// CanExit reports that exit is allowed.
func (BaseModifier) CanExit() bool { return true }

// OnCreated is a no-op.
func (BaseModifier) OnCreated(Behavior) {}

// OnEnter is a no-op.
func (BaseModifier) OnEnter() {}

// OnExit is a no-op.
func (BaseModifier) OnExit() {}

// OnUpdate is a no-op.
func (BaseModifier) OnUpdate() {}

// OnFixedUpdate is a no-op.
func (BaseModifier) OnFixedUpdate() {}
