package statepick

// ModifierSlot is one modifier attachment on a state. Enabled gates both
// the modifier's veto power and its Enter/Exit/Update hooks; OnCreated
// fires regardless.
type ModifierSlot struct {
	Modifier Modifier
	Enabled  bool
}

// StateRecord pairs a registered behavior with its runtime flags and
// modifier attachments.
type StateRecord[ID comparable] struct {
	id        ID
	behavior  Behavior
	enabled   bool
	active    bool
	modifiers []*ModifierSlot
}

func newStateRecord[ID comparable](id ID, b Behavior, mods []Modifier) *StateRecord[ID] {
	rec := &StateRecord[ID]{id: id, behavior: b, enabled: true}
	for _, m := range mods {
		rec.modifiers = append(rec.modifiers, &ModifierSlot{Modifier: m, Enabled: true})
	}
	return rec
}

// ID returns the record's state id.
func (r *StateRecord[ID]) ID() ID { return r.id }

// Behavior returns the registered behavior object.
func (r *StateRecord[ID]) Behavior() Behavior { return r.behavior }

// Enabled reports whether the state participates in admission scans.
func (r *StateRecord[ID]) Enabled() bool { return r.enabled }

// Active reports whether the state is the engine's current active state.
func (r *StateRecord[ID]) Active() bool { return r.active }

// Modifiers returns the live modifier attachments. Toggling a slot's
// Enabled flag takes effect on the next admission scan.
func (r *StateRecord[ID]) Modifiers() []*ModifierSlot { return r.modifiers }

// canEnter is the entry admission: the state and every enabled modifier
// must all agree.
func (r *StateRecord[ID]) canEnter() bool {
	if !r.behavior.CanEnter() {
		return false
	}
	for _, s := range r.modifiers {
		if s.Enabled && !s.Modifier.CanEnter() {
			return false
		}
	}
	return true
}

// canExit is the exit admission: the state and every enabled modifier must
// all agree.
func (r *StateRecord[ID]) canExit() bool {
	if !r.behavior.CanExit() {
		return false
	}
	for _, s := range r.modifiers {
		if s.Enabled && !s.Modifier.CanExit() {
			return false
		}
	}
	return true
}

// fireCreated dispatches OnCreated to the state and to every modifier,
// enabled or not, passing each modifier its owner.
func (r *StateRecord[ID]) fireCreated() {
	r.behavior.OnCreated()
	for _, s := range r.modifiers {
		s.Modifier.OnCreated(r.behavior)
	}
}

// fireEnter marks the record active, then dispatches OnEnter to the state
// and its enabled modifiers, in that order.
func (r *StateRecord[ID]) fireEnter() {
	r.active = true
	r.behavior.OnEnter()
	for _, s := range r.modifiers {
		if s.Enabled {
			s.Modifier.OnEnter()
		}
	}
}

// fireExit dispatches OnExit to the state and its enabled modifiers, in
// that order, then marks the record inactive.
func (r *StateRecord[ID]) fireExit() {
	r.behavior.OnExit()
	for _, s := range r.modifiers {
		if s.Enabled {
			s.Modifier.OnExit()
		}
	}
	r.active = false
}

func (r *StateRecord[ID]) fireUpdate() {
	r.behavior.OnUpdate()
	for _, s := range r.modifiers {
		if s.Enabled {
			s.Modifier.OnUpdate()
		}
	}
}

func (r *StateRecord[ID]) fireFixedUpdate() {
	r.behavior.OnFixedUpdate()
	for _, s := range r.modifiers {
		if s.Enabled {
			s.Modifier.OnFixedUpdate()
		}
	}
}
