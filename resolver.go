package statepick

// Decision is a resolver's answer for one probed slot.
type Decision int

const (
	// DecisionUnknown means the resolver has no opinion about the slot.
	DecisionUnknown Decision = iota
	// DecisionInsert means the candidate belongs at the probed slot.
	DecisionInsert
	// DecisionSkip means the candidate must not take the probed slot.
	DecisionSkip
)

// String returns the decision name for diagnostics.
func (d Decision) String() string {
	switch d {
	case DecisionInsert:
		return "insert"
	case DecisionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Tiebreaker disambiguates two Default resolvers with equal (group, priority)
// keys. A positive result places candidate before occupant, zero or negative
// places it after. A Default resolver without a tiebreaker fails the probe
// with ErrSamePriority when it meets an equal key.
type Tiebreaker[ID comparable] func(candidate, occupant ID) int

// Resolver decides, slot by slot, where a state id belongs in the total
// priority order. The variant set is closed: all implementations live in
// this package and are built through the New* constructors, so composite
// combinators can rely on the full set of behaviors.
//
// Resolvers only ever read the order they are probed against. The registry
// guarantees the view is not mutated between probes of a single Insert.
type Resolver[ID comparable] interface {
	// canInsertAt answers whether id belongs at slot index in the given
	// order. index ranges over [0, view.Len()] - probing one past the end
	// is legal and means "append".
	canInsertAt(view OrderView[ID], index int, id ID) (Decision, error)

	// cost is the relative evaluation weight. Composite resolvers probe
	// their children in ascending cost order.
	cost() int

	// Describe returns a short human-readable form for diagnostics.
	Describe() string
}

// OrderView is the read-only window a resolver probes against. It is only
// grown or shrunk between probe sequences, never during one.
type OrderView[ID comparable] struct {
	reg *OrderedRegistry[ID]
}

// Len returns the number of ordered ids.
func (v OrderView[ID]) Len() int { return len(v.reg.entries) }

// IDAt returns the id occupying slot index. index must be in [0, Len()).
func (v OrderView[ID]) IDAt(index int) ID { return v.reg.entries[index].id }

// IndexOf returns the slot of id, or false when id is not registered.
func (v OrderView[ID]) IndexOf(id ID) (int, bool) {
	i, ok := v.reg.index[id]
	return i, ok
}

func (v OrderView[ID]) resolverAt(index int) Resolver[ID] {
	return v.reg.entries[index].resolver
}

// groupRun locates the contiguous run of Default-resolved states sharing
// group. Returns start slot and run length; length zero means the group
// has no members yet.
func (v OrderView[ID]) groupRun(group int) (start, length int) {
	for i := range v.reg.entries {
		d, ok := v.reg.entries[i].resolver.(*defaultResolver[ID])
		if !ok || d.group != group {
			if length > 0 {
				return start, length
			}
			continue
		}
		if length == 0 {
			start = i
		}
		length++
	}
	return start, length
}

// GroupOf returns the group key of a Default resolver.
// Fails with ErrResolverShape for any other variant.
func GroupOf[ID comparable](r Resolver[ID]) (int, error) {
	d, ok := r.(*defaultResolver[ID])
	if !ok {
		return 0, orderErr("group-of", nil, -1, ErrResolverShape)
	}
	return d.group, nil
}

// PriorityOf returns the priority key of a Default resolver.
// Fails with ErrResolverShape for any other variant.
func PriorityOf[ID comparable](r Resolver[ID]) (int, error) {
	d, ok := r.(*defaultResolver[ID])
	if !ok {
		return 0, orderErr("priority-of", nil, -1, ErrResolverShape)
	}
	return d.priority, nil
}
