package statepick

import "sort"

type orderEntry[ID comparable] struct {
	id       ID
	resolver Resolver[ID]

	// seq is the registration sequence number. RecalculateOrder re-inserts
	// in ascending seq so recalculation is stable with respect to the
	// original AddState order.
	seq uint64
}

// indexSub is one externally cached slot index kept correct across mutation.
type indexSub struct {
	get func() int
	set func(int)
}

// OrderedRegistry maintains the total priority order over registered ids:
// an ordered sequence of (id, resolver) pairs plus an id->index map.
//
// INVARIANTS:
//   - The index map mirrors the sequence exactly at all times.
//   - No duplicate ids.
//   - Mutations are all-or-nothing: a failed Insert leaves both the
//     sequence and the map untouched.
type OrderedRegistry[ID comparable] struct {
	entries []orderEntry[ID]
	index   map[ID]int
	subs    []indexSub
	nextSeq uint64
}

// NewOrderedRegistry returns an empty registry.
func NewOrderedRegistry[ID comparable]() *OrderedRegistry[ID] {
	return &OrderedRegistry[ID]{index: make(map[ID]int)}
}

// Len returns the number of registered ids.
func (r *OrderedRegistry[ID]) Len() int { return len(r.entries) }

// Has reports whether id is registered.
func (r *OrderedRegistry[ID]) Has(id ID) bool {
	_, ok := r.index[id]
	return ok
}

// IndexOf returns id's slot in the total order.
func (r *OrderedRegistry[ID]) IndexOf(id ID) (int, error) {
	i, ok := r.index[id]
	if !ok {
		return 0, orderErr("index-of", id, -1, ErrNotFound)
	}
	return i, nil
}

// IDAt returns the id occupying slot index.
func (r *OrderedRegistry[ID]) IDAt(index int) (ID, error) {
	if index < 0 || index >= len(r.entries) {
		var zero ID
		return zero, orderErr("id-at", nil, index, ErrIndexOutOfRange)
	}
	return r.entries[index].id, nil
}

// IDs returns the ordered ids as a fresh slice.
func (r *OrderedRegistry[ID]) IDs() []ID {
	ids := make([]ID, len(r.entries))
	for i := range r.entries {
		ids[i] = r.entries[i].id
	}
	return ids
}

// SubscribeIndex registers an externally cached slot index. After every
// Insert, Remove or RecalculateOrder the registry reads the cached value
// through get and rebases it through set: +1 for slots at or after an
// insertion, -1 for slots after a removal, -1 (gone) for the removed slot
// itself. A cached value below zero is left alone.
//
// This is what keeps an engine's current/previous indices correct when a
// lifecycle hook mutates the registry reentrantly mid-tick.
func (r *OrderedRegistry[ID]) SubscribeIndex(get func() int, set func(int)) {
	r.subs = append(r.subs, indexSub{get: get, set: set})
}

// Insert places id according to resolver: candidate slots 0..len are probed
// in ascending order and the first Insert answer wins. When no probe answers
// Insert the id is appended at the end.
func (r *OrderedRegistry[ID]) Insert(id ID, resolver Resolver[ID]) error {
	if _, ok := r.index[id]; ok {
		return orderErr("insert", id, -1, ErrDuplicateID)
	}
	slot, err := r.probe(id, resolver)
	if err != nil {
		return err
	}
	r.insertAt(slot, orderEntry[ID]{id: id, resolver: resolver, seq: r.nextSeq})
	r.nextSeq++
	return nil
}

// probe runs the candidate-slot scan without mutating anything. When no
// slot wins it falls back to append at the current end.
func (r *OrderedRegistry[ID]) probe(id ID, resolver Resolver[ID]) (int, error) {
	slot, found, err := r.probeOpinion(id, resolver)
	if err != nil {
		return 0, err
	}
	if !found {
		return len(r.entries), nil
	}
	return slot, nil
}

// probeOpinion scans candidate slots 0..len in ascending order and reports
// the first slot the resolver claims, if any.
func (r *OrderedRegistry[ID]) probeOpinion(id ID, resolver Resolver[ID]) (int, bool, error) {
	view := OrderView[ID]{reg: r}
	for i := 0; i <= len(r.entries); i++ {
		d, err := resolver.canInsertAt(view, i, id)
		if err != nil {
			return 0, false, err
		}
		if d == DecisionInsert {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (r *OrderedRegistry[ID]) insertAt(slot int, e orderEntry[ID]) {
	r.entries = append(r.entries, orderEntry[ID]{})
	copy(r.entries[slot+1:], r.entries[slot:])
	r.entries[slot] = e
	for i := slot; i < len(r.entries); i++ {
		r.index[r.entries[i].id] = i
	}
	for _, sub := range r.subs {
		if cur := sub.get(); cur >= slot {
			sub.set(cur + 1)
		}
	}
}

// Remove deletes id from the order, shifting everything after it one slot
// forward and rebasing subscribed indices.
func (r *OrderedRegistry[ID]) Remove(id ID) error {
	slot, ok := r.index[id]
	if !ok {
		return orderErr("remove", id, -1, ErrNotFound)
	}
	r.entries = append(r.entries[:slot], r.entries[slot+1:]...)
	delete(r.index, id)
	for i := slot; i < len(r.entries); i++ {
		r.index[r.entries[i].id] = i
	}
	for _, sub := range r.subs {
		switch cur := sub.get(); {
		case cur == slot:
			sub.set(-1)
		case cur > slot:
			sub.set(cur - 1)
		}
	}
	return nil
}

// RecalculateOrder re-places every (id, resolver) pair in original
// registration order: each id is lifted out of the order and re-probed
// against all the others, so resolvers whose placement depended on ids
// registered later (After, Before, group resolvers) settle into their
// intended slots once their anchors exist. An id whose resolver claims no
// slot keeps the slot it already had, which makes recalculation stable
// for mutually ambiguous resolvers.
//
// On failure nothing moves. Subscribed indices are remapped by id: a
// subscriber caching the slot of some id keeps pointing at that id.
func (r *OrderedRegistry[ID]) RecalculateOrder() error {
	regOrder := make([]orderEntry[ID], len(r.entries))
	copy(regOrder, r.entries)
	sort.SliceStable(regOrder, func(i, j int) bool { return regOrder[i].seq < regOrder[j].seq })

	// Remember which id each subscriber points at so the new slots can be
	// written back after the rebuild.
	watched := make([]*ID, len(r.subs))
	for i, sub := range r.subs {
		if cur := sub.get(); cur >= 0 && cur < len(r.entries) {
			id := r.entries[cur].id
			watched[i] = &id
		}
	}

	// Reseat on a scratch registry so a failed probe leaves the live
	// order untouched.
	scratch := &OrderedRegistry[ID]{
		entries: make([]orderEntry[ID], len(r.entries)),
		index:   make(map[ID]int, len(r.entries)),
	}
	copy(scratch.entries, r.entries)
	for i := range scratch.entries {
		scratch.index[scratch.entries[i].id] = i
	}
	for _, e := range regOrder {
		old := scratch.index[e.id]
		scratch.entries = append(scratch.entries[:old], scratch.entries[old+1:]...)
		delete(scratch.index, e.id)
		for i := old; i < len(scratch.entries); i++ {
			scratch.index[scratch.entries[i].id] = i
		}
		slot, found, err := scratch.probeOpinion(e.id, e.resolver)
		if err != nil {
			return err
		}
		if !found {
			slot = old
		}
		scratch.insertAt(slot, e)
	}
	r.entries = scratch.entries
	r.index = scratch.index

	for i, sub := range r.subs {
		if watched[i] == nil {
			continue
		}
		if slot, ok := r.index[*watched[i]]; ok {
			sub.set(slot)
		} else {
			sub.set(-1)
		}
	}
	return nil
}
