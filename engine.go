package statepick

import (
	"io"
	"log/slog"
)

// noIndex is the sentinel for "no cached slot".
const noIndex = -1

// Engine owns one OrderedRegistry plus the per-id state records and runs
// the per-tick admission scan and lifecycle dispatch.
//
// All operations run to completion synchronously on the caller's goroutine;
// the engine performs no locking. AddState, RemoveState and ChangeState are
// legal from inside lifecycle hooks - the registry's index subscriptions
// keep the engine's cached current/previous slots correct across such
// reentrant mutation.
type Engine[ID comparable] struct {
	registry *OrderedRegistry[ID]
	records  map[ID]*StateRecord[ID]

	currentIndex  int
	previousIndex int

	created   bool
	tick      uint64
	log       *slog.Logger
	listeners []TransitionListener[ID]
}

// Option configures an Engine.
type Option[ID comparable] func(*Engine[ID])

// WithLogger routes the engine's debug transition log to l.
func WithLogger[ID comparable](l *slog.Logger) Option[ID] {
	return func(e *Engine[ID]) { e.log = l }
}

// WithListener attaches a transition listener at construction time.
func WithListener[ID comparable](l TransitionListener[ID]) Option[ID] {
	return func(e *Engine[ID]) { e.listeners = append(e.listeners, l) }
}

// New returns an empty engine.
func New[ID comparable](opts ...Option[ID]) *Engine[ID] {
	e := &Engine[ID]{
		registry:      NewOrderedRegistry[ID](),
		records:       make(map[ID]*StateRecord[ID]),
		currentIndex:  noIndex,
		previousIndex: noIndex,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	// Cached slots ride along with registry mutation, including mutation
	// triggered reentrantly from lifecycle hooks.
	e.registry.SubscribeIndex(
		func() int { return e.currentIndex },
		func(i int) { e.currentIndex = i },
	)
	e.registry.SubscribeIndex(
		func() int { return e.previousIndex },
		func(i int) { e.previousIndex = i },
	)
	return e
}

// Subscribe attaches a transition listener.
func (e *Engine[ID]) Subscribe(l TransitionListener[ID]) {
	e.listeners = append(e.listeners, l)
}

// AddState registers id with its behavior, placement resolver and modifier
// attachments. If the engine has already been created, the new record's
// Created hooks fire immediately so late-added states see the same
// lifecycle guarantee as ones present at creation time.
func (e *Engine[ID]) AddState(id ID, behavior Behavior, resolver Resolver[ID], mods ...Modifier) error {
	if _, ok := e.records[id]; ok {
		return orderErr("add-state", id, -1, ErrDuplicateID)
	}
	if err := e.registry.Insert(id, resolver); err != nil {
		return err
	}
	rec := newStateRecord[ID](id, behavior, mods)
	e.records[id] = rec
	if e.created {
		rec.fireCreated()
	}
	return nil
}

// RemoveState unregisters id. Removing an unknown id is a silent no-op so
// teardown stays idempotent. Removing the active state fires its Exit hooks
// and immediately runs a full admission scan to pick a fallback; removing
// the previous state just clears the previous slot.
func (e *Engine[ID]) RemoveState(id ID) {
	rec, ok := e.records[id]
	if !ok {
		return
	}
	wasActive := rec.active
	delete(e.records, id)
	// The index subscriptions clear the current/previous slots when they
	// pointed at the removed entry.
	_ = e.registry.Remove(id)

	if !wasActive {
		return
	}
	rec.fireExit()
	from := id
	var to *ID
	if slot := e.scanAdmissible(false); slot != noIndex {
		e.previousIndex = noIndex
		e.currentIndex = slot
		if next := e.currentRecord(); next != nil {
			next.fireEnter()
			v := next.id
			to = &v
		}
	}
	e.notify(&from, to, false)
}

// HasState reports whether id is registered.
func (e *Engine[ID]) HasState(id ID) bool {
	_, ok := e.records[id]
	return ok
}

// GetState returns the behavior registered under id.
func (e *Engine[ID]) GetState(id ID) (Behavior, error) {
	rec, ok := e.records[id]
	if !ok {
		return nil, orderErr("get-state", id, -1, ErrNotFound)
	}
	return rec.behavior, nil
}

// Record returns the full state record for id, giving access to the
// enabled flag and modifier slots.
func (e *Engine[ID]) Record(id ID) (*StateRecord[ID], error) {
	rec, ok := e.records[id]
	if !ok {
		return nil, orderErr("record", id, -1, ErrNotFound)
	}
	return rec, nil
}

// SetStateEnabled toggles id's participation in admission scans. Disabling
// the active state does not force an exit; the next update treats it as
// unable to justify its slot and scans for a fallback.
func (e *Engine[ID]) SetStateEnabled(id ID, enabled bool) error {
	rec, ok := e.records[id]
	if !ok {
		return orderErr("set-enabled", id, -1, ErrNotFound)
	}
	rec.enabled = enabled
	return nil
}

// CurrentID returns the active state id, if any.
func (e *Engine[ID]) CurrentID() (ID, bool) {
	if rec := e.currentRecord(); rec != nil {
		return rec.id, true
	}
	var zero ID
	return zero, false
}

// PreviousID returns the previously active state id, if any.
func (e *Engine[ID]) PreviousID() (ID, bool) {
	var zero ID
	if e.previousIndex == noIndex {
		return zero, false
	}
	id, err := e.registry.IDAt(e.previousIndex)
	if err != nil {
		return zero, false
	}
	return id, true
}

// Order returns the current total priority order.
func (e *Engine[ID]) Order() []ID { return e.registry.IDs() }

// RecalculateOrder re-places every registered state in original
// registration order. The engine's current/previous slots follow their
// states to the new positions.
func (e *Engine[ID]) RecalculateOrder() error {
	return e.registry.RecalculateOrder()
}

// ChangeState forces a transition to id, bypassing admission checks.
// Changing to the already-active state is a no-op, as is changing to a
// disabled state - disabled is a normal runtime gate, not a misuse.
func (e *Engine[ID]) ChangeState(id ID) error {
	rec, ok := e.records[id]
	if !ok {
		return orderErr("change-state", id, -1, ErrNotFound)
	}
	if cur := e.currentRecord(); cur != nil && cur.id == id {
		return nil
	}
	if !rec.enabled {
		return nil
	}
	slot, err := e.registry.IndexOf(id)
	if err != nil {
		return err
	}
	e.transitionTo(slot, true)
	return nil
}

// Deactivate forces a transition to no active state.
func (e *Engine[ID]) Deactivate() {
	if e.currentIndex == noIndex {
		return
	}
	e.transitionTo(noIndex, true)
}

// RevertToPreviousState transitions back to the previously active state:
// a two-slot undo, not an unbounded history. With no previous state it
// deactivates.
func (e *Engine[ID]) RevertToPreviousState() error {
	if e.previousIndex == noIndex {
		e.Deactivate()
		return nil
	}
	id, err := e.registry.IDAt(e.previousIndex)
	if err != nil {
		return err
	}
	return e.ChangeState(id)
}

// OnCreated marks the engine created, fires Created on every registered
// state and modifier (modifiers regardless of their enabled flag), then
// performs one unbounded admission scan and transitions into the winner,
// if any.
func (e *Engine[ID]) OnCreated() {
	e.created = true
	// Snapshot: states added from inside a Created hook fire their own
	// Created at AddState time and must not fire twice.
	for _, id := range e.registry.IDs() {
		if rec, ok := e.records[id]; ok {
			rec.fireCreated()
		}
	}
	e.step()
}

// OnUpdate runs one tick: at most one admission scan, at most one
// transition, then the Update hook on whichever state ends up active plus
// its enabled modifiers.
func (e *Engine[ID]) OnUpdate() {
	e.tick++
	e.step()
	if rec := e.currentRecord(); rec != nil {
		rec.fireUpdate()
	}
}

// OnFixedUpdate dispatches the FixedUpdate hook to the active state and
// its enabled modifiers. No admission scan runs; transitions happen only
// on the regular tick.
func (e *Engine[ID]) OnFixedUpdate() {
	if rec := e.currentRecord(); rec != nil {
		rec.fireFixedUpdate()
	}
}

// Tick returns the number of OnUpdate calls so far.
func (e *Engine[ID]) Tick() uint64 { return e.tick }

// step performs the per-tick admission algorithm.
func (e *Engine[ID]) step() {
	cur := e.currentRecord()
	if cur == nil {
		if slot := e.scanAdmissible(false); slot != noIndex {
			e.transitionTo(slot, false)
		}
		return
	}
	// Locked: the active state and its enabled modifiers must all agree
	// to exit before anything may preempt it.
	if !cur.canExit() {
		return
	}
	// While the active state can still justify its own slot only strictly
	// higher-ordered states may preempt it. Once it cannot, the whole
	// order is scanned for the best fallback.
	bounded := cur.enabled && cur.canEnter()
	slot := e.scanAdmissible(bounded)
	if slot != noIndex && slot != e.currentIndex {
		e.transitionTo(slot, false)
	}
}

// scanAdmissible walks the priority order front to back and returns the
// slot of the first enabled record whose entry admission holds. bounded
// limits the walk to slots strictly above the active state. The registry
// length and the active slot are re-read every iteration, so predicates
// that mutate the registry reentrantly cannot drive the scan out of
// bounds.
func (e *Engine[ID]) scanAdmissible(bounded bool) int {
	for i := 0; i < e.registry.Len(); i++ {
		if bounded && e.currentIndex != noIndex && i >= e.currentIndex {
			break
		}
		id, err := e.registry.IDAt(i)
		if err != nil {
			break
		}
		rec, ok := e.records[id]
		if !ok || !rec.enabled {
			continue
		}
		if rec.canEnter() {
			return i
		}
	}
	return noIndex
}

// transitionTo performs the bookkeeping and lifecycle dispatch of one
// transition: Exit on the old record (state, then enabled modifiers),
// Enter on the new (marked active first, then state, then enabled
// modifiers). Slot bookkeeping goes through the subscribed fields so
// reentrant mutation from inside the hooks rebases it correctly.
func (e *Engine[ID]) transitionTo(slot int, forced bool) {
	old := e.currentRecord()
	var from *ID
	if old != nil {
		v := old.id
		from = &v
	}
	e.previousIndex = e.currentIndex
	e.currentIndex = slot
	if old != nil {
		old.fireExit()
	}
	var to *ID
	// Re-resolve through the rebased slot: an Exit hook may have removed
	// or displaced the incoming state.
	if next := e.currentRecord(); next != nil {
		next.fireEnter()
		v := next.id
		to = &v
	}
	e.notify(from, to, forced)
}

func (e *Engine[ID]) notify(from, to *ID, forced bool) {
	e.log.Debug("transition",
		"tick", e.tick,
		"from", idOrNone(from),
		"to", idOrNone(to),
		"forced", forced,
	)
	t := Transition[ID]{Tick: e.tick, From: from, To: to, Forced: forced}
	for _, l := range e.listeners {
		l.OnTransition(t)
	}
}

func (e *Engine[ID]) currentRecord() *StateRecord[ID] {
	if e.currentIndex == noIndex {
		return nil
	}
	id, err := e.registry.IDAt(e.currentIndex)
	if err != nil {
		return nil
	}
	return e.records[id]
}

func idOrNone[ID comparable](id *ID) any {
	if id == nil {
		return "<none>"
	}
	return *id
}
