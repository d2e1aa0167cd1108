// Package statepick selects, once per discrete tick, exactly one active
// state out of a dynamically registered set.
//
// The package is built from two cooperating pieces:
//
// Ordering:
// An OrderedRegistry holds registered state ids in a total priority order.
// The order is not insertion order - each id carries a Resolver, a small
// placement strategy that is probed against every candidate slot at
// insertion time. Resolvers compose into a declarative ordering DSL
// (absolute group/priority keys, relative before/after placement,
// boundary pinning, conditional and composite combinators).
//
// Selection:
// An Engine owns one registry plus the per-id state records. Each call to
// OnUpdate performs at most one admission scan and at most one transition.
// A state enters only when its CanEnter predicate and the CanEnter of every
// enabled attached Modifier all agree; the active state leaves only when its
// CanExit side agrees likewise. Higher-ordered states preempt lower ones;
// an active state that can no longer justify its own slot yields to the
// best available fallback.
//
// INVARIANTS:
//   - At most one state is active at any time.
//   - The registry's id->index map always mirrors its sequence exactly.
//   - Evaluation is single-threaded and deterministic: scans walk the
//     priority order front to back, no randomness, no concurrency.
//   - Registry mutation (AddState/RemoveState/ChangeState) is legal from
//     inside lifecycle hooks; cached slot indices are rebased through the
//     registry's index-shift subscriptions, never recomputed lazily.
//
// The engine performs no locking. Drive it from exactly one goroutine,
// typically the host simulation loop:
//
//	eng := statepick.New[string]()
//	eng.AddState("idle", idle, statepick.NewDefault[string](0, 0, nil))
//	eng.AddState("run", run, statepick.NewDefault[string](0, 1, nil))
//	eng.OnCreated()
//	for range ticker.C {
//	    eng.OnUpdate()
//	}
package statepick
