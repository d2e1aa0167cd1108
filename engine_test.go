package statepick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookLog records lifecycle dispatch order across states and modifiers.
type hookLog struct {
	events []string
}

func (l *hookLog) add(e string) { l.events = append(l.events, e) }

// testState is a fully scripted behavior: gates are plain fields, hooks
// log their dispatch.
type testState struct {
	name     string
	log      *hookLog
	enterOK  bool
	exitOK   bool
	onEnter  func()
	onExit   func()
	onUpdate func()
}

func newTestState(name string, log *hookLog) *testState {
	return &testState{name: name, log: log, enterOK: true, exitOK: true}
}

func (s *testState) CanEnter() bool { return s.enterOK }
func (s *testState) CanExit() bool  { return s.exitOK }
func (s *testState) OnCreated()     { s.log.add(s.name + ":created") }
func (s *testState) OnEnter() {
	s.log.add(s.name + ":enter")
	if s.onEnter != nil {
		s.onEnter()
	}
}
func (s *testState) OnExit() {
	s.log.add(s.name + ":exit")
	if s.onExit != nil {
		s.onExit()
	}
}
func (s *testState) OnUpdate() {
	s.log.add(s.name + ":update")
	if s.onUpdate != nil {
		s.onUpdate()
	}
}
func (s *testState) OnFixedUpdate() { s.log.add(s.name + ":fixed") }

// testModifier is a scripted modifier attachment.
type testModifier struct {
	name    string
	log     *hookLog
	enterOK bool
	exitOK  bool
	owner   Behavior
}

func newTestModifier(name string, log *hookLog) *testModifier {
	return &testModifier{name: name, log: log, enterOK: true, exitOK: true}
}

func (m *testModifier) CanEnter() bool { return m.enterOK }
func (m *testModifier) CanExit() bool  { return m.exitOK }
func (m *testModifier) OnCreated(owner Behavior) {
	m.owner = owner
	m.log.add(m.name + ":created")
}
func (m *testModifier) OnEnter()       { m.log.add(m.name + ":enter") }
func (m *testModifier) OnExit()        { m.log.add(m.name + ":exit") }
func (m *testModifier) OnUpdate()      { m.log.add(m.name + ":update") }
func (m *testModifier) OnFixedUpdate() { m.log.add(m.name + ":fixed") }

func currentOf(t *testing.T, e *Engine[string]) string {
	t.Helper()
	id, ok := e.CurrentID()
	require.True(t, ok, "expected an active state")
	return id
}

func TestEngine_OnCreated_PicksHighestAdmissible(t *testing.T) {
	// Idle (0,0), Run (0,1), Jump (0,2): all admissible, Jump wins.
	log := &hookLog{}
	e := New[string]()
	require.NoError(t, e.AddState("idle", newTestState("idle", log), NewDefault[string](0, 0, nil)))
	require.NoError(t, e.AddState("run", newTestState("run", log), NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("jump", newTestState("jump", log), NewDefault[string](0, 2, nil)))

	e.OnCreated()

	assert.Equal(t, "jump", currentOf(t, e))
	assert.Equal(t, []string{"jump:created", "run:created", "idle:created", "jump:enter"}, log.events)
}

func TestEngine_Preemption(t *testing.T) {
	log := &hookLog{}
	a := newTestState("a", log)
	b := newTestState("b", log)
	b.enterOK = false

	e := New[string]()
	require.NoError(t, e.AddState("a", a, NewDefault[string](0, 0, nil)))
	require.NoError(t, e.AddState("b", b, NewDefault[string](0, 1, nil)))
	e.OnCreated()
	require.Equal(t, "a", currentOf(t, e))

	// b inadmissible: a holds.
	e.OnUpdate()
	assert.Equal(t, "a", currentOf(t, e))

	// b admissible and strictly higher: preempts on the next tick.
	b.enterOK = true
	e.OnUpdate()
	assert.Equal(t, "b", currentOf(t, e))
}

func TestEngine_Lock_CanExitFalseHoldsActive(t *testing.T) {
	// Scenario: Landing cannot exit; Crouching outranks it but must wait.
	log := &hookLog{}
	landing := newTestState("landing", log)
	crouching := newTestState("crouching", log)
	crouching.enterOK = false

	e := New[string]()
	require.NoError(t, e.AddState("landing", landing, NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("crouching", crouching, NewDefault[string](0, 2, nil)))
	e.OnCreated()
	require.Equal(t, "landing", currentOf(t, e))

	landing.exitOK = false
	crouching.enterOK = true
	e.OnUpdate()
	assert.Equal(t, "landing", currentOf(t, e), "locked active state must hold")

	landing.exitOK = true
	e.OnUpdate()
	assert.Equal(t, "crouching", currentOf(t, e))
}

func TestEngine_FallbackWhenActiveInadmissible(t *testing.T) {
	// An active state that can no longer justify its slot yields to a
	// lower-priority fallback.
	log := &hookLog{}
	hi := newTestState("hi", log)
	lo := newTestState("lo", log)

	e := New[string]()
	require.NoError(t, e.AddState("hi", hi, NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("lo", lo, NewDefault[string](0, 0, nil)))
	e.OnCreated()
	require.Equal(t, "hi", currentOf(t, e))

	hi.enterOK = false
	e.OnUpdate()
	assert.Equal(t, "lo", currentOf(t, e))

	// No admissible candidate at all: active holds.
	lo.enterOK = false
	hi.enterOK = false
	e.OnUpdate()
	assert.Equal(t, "lo", currentOf(t, e))
}

func TestEngine_ChangeState(t *testing.T) {
	log := &hookLog{}
	e := New[string]()
	require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 0, nil)))
	e.OnCreated()
	require.Equal(t, "a", currentOf(t, e))

	t.Run("forces ignoring admission", func(t *testing.T) {
		rec, err := e.Record("b")
		require.NoError(t, err)
		rec.behavior.(*testState).enterOK = false

		require.NoError(t, e.ChangeState("b"))
		assert.Equal(t, "b", currentOf(t, e))
		prev, ok := e.PreviousID()
		require.True(t, ok)
		assert.Equal(t, "a", prev)
	})

	t.Run("unknown id errors", func(t *testing.T) {
		err := e.ChangeState("ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already active is a no-op", func(t *testing.T) {
		require.NoError(t, e.ChangeState("b"))
		assert.Equal(t, "b", currentOf(t, e))
	})

	t.Run("disabled target is a no-op, not an error", func(t *testing.T) {
		require.NoError(t, e.SetStateEnabled("a", false))
		require.NoError(t, e.ChangeState("a"))
		assert.Equal(t, "b", currentOf(t, e))
		require.NoError(t, e.SetStateEnabled("a", true))
	})
}

func TestEngine_RevertToPreviousState(t *testing.T) {
	log := &hookLog{}
	e := New[string]()
	require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("x", newTestState("x", log), NewDefault[string](0, 0, nil)))
	e.OnCreated()
	require.Equal(t, "a", currentOf(t, e))

	require.NoError(t, e.ChangeState("x"))
	require.NoError(t, e.RevertToPreviousState())

	assert.Equal(t, "a", currentOf(t, e))
	prev, ok := e.PreviousID()
	require.True(t, ok)
	assert.Equal(t, "x", prev, "revert swaps current and previous")

	t.Run("without previous it deactivates", func(t *testing.T) {
		e2 := New[string]()
		require.NoError(t, e2.AddState("solo", newTestState("solo", log), NewDefault[string](0, 0, nil)))
		e2.OnCreated()
		require.Equal(t, "solo", currentOf(t, e2))

		require.NoError(t, e2.RevertToPreviousState())
		_, ok := e2.CurrentID()
		assert.False(t, ok)
	})
}

func TestEngine_AddState_DuplicateFails(t *testing.T) {
	log := &hookLog{}
	e := New[string]()
	require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 0, nil)))

	err := e.AddState("a", newTestState("a2", log), NewDefault[string](0, 9, nil))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, []string{"a"}, e.Order())
}

func TestEngine_AddState_AfterCreatedFiresCreated(t *testing.T) {
	log := &hookLog{}
	e := New[string]()
	e.OnCreated()

	mod := newTestModifier("m", log)
	st := newTestState("late", log)
	require.NoError(t, e.AddState("late", st, NewDefault[string](0, 0, nil), mod))

	assert.Equal(t, []string{"late:created", "m:created"}, log.events)
	assert.Same(t, st, mod.owner, "modifier Created receives its owning behavior")
}

func TestEngine_RemoveState(t *testing.T) {
	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		e := New[string]()
		e.RemoveState("ghost")
	})

	t.Run("removing active exits and falls back", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 1, nil)))
		require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 0, nil)))
		e.OnCreated()
		require.Equal(t, "a", currentOf(t, e))

		e.RemoveState("a")
		assert.Equal(t, "b", currentOf(t, e))
		assert.False(t, e.HasState("a"))
		_, ok := e.PreviousID()
		assert.False(t, ok, "removed active leaves no dangling previous")
	})

	t.Run("removing active with no fallback deactivates", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		require.NoError(t, e.AddState("only", newTestState("only", log), NewDefault[string](0, 0, nil)))
		e.OnCreated()

		e.RemoveState("only")
		_, ok := e.CurrentID()
		assert.False(t, ok)
		assert.Contains(t, log.events, "only:exit")
	})

	t.Run("removing previous clears it", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 1, nil)))
		require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 0, nil)))
		e.OnCreated()
		require.NoError(t, e.ChangeState("b"))

		e.RemoveState("a")
		_, ok := e.PreviousID()
		assert.False(t, ok)
	})
}

func TestEngine_ModifierVeto(t *testing.T) {
	log := &hookLog{}
	st := newTestState("a", log)
	mod := newTestModifier("m", log)
	mod.enterOK = false

	e := New[string]()
	require.NoError(t, e.AddState("a", st, NewDefault[string](0, 0, nil), mod))
	e.OnCreated()

	_, ok := e.CurrentID()
	assert.False(t, ok, "enabled modifier vetoes entry")

	// Disabling the attachment removes its veto.
	rec, err := e.Record("a")
	require.NoError(t, err)
	rec.Modifiers()[0].Enabled = false
	e.OnUpdate()
	assert.Equal(t, "a", currentOf(t, e))

	// Re-enable and veto exit: state is locked in.
	rec.Modifiers()[0].Enabled = true
	mod.enterOK = true
	mod.exitOK = false
	require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 9, nil)))
	e.OnUpdate()
	assert.Equal(t, "a", currentOf(t, e), "enabled modifier vetoes exit")

	mod.exitOK = true
	e.OnUpdate()
	assert.Equal(t, "b", currentOf(t, e))
}

func TestEngine_DispatchOrderAndUpdates(t *testing.T) {
	log := &hookLog{}
	a := newTestState("a", log)
	am := newTestModifier("am", log)
	b := newTestState("b", log)
	bm := newTestModifier("bm", log)
	b.enterOK = false

	e := New[string]()
	require.NoError(t, e.AddState("a", a, NewDefault[string](0, 0, nil), am))
	require.NoError(t, e.AddState("b", b, NewDefault[string](0, 1, nil), bm))
	e.OnCreated()
	require.Equal(t, "a", currentOf(t, e))

	log.events = nil
	b.enterOK = true
	e.OnUpdate()

	// Exit: state then modifiers; Enter: state then modifiers; then the
	// post-transition active gets the Update.
	assert.Equal(t, []string{"a:exit", "am:exit", "b:enter", "bm:enter", "b:update", "bm:update"}, log.events)

	log.events = nil
	e.OnFixedUpdate()
	assert.Equal(t, []string{"b:fixed", "bm:fixed"}, log.events, "fixed tick dispatches without a scan")
}

func TestEngine_ReentrantMutationFromHooks(t *testing.T) {
	t.Run("OnEnter adds a higher state", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		a := newTestState("a", log)
		a.onEnter = func() {
			boss := newTestState("boss", log)
			boss.enterOK = false
			require.NoError(t, e.AddState("boss", boss, NewDefault[string](9, 0, nil)))
		}
		require.NoError(t, e.AddState("a", a, NewDefault[string](0, 0, nil)))
		e.OnCreated()

		// boss was inserted at slot 0 mid-enter; the cached active index
		// must have shifted with a.
		assert.Equal(t, []string{"boss", "a"}, e.Order())
		assert.Equal(t, "a", currentOf(t, e))

		rec, err := e.Record("boss")
		require.NoError(t, err)
		rec.behavior.(*testState).enterOK = true
		e.OnUpdate()
		assert.Equal(t, "boss", currentOf(t, e))
	})

	t.Run("OnExit removes another state", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		a := newTestState("a", log)
		a.onExit = func() { e.RemoveState("padding") }
		require.NoError(t, e.AddState("padding", newTestState("padding", log), NewDefault[string](0, 2, nil)))
		require.NoError(t, e.AddState("a", a, NewDefault[string](0, 1, nil)))
		require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 0, nil)))

		pad, err := e.Record("padding")
		require.NoError(t, err)
		pad.behavior.(*testState).enterOK = false

		e.OnCreated()
		require.Equal(t, "a", currentOf(t, e))

		// Force to b: a's exit hook removes "padding", shifting all slots
		// below it. The transition must still land on b.
		require.NoError(t, e.ChangeState("b"))
		assert.Equal(t, "b", currentOf(t, e))
		assert.False(t, e.HasState("padding"))
	})

	t.Run("OnEnter removes the entered state", func(t *testing.T) {
		log := &hookLog{}
		e := New[string]()
		flash := newTestState("flash", log)
		flash.onEnter = func() { e.RemoveState("flash") }
		require.NoError(t, e.AddState("flash", flash, NewDefault[string](0, 0, nil)))
		e.OnCreated()

		_, ok := e.CurrentID()
		assert.False(t, ok, "self-removing state leaves the engine inactive")
		assert.False(t, e.HasState("flash"))
	})
}

func TestEngine_Listeners(t *testing.T) {
	log := &hookLog{}
	var seen []Transition[string]
	e := New(WithListener[string](TransitionListenerFunc[string](func(tr Transition[string]) {
		seen = append(seen, tr)
	})))
	require.NoError(t, e.AddState("a", newTestState("a", log), NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("b", newTestState("b", log), NewDefault[string](0, 0, nil)))
	e.OnCreated()
	require.NoError(t, e.ChangeState("b"))
	e.Deactivate()

	require.Len(t, seen, 3)

	assert.Nil(t, seen[0].From)
	assert.Equal(t, "a", *seen[0].To)
	assert.False(t, seen[0].Forced)

	assert.Equal(t, "a", *seen[1].From)
	assert.Equal(t, "b", *seen[1].To)
	assert.True(t, seen[1].Forced)

	assert.Equal(t, "b", *seen[2].From)
	assert.Nil(t, seen[2].To)
	assert.True(t, seen[2].Forced)
}

func TestEngine_GetState(t *testing.T) {
	log := &hookLog{}
	st := newTestState("a", log)
	e := New[string]()
	require.NoError(t, e.AddState("a", st, NewDefault[string](0, 0, nil)))

	got, err := e.GetState("a")
	require.NoError(t, err)
	assert.Same(t, Behavior(st), got)

	_, err = e.GetState("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_DisabledActiveYields(t *testing.T) {
	log := &hookLog{}
	e := New[string]()
	require.NoError(t, e.AddState("hi", newTestState("hi", log), NewDefault[string](0, 1, nil)))
	require.NoError(t, e.AddState("lo", newTestState("lo", log), NewDefault[string](0, 0, nil)))
	e.OnCreated()
	require.Equal(t, "hi", currentOf(t, e))

	require.NoError(t, e.SetStateEnabled("hi", false))
	e.OnUpdate()
	assert.Equal(t, "lo", currentOf(t, e))
}
