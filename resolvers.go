package statepick

import (
	"fmt"
	"sort"
	"strings"
)

// Evaluation costs. Cheap absolute checks probe before relative ones so
// composite combinators short-circuit early.
const (
	costBoundary = 0
	costDefault  = 1
	costRelative = 2
	costGroup    = 3
)

// defaultResolver places ids by descending (group, priority) key among the
// other Default-resolved occupants. It has no opinion about occupants placed
// by other resolver kinds.
type defaultResolver[ID comparable] struct {
	group    int
	priority int
	tie      Tiebreaker[ID]
}

// NewDefault places id by descending lexicographic (group, priority) key.
// tie resolves equal keys; pass nil to make equal keys an error.
func NewDefault[ID comparable](group, priority int, tie Tiebreaker[ID]) Resolver[ID] {
	return &defaultResolver[ID]{group: group, priority: priority, tie: tie}
}

func (r *defaultResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	if index >= view.Len() {
		return DecisionUnknown, nil
	}
	occ, ok := view.resolverAt(index).(*defaultResolver[ID])
	if !ok {
		return DecisionUnknown, nil
	}
	switch {
	case r.group != occ.group:
		if r.group > occ.group {
			return DecisionInsert, nil
		}
		return DecisionSkip, nil
	case r.priority != occ.priority:
		if r.priority > occ.priority {
			return DecisionInsert, nil
		}
		return DecisionSkip, nil
	}
	if r.tie == nil {
		return DecisionUnknown, orderErr("probe", id, index, ErrSamePriority)
	}
	if r.tie(id, view.IDAt(index)) > 0 {
		return DecisionInsert, nil
	}
	return DecisionSkip, nil
}

func (r *defaultResolver[ID]) cost() int { return costDefault }

func (r *defaultResolver[ID]) Describe() string {
	return fmt.Sprintf("default(group=%d, priority=%d)", r.group, r.priority)
}

// afterResolver places id immediately after a target id.
type afterResolver[ID comparable] struct {
	target ID
}

// NewAfter places id immediately after target. While target is not
// registered the resolver has no opinion and insertion falls back to append.
func NewAfter[ID comparable](target ID) Resolver[ID] {
	return &afterResolver[ID]{target: target}
}

func (r *afterResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	if id == r.target {
		return DecisionSkip, nil
	}
	t, ok := view.IndexOf(r.target)
	if !ok {
		return DecisionUnknown, nil
	}
	if index == t+1 {
		return DecisionInsert, nil
	}
	return DecisionUnknown, nil
}

func (r *afterResolver[ID]) cost() int { return costRelative }

func (r *afterResolver[ID]) Describe() string {
	return fmt.Sprintf("after(%v)", r.target)
}

// beforeResolver places id immediately before a target id.
type beforeResolver[ID comparable] struct {
	target ID
}

// NewBefore places id immediately before target. While target is not
// registered the resolver has no opinion and insertion falls back to append.
func NewBefore[ID comparable](target ID) Resolver[ID] {
	return &beforeResolver[ID]{target: target}
}

func (r *beforeResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	if id == r.target {
		return DecisionSkip, nil
	}
	t, ok := view.IndexOf(r.target)
	if !ok {
		return DecisionUnknown, nil
	}
	if index == t {
		return DecisionInsert, nil
	}
	return DecisionUnknown, nil
}

func (r *beforeResolver[ID]) cost() int { return costRelative }

func (r *beforeResolver[ID]) Describe() string {
	return fmt.Sprintf("before(%v)", r.target)
}

// boundaryResolver pins id to the absolute front or back of the order.
type boundaryResolver[ID comparable] struct {
	atStart bool
}

// NewBoundary pins id to the front (atStart) or back of the whole order.
// It always has an opinion: every non-boundary slot is skipped.
func NewBoundary[ID comparable](atStart bool) Resolver[ID] {
	return &boundaryResolver[ID]{atStart: atStart}
}

func (r *boundaryResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	if r.atStart && index == 0 {
		return DecisionInsert, nil
	}
	if !r.atStart && index == view.Len() {
		return DecisionInsert, nil
	}
	return DecisionSkip, nil
}

func (r *boundaryResolver[ID]) cost() int { return costBoundary }

func (r *boundaryResolver[ID]) Describe() string {
	if r.atStart {
		return "boundary(start)"
	}
	return "boundary(end)"
}

// groupBoundaryResolver pins id to the start or end boundary of the
// contiguous run of Default-resolved states sharing a group.
type groupBoundaryResolver[ID comparable] struct {
	group   int
	atStart bool
}

// NewGroupBoundary pins id to the start or end of group's contiguous run of
// Default-resolved states. While the group has no members the resolver has
// no opinion and insertion falls back to append.
func NewGroupBoundary[ID comparable](group int, atStart bool) Resolver[ID] {
	return &groupBoundaryResolver[ID]{group: group, atStart: atStart}
}

func (r *groupBoundaryResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	start, length := view.groupRun(r.group)
	if length == 0 {
		return DecisionUnknown, nil
	}
	boundary := start
	if !r.atStart {
		boundary = start + length
	}
	if index == boundary {
		return DecisionInsert, nil
	}
	return DecisionSkip, nil
}

func (r *groupBoundaryResolver[ID]) cost() int { return costGroup }

func (r *groupBoundaryResolver[ID]) Describe() string {
	side := "end"
	if r.atStart {
		side = "start"
	}
	return fmt.Sprintf("group-boundary(group=%d, %s)", r.group, side)
}

// relativeGroupResolver places id at a fixed offset from a group's run start.
type relativeGroupResolver[ID comparable] struct {
	group  int
	offset int
}

// NewRelativeGroupPosition places id at offset slots past the start of
// group's contiguous run. While the group has no members the resolver has
// no opinion and insertion falls back to append.
func NewRelativeGroupPosition[ID comparable](group, offset int) Resolver[ID] {
	return &relativeGroupResolver[ID]{group: group, offset: offset}
}

func (r *relativeGroupResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	start, length := view.groupRun(r.group)
	if length == 0 {
		return DecisionUnknown, nil
	}
	if index == start+r.offset {
		return DecisionInsert, nil
	}
	return DecisionSkip, nil
}

func (r *relativeGroupResolver[ID]) cost() int { return costGroup }

func (r *relativeGroupResolver[ID]) Describe() string {
	return fmt.Sprintf("group-offset(group=%d, offset=%d)", r.group, r.offset)
}

// CombineMode selects how a composite resolver merges child decisions.
type CombineMode int

const (
	// CombineFirst takes the first non-Unknown child decision.
	CombineFirst CombineMode = iota
	// CombineAll inserts only when every child inserts.
	CombineAll
	// CombineAny inserts when any child inserts, skips otherwise.
	CombineAny
	// CombineMajority inserts when insert votes outnumber skip votes among
	// the children that decided.
	CombineMajority
)

// String returns the mode name for diagnostics.
func (m CombineMode) String() string {
	switch m {
	case CombineFirst:
		return "first"
	case CombineAll:
		return "all"
	case CombineAny:
		return "any"
	case CombineMajority:
		return "majority"
	default:
		return "invalid"
	}
}

// compositeResolver merges the decisions of child resolvers.
type compositeResolver[ID comparable] struct {
	mode     CombineMode
	children []Resolver[ID]
}

// NewComposite combines child resolvers under mode. Children are probed in
// ascending evaluation cost; the original order breaks cost ties.
func NewComposite[ID comparable](mode CombineMode, children ...Resolver[ID]) Resolver[ID] {
	sorted := make([]Resolver[ID], len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].cost() < sorted[j].cost()
	})
	return &compositeResolver[ID]{mode: mode, children: sorted}
}

func (r *compositeResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	inserts, skips, unknowns := 0, 0, 0
	for _, c := range r.children {
		d, err := c.canInsertAt(view, index, id)
		if err != nil {
			return DecisionUnknown, err
		}
		if r.mode == CombineFirst && d != DecisionUnknown {
			return d, nil
		}
		switch d {
		case DecisionInsert:
			inserts++
		case DecisionSkip:
			skips++
		default:
			unknowns++
		}
	}
	if unknowns == len(r.children) {
		return DecisionUnknown, nil
	}
	switch r.mode {
	case CombineFirst:
		// Every child answered Unknown; handled above for non-empty sets.
		return DecisionUnknown, nil
	case CombineAll:
		if skips == 0 && unknowns == 0 {
			return DecisionInsert, nil
		}
		return DecisionSkip, nil
	case CombineAny:
		if inserts > 0 {
			return DecisionInsert, nil
		}
		return DecisionSkip, nil
	case CombineMajority:
		if inserts > skips {
			return DecisionInsert, nil
		}
		return DecisionSkip, nil
	}
	return DecisionUnknown, nil
}

func (r *compositeResolver[ID]) cost() int {
	total := 1
	for _, c := range r.children {
		total += c.cost()
	}
	return total
}

func (r *compositeResolver[ID]) Describe() string {
	parts := make([]string, len(r.children))
	for i, c := range r.children {
		parts[i] = c.Describe()
	}
	return fmt.Sprintf("composite(%s: %s)", r.mode, strings.Join(parts, ", "))
}

// conditionalResolver gates an inner resolver behind a predicate.
type conditionalResolver[ID comparable] struct {
	pred  func() bool
	inner Resolver[ID]
}

// NewConditional defers to inner only while pred holds; otherwise the
// resolver has no opinion. pred is re-evaluated on every probe.
func NewConditional[ID comparable](pred func() bool, inner Resolver[ID]) Resolver[ID] {
	return &conditionalResolver[ID]{pred: pred, inner: inner}
}

func (r *conditionalResolver[ID]) canInsertAt(view OrderView[ID], index int, id ID) (Decision, error) {
	if r.pred != nil && !r.pred() {
		return DecisionUnknown, nil
	}
	return r.inner.canInsertAt(view, index, id)
}

func (r *conditionalResolver[ID]) cost() int { return 1 + r.inner.cost() }

func (r *conditionalResolver[ID]) Describe() string {
	return fmt.Sprintf("conditional(%s)", r.inner.Describe())
}
