// Package scenario defines the YAML tick-script format the conformance
// harness and the CLI execute against a compiled machine.
//
// A scenario names a machine definition, optional initial gate values, a
// list of per-tick steps and final assertions:
//
//	name: crouch-preempts-landing
//	machine: locomotion.cue
//	initial:
//	  crouching: {can_enter: false}
//	steps:
//	  - expect_active: landing
//	  - set:
//	      crouching: {can_enter: true}
//	      landing: {can_exit: false}
//	    expect_active: landing
//	  - set:
//	      landing: {can_exit: true}
//	    expect_active: crouching
//	assertions:
//	  - type: transition_count
//	    count: 2
//
// In expectations and recorded sequences the literal "-" stands for "no
// active state".
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NoActive is the sequence literal for "no active state".
const NoActive = "-"

// Assertion type constants.
const (
	AssertActiveSequence  = "active_sequence"
	AssertTransitionCount = "transition_count"
	AssertFinalOrder      = "final_order"
)

// Scenario is one conformance test script.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are stored
	// under it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Machine is the path to the .cue machine definition, relative to the
	// scenario file.
	Machine string `yaml:"machine"`

	// Initial sets gate values before the engine is created. States not
	// listed start fully admissible.
	Initial map[string]Gates `yaml:"initial,omitempty"`

	// Steps run one engine tick each, after applying their mutations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the finished run.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	dir string
}

// Gates mutates the scripted gate values of one state, or of its modifier
// attachments. Nil fields leave the current value alone.
type Gates struct {
	CanEnter  *bool            `yaml:"can_enter,omitempty"`
	CanExit   *bool            `yaml:"can_exit,omitempty"`
	Enabled   *bool            `yaml:"enabled,omitempty"`
	Modifiers map[string]Gates `yaml:"modifiers,omitempty"`
}

// Step is one tick of the script: mutations and control operations apply
// first, then the engine ticks once, then the expectation is checked.
type Step struct {
	Set map[string]Gates `yaml:"set,omitempty"`
	Ops []Op             `yaml:"ops,omitempty"`

	// ExpectActive is the id expected active after this tick; NoActive
	// ("-") expects none. Empty means no expectation.
	ExpectActive string `yaml:"expect_active,omitempty"`
}

// Op is one control operation. Exactly one field may be set.
type Op struct {
	ChangeState string `yaml:"change_state,omitempty"`
	RemoveState string `yaml:"remove_state,omitempty"`
	Deactivate  bool   `yaml:"deactivate,omitempty"`
	Revert      bool   `yaml:"revert,omitempty"`
	Recalculate bool   `yaml:"recalculate,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type is one of active_sequence, transition_count, final_order.
	Type string `yaml:"type"`

	// Sequence is the expected per-tick active id trail
	// (active_sequence).
	Sequence []string `yaml:"sequence,omitempty"`

	// Count is the expected number of transitions (transition_count).
	Count int `yaml:"count,omitempty"`

	// Order is the expected final priority order (final_order).
	Order []string `yaml:"order,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// MachinePath resolves the machine definition path relative to the
// scenario file.
func (s *Scenario) MachinePath() string {
	if filepath.IsAbs(s.Machine) || s.dir == "" {
		return s.Machine
	}
	return filepath.Join(s.dir, s.Machine)
}

// Validate checks structural invariants of the scenario.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Machine == "" {
		return fmt.Errorf("machine is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		for j, op := range step.Ops {
			if err := op.validate(); err != nil {
				return fmt.Errorf("step %d op %d: %w", i, j, err)
			}
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertActiveSequence:
			if len(a.Sequence) == 0 {
				return fmt.Errorf("assertion %d: active_sequence needs a sequence", i)
			}
		case AssertTransitionCount:
			if a.Count < 0 {
				return fmt.Errorf("assertion %d: transition_count must be >= 0", i)
			}
		case AssertFinalOrder:
			if len(a.Order) == 0 {
				return fmt.Errorf("assertion %d: final_order needs an order", i)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

func (o Op) validate() error {
	set := 0
	if o.ChangeState != "" {
		set++
	}
	if o.RemoveState != "" {
		set++
	}
	if o.Deactivate {
		set++
	}
	if o.Revert {
		set++
	}
	if o.Recalculate {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one operation per op entry, got %d", set)
	}
	return nil
}
