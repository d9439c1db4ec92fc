package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// StepStatus is the lifecycle status of a single step.
type StepStatus string

// Step status constants
const (
	StepPending   StepStatus = "pending"
	StepExecuting StepStatus = "executing"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// Phase is the lifecycle phase of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlanned
	PhaseExecuting
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePlanned:
		return "Planned"
	case PhaseExecuting:
		return "Executing"
	case PhaseCompleted:
		return "Completed"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Step is the client-side record of one planned action.
type Step struct {
	ID          string
	Title       string
	Description string
	ActionType  string
	Status      StepStatus

	RequestDetails  json.RawMessage
	ResponseDetails json.RawMessage
	ExtractedData   json.RawMessage

	// CallRecorded is set once request and response details have been stored.
	CallRecorded bool
}

// Diagnostics counts events that were dropped instead of applied.
type Diagnostics struct {
	DecodeFailures    int
	CorrelationMisses int
	AmbiguousMatches  int
	UnknownEvents     int
	IgnoredEvents     int
}

// State is the full view of one run. Values are treated as immutable:
// transitions return a modified copy.
type State struct {
	RunID            string
	Phase            Phase
	Plan             []PlannedAction
	Steps            []Step
	CurrentStepIndex int
	Err              string
	Complete         bool
	Diagnostics      Diagnostics

	expanded map[int]bool
	// byID maps correlation ids to step indices. Built once per plan and
	// never written afterwards, so copies share it.
	byID map[string]int
}

// NewState returns the idle state of a run.
func NewState(runID string) State {
	return State{
		RunID:            runID,
		Phase:            PhaseIdle,
		CurrentStepIndex: -1,
	}
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	c := s
	if s.Plan != nil {
		c.Plan = append([]PlannedAction(nil), s.Plan...)
	}
	if s.Steps != nil {
		c.Steps = append([]Step(nil), s.Steps...)
	}
	if s.expanded != nil {
		c.expanded = make(map[int]bool, len(s.expanded))
		for k, v := range s.expanded {
			c.expanded[k] = v
		}
	}
	return c
}

// Terminal reports whether the run has finished, successfully or not.
func (s State) Terminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

// Failed reports whether the run ended with an error.
func (s State) Failed() bool {
	return s.Phase == PhaseFailed
}

// IsExpanded reports whether the detail view of step i is open.
func (s State) IsExpanded(i int) bool {
	return s.expanded[i]
}

// ExpandedSteps returns the indices of open steps in ascending order.
func (s State) ExpandedSteps() []int {
	var out []int
	for i := range s.Steps {
		if s.expanded[i] {
			out = append(out, i)
		}
	}
	return out
}

// ToggleExpanded flips the detail view of step i. Out of range indices are ignored.
func (s State) ToggleExpanded(i int) State {
	if i < 0 || i >= len(s.Steps) {
		return s
	}
	next := s.Clone()
	if next.expanded == nil {
		next.expanded = make(map[int]bool)
	}
	if next.expanded[i] {
		delete(next.expanded, i)
	} else {
		next.expanded[i] = true
	}
	return next
}

// CountStatus returns how many steps have the given status.
func (s State) CountStatus(status StepStatus) int {
	n := 0
	for _, step := range s.Steps {
		if step.Status == status {
			n++
		}
	}
	return n
}

// StepTitle builds the display title, and correlation key, of the n-th (1-based) step.
func StepTitle(n int, description string) string {
	return fmt.Sprintf("Step %d: %s", n, description)
}

// stepID returns the server-issued id of a planned action or derives a
// stable one from the run id and the action's position.
func stepID(runID string, index int, action PlannedAction) string {
	if action.ID != "" {
		return action.ID
	}
	ns, err := uuid.Parse(runID)
	if err != nil {
		ns = uuid.NameSpaceURL
	}
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("%d:%s", index, action.Description))).String()
}

func newSteps(runID string, plan []PlannedAction) ([]Step, map[string]int) {
	steps := make([]Step, len(plan))
	byID := make(map[string]int, len(plan))
	for i, action := range plan {
		id := stepID(runID, i, action)
		steps[i] = Step{
			ID:          id,
			Title:       StepTitle(i+1, action.Description),
			Description: action.Description,
			ActionType:  action.ActionType,
			Status:      StepPending,
		}
		if _, dup := byID[id]; !dup {
			byID[id] = i
		}
	}
	return steps, byID
}
