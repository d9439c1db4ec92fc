package workflow

// Outcome classifies what a transition did with an event.
type Outcome int

const (
	// OutcomeApplied means the state changed.
	OutcomeApplied Outcome = iota
	// OutcomeIgnored means the event was valid but not allowed in the current phase.
	OutcomeIgnored
	// OutcomeUnmatched means no step matched the event.
	OutcomeUnmatched
	// OutcomeUnknown means the event kind is not recognised.
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Result describes the effect of applying one event.
type Result struct {
	Outcome Outcome
	// Match is the correlation result for step events; Index is -1 otherwise.
	Match  Match
	Reason string
}

func applied(m Match) Result { return Result{Outcome: OutcomeApplied, Match: m} }

func ignored(reason string) Result {
	return Result{Outcome: OutcomeIgnored, Match: miss(), Reason: reason}
}

// Apply folds one event into s and returns the new state. s itself is not modified.
func Apply(s State, ev Event) (State, Result) {
	next := s.Clone()

	if _, isEnd := ev.(RunEnd); !isEnd && next.Terminal() {
		next.Diagnostics.IgnoredEvents++
		return next, ignored("run already finished")
	}

	switch ev := ev.(type) {
	case PlanCreated:
		return applyPlanCreated(next, ev)
	case StepStarted:
		return applyStepStarted(next, ev)
	case APICallCompleted:
		return applyAPICallCompleted(next, ev)
	case DataExtracted:
		return applyDataExtracted(next, ev)
	case RunError:
		return applyRunError(next, ev)
	case RunEnd:
		return applyRunEnd(next)
	case Unknown:
		next.Diagnostics.UnknownEvents++
		return next, Result{Outcome: OutcomeUnknown, Match: miss()}
	}

	next.Diagnostics.UnknownEvents++
	return next, Result{Outcome: OutcomeUnknown, Match: miss()}
}

func applyPlanCreated(s State, ev PlanCreated) (State, Result) {
	if s.Phase != PhaseIdle {
		s.Diagnostics.IgnoredEvents++
		return s, ignored("plan already created for this run")
	}
	s.Plan = append([]PlannedAction(nil), ev.Steps...)
	s.Steps, s.byID = newSteps(s.RunID, s.Plan)
	s.CurrentStepIndex = -1
	s.expanded = nil
	s.Phase = PhasePlanned
	return s, applied(miss())
}

func unmatched(s State, m Match) (State, Result) {
	s.Diagnostics.CorrelationMisses++
	return s, Result{Outcome: OutcomeUnmatched, Match: m, Reason: "no step matches event"}
}

func noteAmbiguity(s *State, m Match) {
	if m.Candidates > 1 {
		s.Diagnostics.AmbiguousMatches++
	}
}

func applyStepStarted(s State, ev StepStarted) (State, Result) {
	m := s.MatchExact(ev.StepRef)
	if m.Index == -1 {
		return unmatched(s, m)
	}
	noteAmbiguity(&s, m)

	step := &s.Steps[m.Index]
	if step.Status != StepPending {
		s.Diagnostics.IgnoredEvents++
		r := ignored("step already started")
		r.Match = m
		return s, r
	}
	step.Status = StepExecuting
	s.CurrentStepIndex = m.Index
	s.Phase = PhaseExecuting
	return s, applied(m)
}

func applyAPICallCompleted(s State, ev APICallCompleted) (State, Result) {
	m := s.MatchExact(ev.StepRef)
	if m.Index == -1 {
		return unmatched(s, m)
	}
	noteAmbiguity(&s, m)

	step := &s.Steps[m.Index]
	if step.CallRecorded {
		s.Diagnostics.IgnoredEvents++
		r := ignored("step call already recorded")
		r.Match = m
		return s, r
	}
	step.RequestDetails = ev.RequestDetails
	step.ResponseDetails = ev.ResponseDetails
	step.CallRecorded = true
	step.Status = StepCompleted

	s.CurrentStepIndex = m.Index
	if s.expanded == nil {
		s.expanded = make(map[int]bool)
	}
	s.expanded[m.Index] = true
	s.Phase = PhaseExecuting
	return s, applied(m)
}

func applyDataExtracted(s State, ev DataExtracted) (State, Result) {
	m := s.MatchContaining(ev.StepRef)
	if m.Index == -1 {
		return unmatched(s, m)
	}
	noteAmbiguity(&s, m)

	step := &s.Steps[m.Index]
	step.ExtractedData = ev.ExtractedData
	step.Status = StepCompleted
	s.Phase = PhaseExecuting
	return s, applied(m)
}

func applyRunError(s State, ev RunError) (State, Result) {
	s.Err = ev.Detail
	for i := range s.Steps {
		if s.Steps[i].Status == StepExecuting {
			s.Steps[i].Status = StepError
		}
	}
	s.Phase = PhaseFailed
	return s, applied(miss())
}

func applyRunEnd(s State) (State, Result) {
	if s.Complete {
		return s, Result{Outcome: OutcomeIgnored, Match: miss(), Reason: "run already ended"}
	}
	s.Complete = true
	if s.Phase != PhaseFailed {
		s.Phase = PhaseCompleted
	}
	return s, applied(miss())
}
