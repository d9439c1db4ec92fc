package workflow

import "strings"

// titleSeparator splits "Step 1: Log in" into its ordinal and description.
const titleSeparator = ": "

// Match is the result of resolving an event to a step.
type Match struct {
	// Index of the chosen step, -1 on a miss.
	Index int
	// Candidates is the number of steps that satisfied the rule.
	Candidates int
	// ByID is true when the step was found through its correlation id.
	ByID bool
}

func miss() Match { return Match{Index: -1} }

// matchByID resolves a reference through the correlation id map.
func (s State) matchByID(ref StepRef) (Match, bool) {
	if ref.ID == "" {
		return Match{}, false
	}
	idx, ok := s.byID[ref.ID]
	if !ok {
		return Match{}, false
	}
	return Match{Index: idx, Candidates: 1, ByID: true}, true
}

// MatchExact resolves a reference by id, falling back to exact title equality.
func (s State) MatchExact(ref StepRef) Match {
	if m, ok := s.matchByID(ref); ok {
		return m
	}
	if ref.Title == "" {
		return miss()
	}
	m := miss()
	for i, step := range s.Steps {
		if step.Title != ref.Title {
			continue
		}
		if m.Index == -1 {
			m.Index = i
		}
		m.Candidates++
	}
	return m
}

// MatchContaining resolves a reference by id, falling back to the
// description heuristic: the text after the first ": " of the reference
// title must occur within a step title. The first candidate in plan order wins.
func (s State) MatchContaining(ref StepRef) Match {
	if m, ok := s.matchByID(ref); ok {
		return m
	}
	_, desc, found := strings.Cut(ref.Title, titleSeparator)
	if !found || desc == "" {
		return miss()
	}
	m := miss()
	for i, step := range s.Steps {
		if !strings.Contains(step.Title, desc) {
			continue
		}
		if m.Index == -1 {
			m.Index = i
		}
		m.Candidates++
	}
	return m
}
