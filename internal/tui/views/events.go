package views

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/tui/msgs"
	"github.com/pablasso/apiflow/internal/workflow"
)

// Sender delivers messages to a running Bubble Tea program.
type Sender interface {
	Send(msg tea.Msg)
}

// RunEvents forwards run callbacks to the TUI as messages. It is created
// before the program exists, so the sender is attached afterwards; callbacks
// arriving before that are dropped.
type RunEvents struct {
	mu     sync.Mutex
	sender Sender
	runID  string
}

// NewRunEvents creates an adapter with no sender attached.
func NewRunEvents() *RunEvents {
	return &RunEvents{}
}

// Attach sets the program that receives messages.
func (e *RunEvents) Attach(s Sender) {
	e.mu.Lock()
	e.sender = s
	e.mu.Unlock()
}

func (e *RunEvents) send(msg tea.Msg) {
	e.mu.Lock()
	s := e.sender
	e.mu.Unlock()
	if s != nil {
		s.Send(msg)
	}
}

// OnRunStarted implements consumer.RunEvents.
func (e *RunEvents) OnRunStarted(runID, prompt string) {
	e.mu.Lock()
	e.runID = runID
	e.mu.Unlock()
	e.send(msgs.RunStartedMsg{RunID: runID, Prompt: prompt})
}

// OnEvent implements consumer.RunEvents.
func (e *RunEvents) OnEvent(ev workflow.Event, res workflow.Result, state workflow.State) {
	e.send(msgs.RunEventMsg{RunID: state.RunID, Event: ev, Result: res, State: state})
}

// OnRunFinished implements consumer.RunEvents.
func (e *RunEvents) OnRunFinished(state workflow.State, err error) {
	e.send(msgs.RunFinishedMsg{RunID: state.RunID, State: state, Err: err})
}

var _ consumer.RunEvents = (*RunEvents)(nil)
