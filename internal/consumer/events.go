package consumer

import "github.com/pablasso/apiflow/internal/workflow"

// RunEvents receives callbacks while a run is consumed.
// Implement this interface in the TUI or a status printer to receive updates.
type RunEvents interface {
	// OnRunStarted is called before the stream is opened
	OnRunStarted(runID, prompt string)

	// OnEvent is called after each decoded event has been applied
	OnEvent(ev workflow.Event, res workflow.Result, state workflow.State)

	// OnRunFinished is called once per run with the final state.
	// err is nil only when the service reported a successful end.
	OnRunFinished(state workflow.State, err error)
}

// NopEvents ignores every callback.
type NopEvents struct{}

func (NopEvents) OnRunStarted(string, string)                              {}
func (NopEvents) OnEvent(workflow.Event, workflow.Result, workflow.State) {}
func (NopEvents) OnRunFinished(workflow.State, error)                      {}
