// Package msgs defines shared message types for TUI view transitions and run updates.
package msgs

import "github.com/pablasso/apiflow/internal/workflow"

// View transition messages

// GoToPromptMsg signals transition to the prompt view.
type GoToPromptMsg struct{}

// SubmitPromptMsg is sent when the user submits a prompt.
type SubmitPromptMsg struct {
	Prompt string
}

// PromptRejectedMsg is sent when a prompt fails validation or the run cannot start.
type PromptRejectedMsg struct {
	Reason string
}

// Run messages. Each carries the id of the run it belongs to so views can
// drop updates from a run that has been replaced.

// RunStartedMsg is sent when a run begins.
type RunStartedMsg struct {
	RunID  string
	Prompt string
}

// RunEventMsg is sent after each event has been applied to the run state.
type RunEventMsg struct {
	RunID  string
	Event  workflow.Event
	Result workflow.Result
	State  workflow.State
}

// RunFinishedMsg signals that a run has ended.
type RunFinishedMsg struct {
	RunID string
	State workflow.State
	Err   error
}
