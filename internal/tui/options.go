package tui

import (
	"context"
	"log/slog"

	"github.com/pablasso/apiflow/internal/client"
	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/demo"
	"github.com/pablasso/apiflow/internal/session"
)

// Validator checks a prompt before a run is started.
type Validator interface {
	Validate(ctx context.Context, prompt string) (*client.Validation, error)
}

// Options configures TUI startup behavior.
type Options struct {
	// Streamer opens the event stream for each run.
	Streamer session.Streamer
	// Validator is optional; when set, prompts are validated before running.
	Validator Validator
	// Endpoint is shown on the prompt view.
	Endpoint string

	Logger          *slog.Logger
	Capture         *consumer.Capture
	ConsumerOptions []consumer.Option
	ShowSecrets     bool

	Demo *DemoOptions
}

// DemoOptions configure demo mode when starting the TUI.
type DemoOptions struct {
	Preset   demo.Preset
	Scenario demo.Scenario
}
