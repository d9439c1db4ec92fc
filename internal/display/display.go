package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pablasso/apiflow/internal/logging"
	"github.com/pablasso/apiflow/internal/workflow"
)

// Status represents the current run status.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// State holds the current display state.
type State struct {
	StepNum    int
	TotalSteps int
	Completed  int
	StepTitle  string
	Status     Status
	StartTime  time.Time
}

// Display manages the terminal status line and prints run progress above it.
// It implements consumer.RunEvents.
type Display struct {
	mu       sync.Mutex
	writer   io.Writer
	state    State
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup // Ensures goroutine exits before Stop() returns
	active   bool
	lastLine string

	// ShowDetails prints request, response and extracted data for each step.
	ShowDetails bool
	// ShowSecrets disables masking of credentials in printed details.
	ShowSecrets bool
}

// New creates a new Display writing to the given writer.
func New(w io.Writer) *Display {
	return &Display{
		writer: w,
		done:   make(chan struct{}),
	}
}

// Start begins the display update loop.
func (d *Display) Start() {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	d.state.StartTime = time.Now()
	d.ticker = time.NewTicker(time.Second)
	d.wg.Add(1)
	d.mu.Unlock()

	go d.updateLoop()
}

// Stop halts the display update loop and clears the status line.
// Blocks until the update goroutine has exited.
func (d *Display) Stop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	d.ticker.Stop()
	close(d.done)
	d.wg.Wait()
	d.clearLine()
}

// UpdateStep updates the current step information.
func (d *Display) UpdateStep(stepNum, totalSteps, completed int, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.StepNum = stepNum
	d.state.TotalSteps = totalSteps
	d.state.Completed = completed
	d.state.StepTitle = title
}

// UpdateStatus updates the run status.
func (d *Display) UpdateStatus(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = status
}

// OnRunStarted resets the status line for a new run.
func (d *Display) OnRunStarted(runID, prompt string) {
	d.mu.Lock()
	d.state = State{Status: StatusRunning, StartTime: time.Now()}
	d.mu.Unlock()
	d.PrintAbove("Run %s: %s", runID, prompt)
}

// OnEvent prints a line for every applied event and refreshes the status line.
func (d *Display) OnEvent(ev workflow.Event, res workflow.Result, state workflow.State) {
	d.syncState(state)

	switch res.Outcome {
	case workflow.OutcomeUnmatched:
		d.PrintAbove("  ? %s event matched no step", ev.Kind())
		return
	case workflow.OutcomeApplied:
	default:
		return
	}

	switch ev := ev.(type) {
	case workflow.PlanCreated:
		d.PrintAbove("Plan: %d step(s)", len(state.Steps))
		for _, step := range state.Steps {
			d.PrintAbove("  %s (%s)", step.Title, step.ActionType)
		}
	case workflow.StepStarted:
		d.PrintAbove("→ %s", state.Steps[res.Match.Index].Title)
	case workflow.APICallCompleted:
		step := state.Steps[res.Match.Index]
		d.PrintAbove("✓ %s%s", step.Title, describeCall(step))
		if d.ShowDetails {
			d.printJSON("request", step.RequestDetails)
			d.printJSON("response", step.ResponseDetails)
		}
	case workflow.DataExtracted:
		step := state.Steps[res.Match.Index]
		d.PrintAbove("  extracted %s from %s", summarizeKeys(ev.ExtractedData), step.Title)
		if d.ShowDetails {
			d.printJSON("extracted", step.ExtractedData)
		}
	case workflow.RunError:
		d.PrintAbove("✗ %s", ev.Detail)
	case workflow.RunEnd:
		if ev.Message != "" {
			d.PrintAbove("%s", ev.Message)
		}
	}
}

// OnRunFinished prints the run summary.
func (d *Display) OnRunFinished(state workflow.State, err error) {
	d.syncState(state)

	status := StatusCompleted
	switch {
	case err != nil && isCancellation(err):
		status = StatusCancelled
	case err != nil || state.Failed():
		status = StatusFailed
	}
	d.UpdateStatus(status)

	d.mu.Lock()
	elapsed := time.Since(d.state.StartTime)
	d.mu.Unlock()

	done := state.CountStatus(workflow.StepCompleted)
	d.PrintAbove("%s: %d/%d step(s) completed in %s", status, done, len(state.Steps), formatDuration(elapsed))
	if status == StatusFailed && state.Err != "" {
		d.PrintAbove("Error: %s", state.Err)
	}
	if diag := formatDiagnostics(state.Diagnostics); diag != "" {
		d.PrintAbove("Dropped: %s", diag)
	}
}

func (d *Display) syncState(state workflow.State) {
	num, title := 0, ""
	if i := state.CurrentStepIndex; i >= 0 && i < len(state.Steps) {
		num, title = i+1, state.Steps[i].Description
	}
	d.UpdateStep(num, len(state.Steps), state.CountStatus(workflow.StepCompleted), title)
}

func (d *Display) printJSON(label string, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	if !d.ShowSecrets {
		raw = logging.RedactJSON(raw)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "      ", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	d.PrintAbove("    %s: %s", label, buf.String())
}

// updateLoop periodically renders the status line.
func (d *Display) updateLoop() {
	defer d.wg.Done()
	d.render()
	for {
		select {
		case <-d.ticker.C:
			d.render()
		case <-d.done:
			return
		}
	}
}

// render draws the current status line.
func (d *Display) render() {
	d.mu.Lock()
	state := d.state
	lastLine := d.lastLine
	d.mu.Unlock()

	elapsed := time.Since(state.StartTime)
	line := d.formatLine(state, elapsed)

	// Only update if changed (reduces flicker)
	if line == lastLine {
		return
	}

	d.mu.Lock()
	d.lastLine = line
	d.mu.Unlock()

	fmt.Fprintf(d.writer, "\r\033[K%s", line)
}

// formatLine creates the status line string.
func (d *Display) formatLine(state State, elapsed time.Duration) string {
	if state.TotalSteps == 0 {
		if state.Status == StatusRunning {
			return fmt.Sprintf("Planning… │ ⏱ %s", formatDuration(elapsed))
		}
		return ""
	}

	title := state.StepTitle
	if len(title) > 40 {
		title = title[:37] + "..."
	}
	current := "waiting"
	if state.StepNum > 0 {
		current = fmt.Sprintf("Step %d/%d: %s", state.StepNum, state.TotalSteps, title)
	}

	return fmt.Sprintf("%s │ %d/%d done │ ⏱ %s │ %s",
		current,
		state.Completed,
		state.TotalSteps,
		formatDuration(elapsed),
		state.Status)
}

// clearLine clears the status line.
func (d *Display) clearLine() {
	fmt.Fprintf(d.writer, "\r\033[K")
}

// PrintAbove prints a message above the status line.
func (d *Display) PrintAbove(format string, args ...interface{}) {
	d.mu.Lock()
	active := d.active
	d.lastLine = ""
	d.mu.Unlock()

	if active {
		d.clearLine()
	}
	fmt.Fprintf(d.writer, format+"\n", args...)
	if active {
		d.render()
	}
}

// describeCall renders " METHOD url → status" from a completed step.
func describeCall(step workflow.Step) string {
	req := gjson.ParseBytes(step.RequestDetails)
	method, url := req.Get("method").String(), req.Get("url").String()
	if method == "" && url == "" {
		return ""
	}
	out := fmt.Sprintf("  %s %s", strings.ToUpper(method), url)
	if errMsg := gjson.GetBytes(step.ResponseDetails, "error").String(); errMsg != "" {
		out += " → " + errMsg
	}
	return out
}

// summarizeKeys lists the top-level keys of an extracted object.
func summarizeKeys(raw json.RawMessage) string {
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return "data"
	}
	var keys []string
	res.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	if len(keys) == 0 {
		return "nothing"
	}
	return strings.Join(keys, ", ")
}

func formatDiagnostics(diag workflow.Diagnostics) string {
	var parts []string
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(diag.DecodeFailures, "malformed")
	add(diag.CorrelationMisses, "unmatched")
	add(diag.AmbiguousMatches, "ambiguous")
	add(diag.UnknownEvents, "unknown")
	add(diag.IgnoredEvents, "ignored")
	return strings.Join(parts, ", ")
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
