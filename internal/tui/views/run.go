package views

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/pablasso/apiflow/internal/logging"
	"github.com/pablasso/apiflow/internal/tui/components"
	"github.com/pablasso/apiflow/internal/tui/msgs"
	"github.com/pablasso/apiflow/internal/tui/styles"
	"github.com/pablasso/apiflow/internal/workflow"
)

// runState represents the current state of the running view.
type runState int

const (
	stateRunning runState = iota
	stateCancelling
	stateDone
	stateCancelled
)

const maxNotes = 3

// Expander holds the run state whose expansion set the view toggles.
// *workflow.Store satisfies it.
type Expander interface {
	Snapshot() workflow.State
	ToggleExpanded(i int) workflow.State
}

// RunningModel is the model for the run monitor view.
type RunningModel struct {
	state     runState
	runID     string
	prompt    string
	wf        workflow.State
	cursor    int
	follow    bool // cursor tracks the current step until the user moves it
	startTime time.Time
	endTime   time.Time
	finalErr  error

	// notes lists recent events that did not apply cleanly.
	notes []string

	spinner  spinner.Model
	details  viewport.Model
	expander Expander
	stop     func()

	demoMode    bool
	showSecrets bool

	width  int
	height int
}

// tickMsg is used for elapsed time updates.
type tickMsg time.Time

// NewRunningModel creates the view for a run that has just started. stop is
// called from a command when the user cancels.
func NewRunningModel(runID, prompt string, expander Expander, stop func()) RunningModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	return RunningModel{
		state:     stateRunning,
		runID:     runID,
		prompt:    prompt,
		wf:        workflow.NewState(runID),
		follow:    true,
		startTime: time.Now(),
		spinner:   s,
		details:   viewport.New(80, 10), // resized on first WindowSizeMsg
		expander:  expander,
		stop:      stop,
	}
}

// SetDemoMode marks the run as a demo playback.
func (m *RunningModel) SetDemoMode(demo bool) {
	m.demoMode = demo
}

// SetShowSecrets disables credential masking in expanded details.
func (m *RunningModel) SetShowSecrets(show bool) {
	m.showSecrets = show
	m.refresh()
}

// Init implements tea.Model.
func (m RunningModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tickCmd())
}

func (m RunningModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m RunningModel) active() bool {
	return m.state == stateRunning || m.state == stateCancelling
}

// Update implements tea.Model.
func (m RunningModel) Update(msg tea.Msg) (RunningModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.active() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tickMsg:
		if m.active() {
			return m, m.tickCmd()
		}
		return m, nil

	case msgs.RunEventMsg:
		if msg.RunID != m.runID {
			return m, nil
		}
		m.wf = msg.State
		m.addNote(msg.Event, msg.Result)
		if m.follow && m.wf.CurrentStepIndex >= 0 {
			m.cursor = m.wf.CurrentStepIndex
		}
		m.refresh()
		return m, nil

	case msgs.RunFinishedMsg:
		if msg.RunID != m.runID {
			return m, nil
		}
		m.wf = msg.State
		m.finalErr = msg.Err
		m.endTime = time.Now()
		if errors.Is(msg.Err, context.Canceled) {
			m.state = stateCancelled
		} else {
			m.state = stateDone
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	var cmd tea.Cmd
	m.details, cmd = m.details.Update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input based on current state.
func (m RunningModel) handleKeyPress(msg tea.KeyMsg) (RunningModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.follow = false
			m.refresh()
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.wf.Steps)-1 {
			m.cursor++
			m.follow = false
			m.refresh()
		}
		return m, nil
	case "enter", " ":
		if m.cursor < len(m.wf.Steps) {
			// The store may already hold a newer run.
			if m.expander != nil && m.expander.Snapshot().RunID == m.runID {
				m.wf = m.expander.ToggleExpanded(m.cursor)
			} else {
				m.wf = m.wf.ToggleExpanded(m.cursor)
			}
			m.refresh()
		}
		return m, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d", "home", "end":
		var cmd tea.Cmd
		m.details, cmd = m.details.Update(msg)
		return m, cmd
	case "n":
		return m, func() tea.Msg { return msgs.GoToPromptMsg{} }
	}

	switch m.state {
	case stateRunning:
		if msg.String() == "ctrl+c" {
			m.state = stateCancelling
			// Stop blocks until the run goroutine exits, which may itself be
			// waiting to deliver a message, so it must not run inside Update.
			stop := m.stop
			if stop == nil {
				return m, nil
			}
			return m, func() tea.Msg {
				stop()
				return nil
			}
		}

	case stateDone, stateCancelled:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *RunningModel) addNote(ev workflow.Event, res workflow.Result) {
	var note string
	switch {
	case res.Outcome == workflow.OutcomeUnmatched:
		note = fmt.Sprintf("%s matched no step", ev.Kind())
	case res.Outcome == workflow.OutcomeUnknown:
		note = fmt.Sprintf("ignored unknown event %q", ev.Kind())
	case res.Outcome == workflow.OutcomeApplied && res.Match.Candidates > 1:
		note = fmt.Sprintf("%s matched %d steps, used step %d", ev.Kind(), res.Match.Candidates, res.Match.Index+1)
	default:
		return
	}
	m.notes = append(m.notes, note)
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

// SetSize updates the model dimensions.
func (m *RunningModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// title(2) + prompt(1) + progress(1) + blank(1) + notes/error(2) + status bar(1)
	detailsHeight := height - 8
	if detailsHeight < 3 {
		detailsHeight = 3
	}
	detailsWidth := width - 2
	if detailsWidth < 10 {
		detailsWidth = 10
	}
	m.details.Width = detailsWidth
	m.details.Height = detailsHeight
	m.refresh()
}

// refresh re-renders the step list into the viewport and keeps the cursor visible.
func (m *RunningModel) refresh() {
	content, cursorLine := m.renderSteps()
	m.details.SetContent(content)

	if m.details.Height <= 0 {
		return
	}
	switch {
	case cursorLine < m.details.YOffset:
		m.details.SetYOffset(cursorLine)
	case cursorLine >= m.details.YOffset+m.details.Height:
		m.details.SetYOffset(cursorLine - m.details.Height + 1)
	}
}

// renderSteps returns the step list with expanded details and the line the
// cursor is on.
func (m RunningModel) renderSteps() (string, int) {
	if len(m.wf.Steps) == 0 {
		if m.active() {
			return styles.SubtleStyle.Render("  Waiting for the plan..."), 0
		}
		return styles.SubtleStyle.Render("  No plan was received."), 0
	}

	var lines []string
	cursorLine := 0
	for i, step := range m.wf.Steps {
		if i == m.cursor {
			cursorLine = len(lines)
		}
		lines = append(lines, m.renderStepLine(i, step))
		if m.wf.IsExpanded(i) {
			lines = append(lines, m.renderStepDetails(step)...)
		}
	}
	return strings.Join(lines, "\n"), cursorLine
}

func (m RunningModel) renderStepLine(i int, step workflow.Step) string {
	marker := "  "
	if i == m.cursor {
		marker = styles.SelectedStyle.Render("▸ ")
	}
	toggle := "+"
	if m.wf.IsExpanded(i) {
		toggle = "-"
	}

	title := step.Title
	if i == m.cursor {
		title = styles.SelectedStyle.Render(title)
	}
	line := fmt.Sprintf("%s%s %s %s", marker, m.stepIndicator(step.Status), toggle, title)

	if call := describeCall(step); call != "" {
		line += "  " + styles.SubtleStyle.Render(call)
	}
	return line
}

func (m RunningModel) renderStepDetails(step workflow.Step) []string {
	var lines []string
	add := func(label string, raw json.RawMessage) {
		if len(raw) == 0 {
			return
		}
		lines = append(lines, "      "+styles.LabelStyle.Render(label))
		for _, l := range strings.Split(formatJSON(raw, m.showSecrets), "\n") {
			lines = append(lines, "        "+l)
		}
	}

	if step.Description != "" && step.Description != step.Title {
		lines = append(lines, "      "+styles.SubtleStyle.Render(step.Description))
	}
	add("Request", step.RequestDetails)
	add("Response", step.ResponseDetails)
	add("Extracted", step.ExtractedData)
	if len(lines) == 0 {
		lines = append(lines, "      "+styles.SubtleStyle.Render("(no details yet)"))
	}
	return lines
}

// stepIndicator returns the status indicator for a step.
func (m RunningModel) stepIndicator(status workflow.StepStatus) string {
	switch status {
	case workflow.StepCompleted:
		return styles.SuccessStyle.Render("✓")
	case workflow.StepError:
		return styles.ErrorStyle.Render("✗")
	case workflow.StepExecuting:
		if m.active() {
			return m.spinner.View()
		}
		return styles.SelectedStyle.Render("▶")
	default:
		return styles.SubtleStyle.Render("○")
	}
}

// View implements tea.Model.
func (m RunningModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.renderTitle()))
	b.WriteString("\n")
	b.WriteString(styles.SubtleStyle.Render(truncateWithEllipsis("Prompt: "+m.prompt, m.width)))
	b.WriteString("\n")
	b.WriteString(m.renderProgressLine())
	b.WriteString("\n\n")

	b.WriteString(m.details.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")

	lines := strings.Count(b.String(), "\n") + 1
	if remaining := m.height - lines; remaining > 0 {
		b.WriteString(strings.Repeat("\n", remaining))
	}

	bar := components.NewStatusBar()
	if m.demoMode {
		bar.Prefix = "[DEMO]"
	}
	b.WriteString(bar.Render(m.width, m.statusItems()))

	return b.String()
}

func (m RunningModel) renderTitle() string {
	switch m.state {
	case stateCancelling:
		return styles.TitleStyle.Render("Stopping run...")
	case stateCancelled:
		return styles.SubtleStyle.Render("Run Cancelled")
	case stateDone:
		if m.wf.Failed() || m.finalErr != nil {
			return styles.ErrorStyle.Render("Run Failed")
		}
		return styles.SuccessStyle.Render("Run Completed")
	}
	return styles.TitleStyle.Render("Running Workflow")
}

func (m RunningModel) renderProgressLine() string {
	completed := m.wf.CountStatus(workflow.StepCompleted)
	progress := components.NewProgress(completed, len(m.wf.Steps), 20).View()
	if progress == "" {
		progress = "Planning…"
	}

	end := m.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return fmt.Sprintf("%s  │  ⏱ %s  │  %s", progress, formatDuration(end.Sub(m.startTime)), m.wf.Phase)
}

func (m RunningModel) renderFooter() string {
	var lines []string
	switch {
	case m.wf.Err != "":
		lines = append(lines, styles.ErrorStyle.Render("✗ "+m.wf.Err))
	case m.state == stateCancelled:
		lines = append(lines, styles.SubtleStyle.Render(fmt.Sprintf("Stopped. Completed %d/%d steps.",
			m.wf.CountStatus(workflow.StepCompleted), len(m.wf.Steps))))
	case m.state == stateDone && m.finalErr != nil:
		lines = append(lines, styles.ErrorStyle.Render("✗ "+m.finalErr.Error()))
	case m.state == stateDone:
		lines = append(lines, styles.SuccessStyle.Render(fmt.Sprintf("✓ Completed %d/%d steps in %s",
			m.wf.CountStatus(workflow.StepCompleted), len(m.wf.Steps), formatDuration(m.endTime.Sub(m.startTime)))))
	}
	if len(m.notes) > 0 {
		lines = append(lines, styles.WarningStyle.Render("! "+m.notes[len(m.notes)-1]))
	}
	return strings.Join(lines, "\n")
}

func (m RunningModel) statusItems() []string {
	switch m.state {
	case stateRunning:
		return []string{"↑↓ Select", "Enter Details", "n New prompt", "Ctrl+C Stop"}
	case stateCancelling:
		return []string{"Stopping...", "Waiting for the stream to close"}
	default:
		return []string{"↑↓ Select", "Enter Details", "n New prompt", "q Quit"}
	}
}

// describeCall returns "METHOD url" from a step's recorded request.
func describeCall(step workflow.Step) string {
	req := gjson.ParseBytes(step.RequestDetails)
	method, url := req.Get("method").String(), req.Get("url").String()
	if method == "" && url == "" {
		return ""
	}
	out := strings.TrimSpace(strings.ToUpper(method) + " " + url)
	if errMsg := gjson.GetBytes(step.ResponseDetails, "error").String(); errMsg != "" {
		out += " → " + errMsg
	}
	return out
}

// formatJSON indents raw JSON, masking credentials unless showSecrets is set.
func formatJSON(raw json.RawMessage, showSecrets bool) string {
	if !showSecrets {
		raw = logging.RedactJSON(raw)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:min(maxLen, len(r))])
	}
	if len(r) > maxLen-3 {
		r = r[:maxLen-3]
	}
	return string(r) + "..."
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}

// RunID returns the id of the run this view follows.
func (m RunningModel) RunID() string {
	return m.runID
}

// Workflow returns the latest run state.
func (m RunningModel) Workflow() workflow.State {
	return m.wf
}

// Cursor returns the selected step index.
func (m RunningModel) Cursor() int {
	return m.cursor
}

// Finished reports whether the run has ended.
func (m RunningModel) Finished() bool {
	return !m.active()
}

// Notes returns the recent diagnostic notes.
func (m RunningModel) Notes() []string {
	return m.notes
}
