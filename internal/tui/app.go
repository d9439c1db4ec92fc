package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/apiflow/internal/session"
	"github.com/pablasso/apiflow/internal/tui/msgs"
	"github.com/pablasso/apiflow/internal/tui/styles"
	"github.com/pablasso/apiflow/internal/tui/views"
	"github.com/pablasso/apiflow/internal/workflow"
)

// View represents the different screens in the TUI.
type View int

const (
	ViewPrompt View = iota
	ViewRunning
)

const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 16
)

// Model is the main Bubble Tea model that orchestrates all views.
type Model struct {
	currentView View
	width       int
	height      int

	prompt views.PromptModel
	run    views.RunningModel
	hasRun bool

	session   *session.Session
	validator Validator
	opts      Options
}

// Run starts the TUI application and blocks until the user quits. Any run
// still streaming is stopped before returning.
func Run(opts Options) error {
	if opts.Streamer == nil {
		return fmt.Errorf("tui: no streamer configured")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	events := views.NewRunEvents()
	sessOpts := []session.Option{
		session.WithEvents(events),
		session.WithLogger(logger),
		session.WithConsumerOptions(opts.ConsumerOptions...),
	}
	if opts.Capture != nil {
		sessOpts = append(sessOpts, session.WithCapture(opts.Capture))
	}
	sess := session.New(opts.Streamer, workflow.NewStore(""), sessOpts...)
	defer sess.Stop()

	p := tea.NewProgram(
		newModel(opts, sess),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	events.Attach(p)

	_, err := p.Run()
	return err
}

func newModel(opts Options, sess *session.Session) Model {
	prompt := views.NewPromptModel(opts.Endpoint, opts.Demo != nil)
	if opts.Demo != nil {
		prompt.SetValue(opts.Demo.Scenario.Prompt())
	}
	return Model{
		currentView: ViewPrompt,
		prompt:      prompt,
		session:     sess,
		validator:   opts.Validator,
		opts:        opts,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.prompt.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.SetSize(msg.Width, msg.Height)
		if m.hasRun {
			m.run.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case msgs.SubmitPromptMsg:
		return m, m.startRun(msg.Prompt)

	case msgs.RunStartedMsg:
		m.run = views.NewRunningModel(msg.RunID, msg.Prompt, m.session.Store(), m.session.Stop)
		m.run.SetDemoMode(m.opts.Demo != nil)
		m.run.SetShowSecrets(m.opts.ShowSecrets)
		m.run.SetSize(m.width, m.height)
		m.hasRun = true
		m.currentView = ViewRunning
		m.prompt.Reset()
		return m, m.run.Init()

	case msgs.RunEventMsg, msgs.RunFinishedMsg:
		if !m.hasRun {
			return m, nil
		}
		var cmd tea.Cmd
		m.run, cmd = m.run.Update(msg)
		return m, cmd

	case msgs.GoToPromptMsg:
		m.currentView = ViewPrompt
		m.prompt.Reset()
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.currentView == ViewRunning && m.hasRun {
			var cmd tea.Cmd
			m.run, cmd = m.run.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	// Timers and blinks go to every live view.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	cmds = append(cmds, cmd)
	if m.hasRun {
		m.run, cmd = m.run.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// startRun validates the prompt and starts a run. The session reports the
// start through RunStartedMsg; only failures are returned here.
func (m Model) startRun(prompt string) tea.Cmd {
	sess, validator := m.session, m.validator
	return func() tea.Msg {
		ctx := context.Background()
		if validator != nil {
			v, err := validator.Validate(ctx, prompt)
			if err != nil {
				return msgs.PromptRejectedMsg{Reason: fmt.Sprintf("Validation failed: %v", err)}
			}
			if !v.Valid {
				reason := v.Error
				if reason == "" {
					reason = v.Message
				}
				if reason == "" {
					reason = "prompt rejected"
				}
				return msgs.PromptRejectedMsg{Reason: reason}
			}
		}
		if _, err := sess.Start(ctx, prompt); err != nil {
			return msgs.PromptRejectedMsg{Reason: err.Error()}
		}
		return nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < MinTerminalWidth || m.height < MinTerminalHeight) {
		return m.renderTerminalTooSmall()
	}

	if m.currentView == ViewRunning && m.hasRun {
		return m.run.View()
	}
	return m.prompt.View()
}

func (m Model) renderTerminalTooSmall() string {
	lines := []string{
		styles.ErrorStyle.Render("Terminal too small"),
		"",
		fmt.Sprintf("Minimum: %dx%d", MinTerminalWidth, MinTerminalHeight),
		fmt.Sprintf("Current: %dx%d", m.width, m.height),
	}
	content := strings.Join(lines, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
