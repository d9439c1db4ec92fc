package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/apiflow/internal/tui/components"
	"github.com/pablasso/apiflow/internal/tui/msgs"
	"github.com/pablasso/apiflow/internal/tui/styles"
)

// PromptModel is the landing view where the user describes a workflow.
type PromptModel struct {
	input    textarea.Model
	endpoint string
	demoMode bool
	pending  bool   // waiting for validation or run start
	errorMsg string // reason the last prompt was rejected
	width    int
	height   int
}

// NewPromptModel creates the prompt view. endpoint is shown in the header.
func NewPromptModel(endpoint string, demoMode bool) PromptModel {
	ta := textarea.New()
	ta.Placeholder = "Describe the API workflow to run... (Enter to submit)"
	ta.SetHeight(4)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.Focus()

	return PromptModel{
		input:    ta,
		endpoint: endpoint,
		demoMode: demoMode,
	}
}

// Init implements tea.Model.
func (m PromptModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m PromptModel) Update(msg tea.Msg) (PromptModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case msgs.PromptRejectedMsg:
		m.pending = false
		m.errorMsg = msg.Reason
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.pending {
				return m, nil
			}
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				m.errorMsg = "Prompt cannot be empty."
				return m, nil
			}
			m.pending = true
			m.errorMsg = ""
			return m, func() tea.Msg { return msgs.SubmitPromptMsg{Prompt: prompt} }
		case "shift+enter", "ctrl+j":
			m.input.InsertString("\n")
			return m, nil
		}
		if m.errorMsg != "" {
			m.errorMsg = ""
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// SetSize updates the model dimensions.
func (m *PromptModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	inputWidth := width - 8
	if inputWidth < 20 {
		inputWidth = 20
	}
	m.input.SetWidth(inputWidth)
}

// SetValue prefills the prompt.
func (m *PromptModel) SetValue(prompt string) {
	m.input.SetValue(prompt)
}

// Value returns the current prompt text.
func (m PromptModel) Value() string {
	return m.input.Value()
}

// Reset clears the pending flag so the prompt can be submitted again.
func (m *PromptModel) Reset() {
	m.pending = false
	m.input.Focus()
}

// Pending reports whether a submitted prompt is awaiting a run.
func (m PromptModel) Pending() bool {
	return m.pending
}

// ErrorMsg returns the current rejection message, if any.
func (m PromptModel) ErrorMsg() string {
	return m.errorMsg
}

// View implements tea.Model.
func (m PromptModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := styles.TitleStyle.Render("A P I F L O W")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n")
	tagline := styles.SubtleStyle.Render("Plan and run API workflows from a prompt")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, tagline))
	b.WriteString("\n\n")

	if m.endpoint != "" {
		b.WriteString(styles.SubtleStyle.Render("Endpoint: " + m.endpoint))
		b.WriteString("\n\n")
	}

	box := styles.BoxStyle.Copy().Padding(0, 1).Width(m.width - 4)
	b.WriteString(box.Render(m.input.View()))
	b.WriteString("\n")

	switch {
	case m.errorMsg != "":
		b.WriteString(styles.ErrorStyle.Render("✗ " + m.errorMsg))
	case m.pending:
		b.WriteString(styles.SubtleStyle.Render("Starting run..."))
	}
	b.WriteString("\n")

	lines := strings.Count(b.String(), "\n") + 1
	if remaining := m.height - lines - 1; remaining > 0 {
		b.WriteString(strings.Repeat("\n", remaining))
	}

	bar := components.NewStatusBar()
	if m.demoMode {
		bar.Prefix = "[DEMO]"
	}
	b.WriteString(bar.Render(m.width, []string{"Enter Run", "Shift+Enter Newline", "Esc Quit"}))

	return b.String()
}
