package components

import (
	"strings"

	"github.com/pablasso/apiflow/internal/tui/styles"
)

// StatusBar renders a bottom help bar showing key hints.
type StatusBar struct {
	// Prefix is shown before the hints, e.g. "[DEMO]".
	Prefix string
}

// NewStatusBar creates a new StatusBar instance.
func NewStatusBar() StatusBar {
	return StatusBar{}
}

// Render returns the status bar string for the given width and items.
// Items are joined with "  |  " and padded to fill the width.
func (s StatusBar) Render(width int, items []string) string {
	if s.Prefix != "" {
		items = append([]string{s.Prefix}, items...)
	}
	if len(items) == 0 {
		return styles.StatusBarStyle.Width(width).Render("")
	}

	return styles.StatusBarStyle.Width(width).Render(strings.Join(items, "  |  "))
}
