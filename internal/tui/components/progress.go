package components

import (
	"fmt"
	"strings"
)

const (
	filledChar = "■"
	emptyChar  = "□"
)

// Progress renders a step progress bar like: ■■■■□□□□ 2/4 steps
type Progress struct {
	Current int
	Total   int
	Width   int // character width of the bar portion
}

// NewProgress creates a new Progress instance.
func NewProgress(current, total, width int) Progress {
	return Progress{
		Current: current,
		Total:   total,
		Width:   width,
	}
}

// View returns the rendered progress bar string.
func (p Progress) View() string {
	if p.Total <= 0 || p.Width <= 0 {
		return ""
	}

	current := min(max(p.Current, 0), p.Total)
	filled := (current * p.Width) / p.Total
	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, p.Width-filled)

	unit := "steps"
	if p.Total == 1 {
		unit = "step"
	}
	return fmt.Sprintf("%s %d/%d %s", bar, current, p.Total, unit)
}

// Percent returns the completed share in whole percent.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	current := min(max(p.Current, 0), p.Total)
	return current * 100 / p.Total
}
