package demo

import (
	"fmt"
	"strings"
)

// Mode controls which surface demo playback is shown on.
type Mode string

const (
	ModeTUI   Mode = "tui"
	ModePlain Mode = "plain"
)

// ParseMode validates and normalizes a demo mode value.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeTUI, ModePlain:
		return Mode(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo mode %q (valid: tui, plain)", value)
	}
}
