package demo

import (
	"fmt"
	"strings"
	"time"
)

// Preset controls demo playback pacing.
type Preset string

const (
	PresetQuick  Preset = "quick"
	PresetMedium Preset = "medium"
	PresetSlow   Preset = "slow"
)

func ParsePreset(value string) (Preset, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(value))) {
	case PresetQuick, PresetMedium, PresetSlow:
		return Preset(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo preset %q (valid: quick, medium, slow)", value)
	}
}

// Config controls demo playback behavior.
type Config struct {
	Preset Preset
	// EventDelay is the pause between two messages.
	EventDelay time.Duration
	// FragmentDelay is the pause between two fragments of one message.
	FragmentDelay time.Duration
	// MaxFragment bounds the size of each write; <= 0 writes whole messages.
	MaxFragment int
	// Seed makes fragmentation reproducible.
	Seed uint64
}

var (
	minEventDelay = 0 * time.Millisecond
	maxEventDelay = 10 * time.Second
)

// NewConfig returns the playback settings of a preset.
func NewConfig(preset Preset) (Config, error) {
	switch preset {
	case PresetQuick:
		return Config{
			Preset:      preset,
			EventDelay:  150 * time.Millisecond,
			MaxFragment: 64,
			Seed:        1,
		}, nil
	case PresetMedium:
		return Config{
			Preset:        preset,
			EventDelay:    700 * time.Millisecond,
			FragmentDelay: 10 * time.Millisecond,
			MaxFragment:   32,
			Seed:          1,
		}, nil
	case PresetSlow:
		return Config{
			Preset:        preset,
			EventDelay:    2 * time.Second,
			FragmentDelay: 40 * time.Millisecond,
			MaxFragment:   16,
			Seed:          1,
		}, nil
	default:
		return Config{}, fmt.Errorf("unknown demo preset %q", preset)
	}
}

// WithSpeed scales the delays by factor (2 plays twice as fast).
func (c Config) WithSpeed(factor float64) Config {
	if factor <= 0 {
		return c
	}
	c.EventDelay = clampDuration(time.Duration(float64(c.EventDelay)/factor), minEventDelay, maxEventDelay)
	c.FragmentDelay = clampDuration(time.Duration(float64(c.FragmentDelay)/factor), minEventDelay, maxEventDelay)
	return c
}

func clampDuration(value, min, max time.Duration) time.Duration {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
