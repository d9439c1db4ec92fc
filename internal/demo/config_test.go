package demo

import (
	"testing"
	"time"
)

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    Preset
		wantErr bool
	}{
		{in: "quick", want: PresetQuick},
		{in: " Medium", want: PresetMedium},
		{in: "SLOW", want: PresetSlow},
		{in: "turbo", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParsePreset(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePreset(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePreset(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewConfig_PresetsSlowDown(t *testing.T) {
	var prev time.Duration
	for _, preset := range []Preset{PresetQuick, PresetMedium, PresetSlow} {
		cfg, err := NewConfig(preset)
		if err != nil {
			t.Fatalf("NewConfig(%q): %v", preset, err)
		}
		if cfg.Preset != preset {
			t.Errorf("Preset = %q, want %q", cfg.Preset, preset)
		}
		if cfg.EventDelay <= prev {
			t.Errorf("%s EventDelay %s should exceed %s", preset, cfg.EventDelay, prev)
		}
		if cfg.MaxFragment <= 0 {
			t.Errorf("%s should fragment messages", preset)
		}
		prev = cfg.EventDelay
	}

	if _, err := NewConfig("turbo"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestConfig_WithSpeed(t *testing.T) {
	cfg := Config{EventDelay: time.Second, FragmentDelay: 100 * time.Millisecond}

	tests := []struct {
		name   string
		factor float64
		want   time.Duration
	}{
		{name: "faster", factor: 4, want: 250 * time.Millisecond},
		{name: "slower", factor: 0.5, want: 2 * time.Second},
		{name: "clamped", factor: 0.01, want: maxEventDelay},
		{name: "ignored", factor: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.WithSpeed(tt.factor).EventDelay; got != tt.want {
				t.Errorf("EventDelay = %s, want %s", got, tt.want)
			}
		})
	}
}
