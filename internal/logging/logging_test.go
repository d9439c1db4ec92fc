package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "INFO", want: slog.LevelInfo},
		{name: " warn ", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v", tt.name, got, err)
			}
		})
	}
}

func TestNew_Fallback(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: "json", Fallback: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Info("hidden")
	l.Warn("shown", "step", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &rec); err != nil {
		t.Fatalf("record is not JSON: %v: %s", err, out)
	}
	if rec["msg"] != "shown" || rec["step"] != float64(2) {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "apiflow.log")
	l, err := New(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "msg=\"to file\"") {
		t.Errorf("log file = %q", data)
	}
	if l.Path != path {
		t.Errorf("Path = %q", l.Path)
	}
}

func TestNew_NoOutput(t *testing.T) {
	l, err := New(Options{Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Options{Level: "info", Format: "xml", Fallback: &bytes.Buffer{}}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRedactJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "headers",
			in:   `{"headers":{"Authorization":"Bearer abcdef123456","Accept":"application/json"}}`,
			want: `{"headers":{"Accept":"application/json","Authorization":"Bearer ****3456"}}`,
		},
		{
			name: "nested array",
			in:   `{"items":[{"token":"xyz"}]}`,
			want: `{"items":[{"token":"****"}]}`,
		},
		{
			name: "non-string secret",
			in:   `{"password":12345}`,
			want: `{"password":"****"}`,
		},
		{
			name: "not json",
			in:   `plain`,
			want: `plain`,
		},
		{
			name: "nothing secret",
			in:   `[1,2,3]`,
			want: `[1,2,3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactJSON(json.RawMessage(tt.in))
			if string(got) != tt.want {
				t.Errorf("RedactJSON(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
