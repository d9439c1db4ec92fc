package stream

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func feedAll(t *testing.T, rc *Reconstructor, chunks ...string) []string {
	t.Helper()
	var lines []string
	for _, c := range chunks {
		got, err := rc.Feed([]byte(c))
		if err != nil {
			t.Fatalf("Feed(%q) error: %v", c, err)
		}
		lines = append(lines, got...)
	}
	return lines
}

func TestReconstructor_Feed(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		pending int
	}{
		{
			name:   "single complete line",
			chunks: []string{"data: {}\n"},
			want:   []string{"data: {}"},
		},
		{
			name:   "multiple lines in one chunk",
			chunks: []string{"a\nb\n\nc\n"},
			want:   []string{"a", "b", "", "c"},
		},
		{
			name:   "line split across chunks",
			chunks: []string{"dat", "a: {\"ev", "ent\":\"end\"}\n"},
			want:   []string{`data: {"event":"end"}`},
		},
		{
			name:    "trailing partial is held back",
			chunks:  []string{"one\ntw", "o\nthr"},
			want:    []string{"one", "two"},
			pending: 3,
		},
		{
			name:   "crlf terminators",
			chunks: []string{"a\r\n", "b\r", "\n"},
			want:   []string{"a", "b"},
		},
		{
			name:   "newline as its own chunk",
			chunks: []string{"abc", "\n", "\n"},
			want:   []string{"abc", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewReconstructor(0)
			got := feedAll(t, rc, tt.chunks...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
			if rc.Pending() != tt.pending {
				t.Errorf("Pending() = %d, want %d", rc.Pending(), tt.pending)
			}
		})
	}
}

func TestReconstructor_EveryByteSplit(t *testing.T) {
	input := "data: {\"event\":\"plan_created\"}\n\ndata: {\"event\":\"end\"}\n\n"
	whole := feedAll(t, NewReconstructor(0), input)

	var chunks []string
	for i := 0; i < len(input); i++ {
		chunks = append(chunks, input[i:i+1])
	}
	split := feedAll(t, NewReconstructor(0), chunks...)

	if !reflect.DeepEqual(whole, split) {
		t.Errorf("byte-split lines = %q, want %q", split, whole)
	}
}

func TestReconstructor_LineTooLong(t *testing.T) {
	rc := NewReconstructor(8)

	if _, err := rc.Feed([]byte("12345")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := rc.Feed([]byte("67890"))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
	if rc.Pending() != 0 {
		t.Errorf("buffer should be reset after overflow, pending = %d", rc.Pending())
	}

	rc = NewReconstructor(4)
	lines, err := rc.Feed([]byte("ok\ntoolong\n"))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong for complete long line, got %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"ok"}) {
		t.Errorf("lines before overflow = %q, want [ok]", lines)
	}
}

func TestReadLines(t *testing.T) {
	input := "first\nsecond\nunterminated"

	var got []string
	err := ReadLines(context.Background(), iotest.OneByteReader(strings.NewReader(input)), 3, 0, func(line string) bool {
		got = append(got, line)
		return true
	})
	if err != nil {
		t.Fatalf("ReadLines() error: %v", err)
	}

	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q (residual must be discarded)", got, want)
	}
}

func TestReadLines_StopEarly(t *testing.T) {
	var got []string
	err := ReadLines(context.Background(), strings.NewReader("a\nb\nc\n"), 64, 0, func(line string) bool {
		got = append(got, line)
		return line != "b"
	})
	if err != nil {
		t.Fatalf("ReadLines() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("lines = %q, want [a b]", got)
	}
}

func TestReadLines_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	rd := io.MultiReader(strings.NewReader("a\n"), iotest.ErrReader(boom))

	var got []string
	err := ReadLines(context.Background(), rd, 64, 0, func(line string) bool {
		got = append(got, line)
		return true
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("lines before failure = %q, want [a]", got)
	}
}

func TestReadLines_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ReadLines(ctx, strings.NewReader("a\n"), 64, 0, func(string) bool { return true })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
