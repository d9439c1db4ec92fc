package stream

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantOK    bool
		wantErr   bool
		wantEvent string
		wantData  string
	}{
		{
			name:      "event with data",
			line:      `data: {"event":"error","data":{"detail":"boom"}}`,
			wantOK:    true,
			wantEvent: "error",
			wantData:  `{"detail":"boom"}`,
		},
		{
			name:      "no space after prefix",
			line:      `data:{"event":"end","data":{}}`,
			wantOK:    true,
			wantEvent: "end",
			wantData:  `{}`,
		},
		{
			name:      "data member absent",
			line:      `data: {"event":"end"}`,
			wantOK:    true,
			wantEvent: "end",
		},
		{name: "blank separator", line: ""},
		{name: "comment", line: ": keep-alive"},
		{name: "event field", line: "event: plan_created"},
		{name: "empty payload", line: "data: "},
		{
			name:    "not json",
			line:    "data: this is not json",
			wantOK:  true,
			wantErr: true,
		},
		{
			name:    "truncated json",
			line:    `data: {"event":"plan_created","data":{"steps":[`,
			wantOK:  true,
			wantErr: true,
		},
		{
			name:    "array payload",
			line:    `data: [1,2,3]`,
			wantOK:  true,
			wantErr: true,
		},
		{
			name:    "missing event",
			line:    `data: {"data":{}}`,
			wantOK:  true,
			wantErr: true,
		},
		{
			name:    "non-string event",
			line:    `data: {"event":42}`,
			wantOK:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := Decode(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("expected ErrMalformedMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Event != tt.wantEvent {
				t.Errorf("Event = %q, want %q", msg.Event, tt.wantEvent)
			}
			if string(msg.Data) != tt.wantData {
				t.Errorf("Data = %q, want %q", string(msg.Data), tt.wantData)
			}
		})
	}
}
