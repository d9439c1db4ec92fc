package cli

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pablasso/apiflow/internal/config"
	"github.com/pablasso/apiflow/internal/consumer"
)

const loginStream = `data: {"event":"plan_created","data":{"steps":[{"description":"Log in","action_type":"api_call"},{"description":"List users","action_type":"api_call"}]}}

data: {"event":"api_call_completed","data":{"step_title":"Step 1: Log in","request_details":{"method":"POST","url":"https://api.example.com/login"},"response_details":{"token":"abc"}}}

data: {"event":"data_extracted","data":{"step_title":"Data Extraction after: Log in","extracted_data":{"token":"abc"}}}

data: {"event":"api_call_completed","data":{"step_title":"Step 2: List users","request_details":{"method":"GET","url":"https://api.example.com/users"},"response_details":[]}}

data: {"event":"end","data":{"message":"Workflow finished."}}

`

const failingStream = `data: {"event":"plan_created","data":{"steps":[{"description":"Log in","action_type":"api_call"}]}}

data: {"event":"error","data":{"detail":"API call failed with status 401: Unauthorized"}}

data: {"event":"end","data":{}}

`

// isolate keeps user config files and APIFLOW_ variables out of a test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, name := range []string{"API_URL", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "REQUEST_TIMEOUT", "MAX_LINE_BYTES"} {
		t.Setenv(config.EnvPrefix+name, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newService(t *testing.T, streamBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/workflow/execute-stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, streamBody)
	})
	mux.HandleFunc("/api/v1/workflow/validate", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "vague") {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"valid":false,"error":"prompt is too vague"}`)
			return
		}
		io.WriteString(w, `{"valid":true,"message":"Prompt looks good"}`)
	})
	mux.HandleFunc("/api/v1/workflow/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"healthy","service":"workflow"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Success(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)

	out, err := execute(t, "run", "--api-url", srv.URL, "log in", "and list users")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{
		"log in and list users",
		"Plan: 2 step(s)",
		"✓ Step 1: Log in",
		"Completed: 2/2 step(s) completed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRun_Failure(t *testing.T) {
	isolate(t)
	srv := newService(t, failingStream)

	out, err := execute(t, "run", "--api-url", srv.URL, "log in")
	if !errors.Is(err, consumer.ErrRunFailed) {
		t.Fatalf("err = %v, want ErrRunFailed", err)
	}
	if !strings.Contains(out, "✗ API call failed with status 401: Unauthorized") {
		t.Errorf("output missing failure\n%s", out)
	}
}

func TestRun_ValidateFirst(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)

	_, err := execute(t, "run", "--api-url", srv.URL, "--validate", "something vague")
	if !errors.Is(err, ErrPromptRejected) {
		t.Fatalf("err = %v, want ErrPromptRejected", err)
	}
}

func TestRun_MissingPrompt(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "run"); err == nil {
		t.Error("expected error without a prompt")
	}
}

func TestRecordAndReplay(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)
	record := filepath.Join(t.TempDir(), "runs.log")

	for i := 0; i < 2; i++ {
		if out, err := execute(t, "run", "--api-url", srv.URL, "--record", record, "log in"); err != nil {
			t.Fatalf("run %d: %v\n%s", i, err, out)
		}
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	recs := consumer.SplitRecordings(data)
	if len(recs) != 2 {
		t.Fatalf("recordings = %d, want 2", len(recs))
	}

	tests := []struct {
		name      string
		args      []string
		wantRuns  int
		wantError error
	}{
		{name: "all runs", args: []string{"replay", record}, wantRuns: 2},
		{name: "byte chunks", args: []string{"replay", "--chunk-size", "1", record}, wantRuns: 2},
		{name: "one run", args: []string{"replay", "--run", recs[1].RunID, record}, wantRuns: 1},
		{name: "unknown run", args: []string{"replay", "--run", "nope", record}, wantError: ErrRecordingNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("err = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("replay: %v\n%s", err, out)
			}
			if got := strings.Count(out, "Completed: 2/2 step(s) completed"); got != tt.wantRuns {
				t.Errorf("completed runs = %d, want %d\n%s", got, tt.wantRuns, out)
			}
		})
	}
}

func TestReplay_RawStream(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "raw.sse")
	if err := os.WriteFile(path, []byte(failingStream), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "replay", path)
	if !errors.Is(err, consumer.ErrRunFailed) {
		t.Fatalf("err = %v, want ErrRunFailed\n%s", err, out)
	}
	if !strings.Contains(out, "Run replay-1") {
		t.Errorf("output missing synthetic run id\n%s", out)
	}
}

func TestReplay_Empty(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "empty.log")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "replay", path); !errors.Is(err, ErrNoRecording) {
		t.Errorf("err = %v, want ErrNoRecording", err)
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)

	out, err := execute(t, "validate", "--api-url", srv.URL, "log in and list users")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "✓ Prompt looks good") {
		t.Errorf("output = %q", out)
	}

	_, err = execute(t, "validate", "--api-url", srv.URL, "something vague")
	if !errors.Is(err, ErrPromptRejected) {
		t.Fatalf("err = %v, want ErrPromptRejected", err)
	}
	if !strings.Contains(err.Error(), "prompt is too vague") {
		t.Errorf("err = %v, want reason", err)
	}
}

func TestHealth(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		wantErr error
	}{
		{
			name: "healthy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":"healthy","service":"workflow"}`)
			},
			want: "Status:   healthy",
		},
		{
			name: "degraded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"status":"degraded","message":"planner offline"}`)
			},
			want:    "Message:  planner offline",
			wantErr: ErrUnhealthy,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			},
			wantErr: errors.New("any"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			out, err := execute(t, "health", "--api-url", srv.URL)
			switch {
			case tt.wantErr == nil && err != nil:
				t.Fatalf("health: %v", err)
			case tt.wantErr != nil && err == nil:
				t.Fatal("expected error")
			case tt.wantErr == ErrUnhealthy && !errors.Is(err, ErrUnhealthy):
				t.Fatalf("err = %v, want ErrUnhealthy", err)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)

	// A broken URL in the environment fails validation...
	t.Setenv(config.EnvPrefix+"API_URL", "ftp://nowhere")
	if _, err := execute(t, "health"); !errors.Is(err, config.ErrInvalidAPIURL) {
		t.Fatalf("err = %v, want ErrInvalidAPIURL", err)
	}

	// ...but the flag wins over the environment.
	if _, err := execute(t, "health", "--api-url", srv.URL); err != nil {
		t.Fatalf("flag should override env: %v", err)
	}

	// The environment wins over the config file.
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_url: ftp://from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvPrefix+"API_URL", srv.URL)
	if _, err := execute(t, "health", "--config", path); err != nil {
		t.Fatalf("env should override file: %v", err)
	}

	// An explicit config file must exist.
	if _, err := execute(t, "health", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfigFile(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_url: " + srv.URL + "\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "health", "--config", path); err != nil {
		t.Fatalf("health: %v", err)
	}
	if _, err := execute(t, "health", "--config", path, "--log-level", "loud"); !errors.Is(err, config.ErrInvalidLogLevel) {
		t.Errorf("err = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLogFile(t *testing.T) {
	isolate(t)
	srv := newService(t, loginStream)
	logPath := filepath.Join(t.TempDir(), "logs", "apiflow.log")

	if _, err := execute(t, "run", "--api-url", srv.URL, "--log-file", logPath, "--log-format", "json", "log in"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"run completed"`) {
		t.Errorf("log missing completion record:\n%s", data)
	}
}

func TestDemo_Plain(t *testing.T) {
	isolate(t)

	tests := []struct {
		scenario string
		want     string
		wantErr  error
	}{
		{scenario: "success", want: "Completed: 4/4 step(s) completed"},
		{scenario: "noisy", want: "Completed: 4/4 step(s) completed"},
		{scenario: "failure", want: "✗ API call failed with status 403: Forbidden", wantErr: consumer.ErrRunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			out, err := execute(t, "demo", "--mode", "plain", "--preset", "quick", "--speed", "1000", "--scenario", tt.scenario)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("demo: %v\n%s", err, out)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out)
			}
		})
	}
}

func TestDemo_InvalidFlags(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{
		{"demo", "--scenario", "flaky"},
		{"demo", "--preset", "turbo"},
		{"demo", "--mode", "web"},
	} {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestVersion(t *testing.T) {
	// No isolation: version must not read configuration.
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "apiflow dev") {
		t.Errorf("output = %q", out)
	}
}
