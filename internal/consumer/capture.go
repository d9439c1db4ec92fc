package consumer

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pablasso/apiflow/internal/workflow"
)

const (
	runHeaderPrefix = "=== Run "
	markerPrefix    = "=== "
)

// Capture appends the raw bytes of every consumed stream to a file so a run
// can be replayed later. Each run is framed by header and footer marker lines,
// which the message decoder ignores.
type Capture struct {
	mu      sync.Mutex
	file    *os.File
	logger  *slog.Logger
	errored bool
}

// OpenCapture opens path in append mode to preserve earlier runs.
func OpenCapture(path string, logger *slog.Logger) (*Capture, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Capture{file: f, logger: logger}, nil
}

// Write records raw stream bytes. It never fails: a broken capture file must
// not abort the run, so the first error is logged and later writes are dropped.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil || c.errored {
		return len(p), nil
	}
	if _, err := c.file.Write(p); err != nil {
		c.errored = true
		c.logger.Warn("stream capture disabled", "path", c.file.Name(), "error", err)
	}
	return len(p), nil
}

// WriteRunHeader starts a new run section.
func (c *Capture) WriteRunHeader(runID, prompt string) {
	prompt = strings.ReplaceAll(prompt, "\n", " ")
	c.writeMarker(fmt.Sprintf("\n%s%s ===\n: prompt %s\n: started %s\n\n",
		runHeaderPrefix, runID, prompt, time.Now().Format(time.RFC3339)))
}

// WriteRunFooter closes the section of a run.
func (c *Capture) WriteRunFooter(state workflow.State) {
	c.writeMarker(fmt.Sprintf("\n=== End of run %s: %s ===\n", state.RunID, state.Phase))
}

func (c *Capture) writeMarker(s string) {
	_, _ = c.Write([]byte(s))
}

// Path returns the capture file path.
func (c *Capture) Path() string {
	if c.file == nil {
		return ""
	}
	return c.file.Name()
}

// Close closes the capture file. Safe to call on a nil Capture.
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// Recording is the raw stream of one captured run.
type Recording struct {
	RunID string
	Data  []byte
}

// SplitRecordings separates a capture file into its runs. Bytes before the
// first run header form a recording with an empty RunID.
func SplitRecordings(data []byte) []Recording {
	var recs []Recording
	cur := Recording{}
	started := false

	flush := func() {
		if started || len(bytes.TrimSpace(cur.Data)) > 0 {
			recs = append(recs, cur)
		}
	}

	for _, line := range bytes.SplitAfter(data, []byte("\n")) {
		trimmed := strings.TrimRight(string(line), "\r\n")
		if runID, ok := parseRunHeader(trimmed); ok {
			flush()
			cur = Recording{RunID: runID}
			started = true
			continue
		}
		if strings.HasPrefix(trimmed, markerPrefix) {
			continue
		}
		cur.Data = append(cur.Data, line...)
	}
	flush()
	return recs
}

func parseRunHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, runHeaderPrefix) || !strings.HasSuffix(line, " ===") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(line, runHeaderPrefix), " ===")
	if id == "" || strings.ContainsAny(id, " \t") {
		return "", false
	}
	return id, true
}
