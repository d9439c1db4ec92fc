// Package consumer drives a single streamed run: it reads the response body,
// reconstructs and decodes messages, and folds them into a workflow store.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pablasso/apiflow/internal/stream"
	"github.com/pablasso/apiflow/internal/workflow"
)

var (
	// ErrRunFailed is returned when the service reported an error event.
	ErrRunFailed = errors.New("workflow run failed")
	// ErrIncompleteStream is returned when the stream ends without an end event.
	ErrIncompleteStream = errors.New("stream closed before end event")
)

// Consumer reads one stream into a store.
type Consumer struct {
	store      *workflow.Store
	dispatcher *workflow.Dispatcher
	events     RunEvents
	capture    io.Writer
	chunkSize  int
	maxLine    int
	logger     *slog.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithEvents sets the callback receiver.
func WithEvents(events RunEvents) Option {
	return func(c *Consumer) {
		if events != nil {
			c.events = events
		}
	}
}

// WithCapture tees the raw stream into w.
func WithCapture(w io.Writer) Option {
	return func(c *Consumer) { c.capture = w }
}

// WithChunkSize sets the read size.
func WithChunkSize(n int) Option {
	return func(c *Consumer) { c.chunkSize = n }
}

// WithMaxLineBytes bounds the length of a single stream line.
func WithMaxLineBytes(n int) Option {
	return func(c *Consumer) { c.maxLine = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a consumer writing into store.
func New(store *workflow.Store, opts ...Option) *Consumer {
	c := &Consumer{
		store:     store,
		events:    NopEvents{},
		chunkSize: stream.DefaultChunkSize,
		maxLine:   stream.DefaultMaxLineBytes,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatcher = workflow.NewDispatcher(store, c.logger)
	return c
}

// Consume reads body until a terminal event, end of stream, a transport
// error or cancellation of ctx. It returns the final state of the run.
//
// A cancelled ctx leaves the state untouched; every other failure is recorded
// as the run error.
func (c *Consumer) Consume(ctx context.Context, body io.Reader) (workflow.State, error) {
	if c.capture != nil {
		body = io.TeeReader(body, c.capture)
	}

	err := stream.ReadLines(ctx, body, c.chunkSize, c.maxLine, c.handleLine)
	state := c.store.Snapshot()

	switch {
	case err != nil && ctx.Err() != nil:
		err = ctx.Err()
		c.logger.Info("run cancelled", "run_id", state.RunID)
	case err != nil:
		state = c.store.Fail(err.Error())
		c.logger.Error("stream failed", "run_id", state.RunID, "error", err)
	case state.Failed():
		err = fmt.Errorf("%w: %s", ErrRunFailed, state.Err)
	case !state.Complete:
		state = c.store.Fail(ErrIncompleteStream.Error())
		err = ErrIncompleteStream
		c.logger.Warn("stream closed early", "run_id", state.RunID, "phase", state.Phase.String())
	default:
		c.logger.Info("run completed",
			"run_id", state.RunID,
			"steps", len(state.Steps),
			"completed", state.CountStatus(workflow.StepCompleted))
	}

	c.events.OnRunFinished(state, err)
	return state, err
}

// handleLine processes one reconstructed line. It returns false once the run
// has reached a terminal phase so the caller stops reading.
func (c *Consumer) handleLine(line string) bool {
	msg, ok, err := stream.Decode(line)
	if err != nil {
		c.dispatcher.DecodeFailed(err)
		return true
	}
	if !ok {
		return true
	}

	ev, state, res, err := c.dispatcher.Dispatch(msg)
	if err != nil {
		return true
	}
	c.events.OnEvent(ev, res, state)
	return !state.Terminal()
}
