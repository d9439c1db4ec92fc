// Package session owns the lifecycle of workflow runs: at most one stream is
// open at a time, and starting a new run closes the previous one first.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/workflow"
)

// ErrEmptyPrompt is returned when a run is started without a prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// ErrNoRun is returned by Wait when no run has been started.
var ErrNoRun = errors.New("no run started")

// Streamer opens the event stream for a prompt.
type Streamer interface {
	ExecuteStream(ctx context.Context, prompt string) (io.ReadCloser, error)
}

// run tracks one in-flight consumer goroutine. err is written before done
// is closed and only read after.
type run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Session starts runs against a Streamer and keeps their state in a Store.
type Session struct {
	streamer     Streamer
	store        *workflow.Store
	events       consumer.RunEvents
	capture      *consumer.Capture
	consumerOpts []consumer.Option
	logger       *slog.Logger
	newRunID     func() string

	mu      sync.Mutex
	current *run
}

// Option configures a Session.
type Option func(*Session)

// WithEvents sets the receiver of run callbacks.
func WithEvents(events consumer.RunEvents) Option {
	return func(s *Session) {
		if events != nil {
			s.events = events
		}
	}
}

// WithCapture records every run's raw stream.
func WithCapture(c *consumer.Capture) Option {
	return func(s *Session) { s.capture = c }
}

// WithConsumerOptions passes options to every run's consumer.
func WithConsumerOptions(opts ...consumer.Option) Option {
	return func(s *Session) { s.consumerOpts = append(s.consumerOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunIDs overrides run id generation (useful for testing).
func WithRunIDs(fn func() string) Option {
	return func(s *Session) { s.newRunID = fn }
}

// New creates a session. The store is reset at the start of every run.
func New(streamer Streamer, store *workflow.Store, opts ...Option) *Session {
	s := &Session{
		streamer: streamer,
		store:    store,
		events:   consumer.NopEvents{},
		logger:   slog.New(slog.DiscardHandler),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the store runs are folded into.
func (s *Session) Store() *workflow.Store {
	return s.store
}

// Start begins a new run for prompt and returns its id. Any previous run is
// cancelled, and its stream closed, before the store is reset.
func (s *Session) Start(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	runID := s.newRunID()
	s.store.Reset(runID)

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{id: runID, cancel: cancel, done: make(chan struct{})}
	s.current = r

	s.logger.Info("starting run", "run_id", runID)
	s.events.OnRunStarted(runID, prompt)

	go s.execute(runCtx, r, prompt)
	return runID, nil
}

// Wait blocks until the current run finishes and returns its error.
func (s *Session) Wait() error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return ErrNoRun
	}
	<-r.done
	return r.err
}

// Stop cancels the current run and waits for its goroutine to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.current == nil {
		return
	}
	s.current.cancel()
	<-s.current.done
}

func (s *Session) execute(ctx context.Context, r *run, prompt string) {
	defer close(r.done)
	defer r.cancel()

	body, err := s.streamer.ExecuteStream(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			r.err = ctx.Err()
			return
		}
		s.logger.Error("failed to open stream", "run_id", r.id, "error", err)
		state := s.store.Fail(err.Error())
		s.events.OnRunFinished(state, err)
		r.err = err
		return
	}
	defer body.Close()

	opts := append([]consumer.Option{
		consumer.WithEvents(s.events),
		consumer.WithLogger(s.logger),
	}, s.consumerOpts...)

	if s.capture != nil {
		s.capture.WriteRunHeader(r.id, prompt)
		opts = append(opts, consumer.WithCapture(s.capture))
	}

	state, err := consumer.New(s.store, opts...).Consume(ctx, body)

	if s.capture != nil {
		s.capture.WriteRunFooter(state)
	}
	r.err = err
}
