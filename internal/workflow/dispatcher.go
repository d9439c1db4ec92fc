package workflow

import (
	"log/slog"

	"github.com/pablasso/apiflow/internal/stream"
)

// Dispatcher routes decoded stream messages into a Store.
type Dispatcher struct {
	store  *Store
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher writing into store. A nil logger discards output.
func NewDispatcher(store *Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{store: store, logger: logger}
}

// Dispatch parses msg and applies it. A payload that does not fit its
// event kind is counted as a decode failure and leaves the state untouched.
func (d *Dispatcher) Dispatch(msg stream.Message) (Event, State, Result, error) {
	ev, err := ParseEvent(msg)
	if err != nil {
		d.DecodeFailed(err)
		return nil, d.store.Snapshot(), Result{Outcome: OutcomeIgnored, Match: miss(), Reason: err.Error()}, err
	}

	state, res := d.store.Apply(ev)
	d.log(ev, state, res)
	return ev, state, res, nil
}

// DecodeFailed counts and logs a line that could not be turned into an event.
func (d *Dispatcher) DecodeFailed(err error) {
	d.store.RecordDecodeFailure()
	d.logger.Warn("skipping malformed message", "error", err)
}

func (d *Dispatcher) log(ev Event, state State, res Result) {
	attrs := []any{"event", string(ev.Kind()), "run_id", state.RunID}

	switch res.Outcome {
	case OutcomeApplied:
		if res.Match.Index >= 0 {
			attrs = append(attrs, "step", res.Match.Index+1)
			if res.Match.Candidates > 1 {
				d.logger.Warn("ambiguous step match, using first",
					append(attrs, "candidates", res.Match.Candidates)...)
			}
		}
		d.logger.Debug("event applied", append(attrs, "phase", state.Phase.String())...)
	case OutcomeIgnored:
		d.logger.Debug("event ignored", append(attrs, "reason", res.Reason)...)
	case OutcomeUnmatched:
		if ref, ok := stepRefOf(ev); ok {
			attrs = append(attrs, "step_title", ref.Title)
			if ref.ID != "" {
				attrs = append(attrs, "step_id", ref.ID)
			}
		}
		d.logger.Warn("no step matches event", attrs...)
	case OutcomeUnknown:
		d.logger.Info("ignoring unknown event", attrs...)
	}
}

func stepRefOf(ev Event) (StepRef, bool) {
	switch ev := ev.(type) {
	case StepStarted:
		return ev.StepRef, true
	case APICallCompleted:
		return ev.StepRef, true
	case DataExtracted:
		return ev.StepRef, true
	}
	return StepRef{}, false
}
