package demo

import (
	"context"
	"io"
	"math/rand/v2"
	"time"
)

// Playback serves a scenario as if it were a live event stream. It satisfies
// the streamer interface used by run sessions, so demo runs exercise the
// same consumer as real ones.
type Playback struct {
	Config   Config
	Scenario Scenario
}

// NewPlayback creates a demo playback for a scenario.
func NewPlayback(scenario Scenario, config Config) *Playback {
	return &Playback{
		Config:   config,
		Scenario: scenario,
	}
}

// ExecuteStream ignores the prompt and streams the scenario. Cancelling ctx
// closes the stream with the context error.
func (p *Playback) ExecuteStream(ctx context.Context, _ string) (io.ReadCloser, error) {
	frames, err := p.Scenario.Frames()
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	go p.write(ctx, pw, frames)
	return pr, nil
}

func (p *Playback) write(ctx context.Context, pw *io.PipeWriter, frames [][]byte) {
	rng := rand.New(rand.NewPCG(p.Config.Seed, p.Config.Seed^0x9e3779b97f4a7c15))

	for i, frame := range frames {
		if i > 0 && !p.wait(ctx, p.Config.EventDelay) {
			pw.CloseWithError(ctx.Err())
			return
		}
		for j, chunk := range fragment(frame, p.Config.MaxFragment, rng) {
			if j > 0 && !p.wait(ctx, p.Config.FragmentDelay) {
				pw.CloseWithError(ctx.Err())
				return
			}
			if _, err := pw.Write(chunk); err != nil {
				// Reader went away.
				return
			}
		}
	}
	pw.Close()
}

// fragment splits b into random pieces of 1..max bytes. max <= 0 keeps b whole.
func fragment(b []byte, max int, rng *rand.Rand) [][]byte {
	if max <= 0 || len(b) <= 1 {
		return [][]byte{b}
	}
	var out [][]byte
	for len(b) > 0 {
		n := 1 + rng.IntN(max)
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

func (p *Playback) wait(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
