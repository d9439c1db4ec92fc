package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/display"
	"github.com/pablasso/apiflow/internal/stream"
	"github.com/pablasso/apiflow/internal/workflow"
)

var (
	// ErrNoRecording is returned when a capture file holds no stream data.
	ErrNoRecording = errors.New("no recorded stream")
	// ErrRecordingNotFound is returned when --run names a run the file does not hold.
	ErrRecordingNotFound = errors.New("recorded run not found")
)

type replayFlags struct {
	chunkSize   int
	runID       string
	details     bool
	showSecrets bool
}

func newReplayCmd(a *app) *cobra.Command {
	var f replayFlags

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Feed a recorded event stream through the client",
		Long: `Replay a stream captured with "apiflow run --record". Each recorded run is
read in fixed-size chunks and folded into a fresh workflow state, exactly as
a live stream would be.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read recording: %w", err)
			}

			recs, err := selectRecordings(consumer.SplitRecordings(data), f.runID)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			var firstErr error
			for i, rec := range recs {
				runID := rec.RunID
				if runID == "" {
					runID = fmt.Sprintf("replay-%d", i+1)
				}

				d := display.New(cmd.OutOrStdout())
				d.ShowDetails = f.details
				d.ShowSecrets = f.showSecrets
				d.OnRunStarted(runID, "replay of "+path)

				c := consumer.New(workflow.NewStore(runID),
					consumer.WithEvents(d),
					consumer.WithLogger(a.log()),
					consumer.WithChunkSize(f.chunkSize),
					consumer.WithMaxLineBytes(a.cfg.MaxLineBytes),
				)
				if _, err := c.Consume(ctx, bytes.NewReader(rec.Data)); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					if firstErr == nil {
						firstErr = err
					}
				}
			}
			return firstErr
		},
	}

	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", stream.DefaultChunkSize, "bytes handed to the reconstructor per read")
	cmd.Flags().StringVar(&f.runID, "run", "", "replay only the run with this id")
	cmd.Flags().BoolVar(&f.details, "details", false, "print request, response and extracted data for each step")
	cmd.Flags().BoolVar(&f.showSecrets, "show-secrets", false, "do not mask credentials in printed details")
	return cmd
}

func selectRecordings(recs []consumer.Recording, runID string) ([]consumer.Recording, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecording
	}
	if runID == "" {
		return recs, nil
	}
	for _, rec := range recs {
		if rec.RunID == runID {
			return []consumer.Recording{rec}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, runID)
}
