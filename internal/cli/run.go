package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/display"
	"github.com/pablasso/apiflow/internal/session"
	"github.com/pablasso/apiflow/internal/workflow"
)

// ErrPromptRejected is returned when the service refuses a prompt.
var ErrPromptRejected = errors.New("prompt rejected")

type runFlags struct {
	record      string
	details     bool
	showSecrets bool
	validate    bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a workflow and print its progress",
		Long: `Send a prompt to the workflow service and follow the run until it ends.
Each planned step is printed as it starts and completes. The command exits
non-zero when the run fails or the stream closes early.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			prompt := strings.Join(args, " ")
			c := a.client(a.log())
			if f.validate {
				if err := checkPrompt(ctx, cmd.OutOrStdout(), c, prompt, false); err != nil {
					return err
				}
			}
			return a.runSession(ctx, cmd.OutOrStdout(), c, prompt, f)
		},
	}

	cmd.Flags().StringVar(&f.record, "record", "", "append the raw event stream to this file")
	cmd.Flags().BoolVar(&f.details, "details", false, "print request, response and extracted data for each step")
	cmd.Flags().BoolVar(&f.showSecrets, "show-secrets", false, "do not mask credentials in printed details")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "validate the prompt before running it")
	return cmd
}

// runSession runs one prompt against streamer and blocks until it ends.
func (a *app) runSession(ctx context.Context, out io.Writer, streamer session.Streamer, prompt string, f runFlags) error {
	d := display.New(out)
	d.ShowDetails = f.details
	d.ShowSecrets = f.showSecrets

	opts := []session.Option{
		session.WithEvents(d),
		session.WithLogger(a.log()),
		session.WithConsumerOptions(a.consumerOptions()...),
	}
	if f.record != "" {
		capture, err := consumer.OpenCapture(f.record, a.log())
		if err != nil {
			return err
		}
		defer capture.Close()
		opts = append(opts, session.WithCapture(capture))
	}

	sess := session.New(streamer, workflow.NewStore(""), opts...)

	d.Start()
	defer d.Stop()

	if _, err := sess.Start(ctx, prompt); err != nil {
		return err
	}
	return sess.Wait()
}

// checkPrompt asks the service to validate prompt. It returns
// ErrPromptRejected when the prompt is refused.
func checkPrompt(ctx context.Context, out io.Writer, v promptValidator, prompt string, verbose bool) error {
	if strings.TrimSpace(prompt) == "" {
		return session.ErrEmptyPrompt
	}
	res, err := v.Validate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to validate prompt: %w", err)
	}
	if !res.Valid {
		reason := res.Error
		if reason == "" {
			reason = res.Message
		}
		if reason == "" {
			return ErrPromptRejected
		}
		return fmt.Errorf("%w: %s", ErrPromptRejected, reason)
	}
	if verbose {
		msg := res.Message
		if msg == "" {
			msg = "Prompt is valid"
		}
		fmt.Fprintf(out, "✓ %s\n", msg)
	}
	return nil
}
