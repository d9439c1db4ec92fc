package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pablasso/apiflow/internal/client"
)

type promptValidator interface {
	Validate(ctx context.Context, prompt string) (*client.Validation, error)
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <prompt>",
		Short: "Check a prompt with the workflow service without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkPrompt(cmd.Context(), cmd.OutOrStdout(), a.client(a.log()), strings.Join(args, " "), true)
		},
	}
}
