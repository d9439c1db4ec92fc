package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned when the service answers but does not report itself healthy.
var ErrUnhealthy = errors.New("service is not healthy")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the workflow service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client(a.log())
			h, err := c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", c.BaseURL(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Endpoint: %s\n", c.BaseURL())
			if h.Service != "" {
				fmt.Fprintf(out, "Service:  %s\n", h.Service)
			}
			fmt.Fprintf(out, "Status:   %s\n", h.Status)
			if h.Message != "" {
				fmt.Fprintf(out, "Message:  %s\n", h.Message)
			}

			switch strings.ToLower(h.Status) {
			case "healthy", "ok":
				return nil
			default:
				return fmt.Errorf("%w: %s", ErrUnhealthy, h.Status)
			}
		},
	}
}
