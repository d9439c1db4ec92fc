package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pablasso/apiflow/internal/demo"
	"github.com/pablasso/apiflow/internal/tui"
)

type demoFlags struct {
	scenario string
	preset   string
	mode     string
	speed    float64
	run      runFlags
}

func newDemoCmd(a *app) *cobra.Command {
	var f demoFlags

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play a scripted workflow run without a service",
		Long: `Play a built-in event stream through the same client used for live runs.
No workflow service is needed. Useful for:
  - Iterating on the terminal UI
  - Showing apiflow to others
  - Checking how broken streams are handled

Scenarios:
  success  Every step completes (default)
  failure  The second API call is rejected and the run fails
  noisy    Success, with keep-alives, a malformed line, an unknown event,
           an unmatched step and an ambiguous extraction title

Presets:
  quick    Short pauses, whole-message writes split into large fragments
  medium   Realistic pacing (default)
  slow     Long pauses and small fragments`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario, err := demo.ParseScenario(f.scenario)
			if err != nil {
				return err
			}
			preset, err := demo.ParsePreset(f.preset)
			if err != nil {
				return err
			}
			mode, err := demo.ParseMode(f.mode)
			if err != nil {
				return err
			}
			cfg, err := demo.NewConfig(preset)
			if err != nil {
				return err
			}
			playback := demo.NewPlayback(scenario, cfg.WithSpeed(f.speed))

			if mode == demo.ModePlain {
				ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer cancel()
				return a.runSession(ctx, cmd.OutOrStdout(), playback, scenario.Prompt(), f.run)
			}

			opts := a.tuiOptions()
			opts.Streamer = playback
			opts.Validator = nil
			opts.Endpoint = fmt.Sprintf("demo playback (%s, %s)", scenario, preset)
			opts.ShowSecrets = f.run.showSecrets
			opts.Demo = &tui.DemoOptions{Preset: preset, Scenario: scenario}
			return tui.Run(opts)
		},
	}

	cmd.Flags().StringVar(&f.scenario, "scenario", string(demo.ScenarioSuccess), "demo scenario: success, failure, noisy")
	cmd.Flags().StringVar(&f.preset, "preset", string(demo.PresetMedium), "pacing preset: quick, medium, slow")
	cmd.Flags().StringVar(&f.mode, "mode", string(demo.ModeTUI), "where to show the run: tui, plain")
	cmd.Flags().Float64Var(&f.speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().StringVar(&f.run.record, "record", "", "append the raw event stream to this file (plain mode)")
	cmd.Flags().BoolVar(&f.run.details, "details", false, "print request, response and extracted data (plain mode)")
	cmd.Flags().BoolVar(&f.run.showSecrets, "show-secrets", false, "do not mask credentials in details")
	return cmd
}
