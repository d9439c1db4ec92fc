// Package cli wires the apiflow command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pablasso/apiflow/internal/client"
	"github.com/pablasso/apiflow/internal/config"
	"github.com/pablasso/apiflow/internal/consumer"
	"github.com/pablasso/apiflow/internal/logging"
	"github.com/pablasso/apiflow/internal/tui"
	"github.com/pablasso/apiflow/internal/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	logLevel   string
	logFormat  string
	logFile    string
}

// app is the resolved configuration and logger for one command invocation.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "apiflow",
		Short: "Run API workflows described in plain language",
		Long: `Apiflow sends a prompt to the workflow service and follows the run as it
streams back: the plan, each API call, extracted data and the final result.

Without a subcommand it opens the interactive terminal UI.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(*cobra.Command, []string) error {
			return tui.Run(a.tuiOptions())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&a.flags.apiURL, "api-url", "", "workflow service base URL")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&a.flags.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newHealthCmd(a),
		newReplayCmd(a),
		newDemoCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// setup resolves configuration (defaults, file, environment, flags) and
// opens the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.NewDefaultConfig()

	path, optional := a.flags.configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	if err := cfg.LoadFile(path, optional); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = a.flags.apiURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		File:     cfg.LogFile,
		Fallback: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	logger.Debug("configuration loaded", "api_url", cfg.APIURL, "config", path)
	return nil
}

func (a *app) close() error {
	if a.logger.Close == nil {
		return nil
	}
	return a.logger.Close()
}

func (a *app) log() *slog.Logger {
	if a.logger.Logger == nil {
		return logging.Nop()
	}
	return a.logger.Logger
}

// tuiLog is the logger for TUI sessions. The TUI owns the terminal, so
// without a log file its logs are dropped.
func (a *app) tuiLog() *slog.Logger {
	if a.cfg == nil || a.cfg.LogFile == "" {
		return logging.Nop()
	}
	return a.log()
}

func (a *app) client(logger *slog.Logger) *client.Client {
	return client.New(a.cfg.APIURL,
		client.WithTimeout(a.cfg.RequestTimeout),
		client.WithLogger(logger),
	)
}

func (a *app) consumerOptions() []consumer.Option {
	return []consumer.Option{consumer.WithMaxLineBytes(a.cfg.MaxLineBytes)}
}

func (a *app) tuiOptions() tui.Options {
	c := a.client(a.tuiLog())
	return tui.Options{
		Streamer:        c,
		Validator:       c,
		Endpoint:        c.BaseURL(),
		Logger:          a.tuiLog(),
		ConsumerOptions: a.consumerOptions(),
	}
}
