// Package cli provides the meetsync command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/app"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/config"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
)

// Dependencies holds what the commands need. App is built lazily from the
// loaded config before any subcommand runs.
type Dependencies struct {
	LoadConfig func(path string) (*config.Config, error)
	Out        io.Writer
	Version    string

	Config *config.Config
	App    *app.App
}

// DefaultDependencies returns dependencies for production use.
func DefaultDependencies(version string) *Dependencies {
	return &Dependencies{
		LoadConfig: config.Load,
		Out:        os.Stdout,
		Version:    version,
	}
}

// Close releases the App if one was built. Cobra skips post-run hooks when a
// command fails, so callers also defer Close after Execute.
func (d *Dependencies) Close() error {
	if d.App == nil {
		return nil
	}
	err := d.App.Close()
	d.App = nil
	return err
}

// Root command flags
var (
	configPath   string
	outputFormat string
	logLevel     string
)

// NewRootCmd creates the meetsync root command with all subcommands.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = DefaultDependencies("dev")
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	rootCmd := &cobra.Command{
		Use:   "meetsync",
		Short: "Keep meeting transcripts and summaries in sync on this device",
		Long: `meetsync tracks meeting processing status on the backend and keeps
transcripts, summaries and reports available offline.

Examples:
  # Follow a meeting until processing finishes
  meetsync status 42

  # Download the summary into the local cache
  meetsync fetch 42 summary

  # Run auto-sync with the local control server
  meetsync sync --serve`,
		Version:       deps.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(deps)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.Close()
		},
	}

	rootCmd.SetOut(deps.Out)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $MEETSYNC_CONFIG or ~/.meetsync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level: debug, info, warn, error")

	rootCmd.AddCommand(newStatusCmd(deps))
	rootCmd.AddCommand(newFetchCmd(deps))
	rootCmd.AddCommand(newFilesCmd(deps))
	rootCmd.AddCommand(newCloudStatusCmd(deps))
	rootCmd.AddCommand(newSyncCmd(deps))

	return rootCmd
}

func setup(deps *Dependencies) error {
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}

	cfg, err := deps.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logging.Init(&logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Format: logging.Format(cfg.Log.Format),
		Output: os.Stderr,
	})

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	deps.Config = cfg
	deps.App = application
	return nil
}
