package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/greenroom/internal/config"
)

var (
	// configFile is the path to an optional greenroom.yaml config file.
	configFile string

	// logDir is the directory for rotating log files (empty disables
	// file logging).
	logDir string

	// workers overrides the scheduler's worker count.
	workers int
)

// rootCmd is the base command for greenroomd.
var rootCmd = &cobra.Command{
	Use:   "greenroomd",
	Short: "greenroom actor runtime daemon and demos",
	Long: `greenroomd runs the greenroom actor runtime: a work-stealing
scheduler executing dynamic actors, with credit-flow streams layered on
top.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile, "config", "",
		"Path to a greenroom.yaml config file",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Directory for rotating log files (empty disables file logging)",
	)
	rootCmd.PersistentFlags().IntVar(
		&workers, "workers", 0,
		"Scheduler worker count (0: runtime.GOMAXPROCS)",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)

	runCmd.AddCommand(arithmeticCmd)
	runCmd.AddCommand(streamDemoCmd)
}

// loadConfig builds a config.Loader seeded from defaults, an optional
// --config file, and the command's bound flags, in that precedence order
// (spec.md §6). It binds --workers and --log-dir to their config keys
// itself, then calls Load.
func loadConfig(cmd *cobra.Command) (config.SystemConfig, *config.Loader, error) {
	l := config.NewLoader()
	if configFile != "" {
		l.Raw().SetConfigFile(configFile)
	}

	if err := l.Raw().BindPFlag("scheduler.workers", cmd.Flags().Lookup("workers")); err != nil {
		return config.SystemConfig{}, nil, fmt.Errorf("binding --workers: %w", err)
	}
	if err := l.Raw().BindPFlag("log.dir", cmd.Flags().Lookup("log-dir")); err != nil {
		return config.SystemConfig{}, nil, fmt.Errorf("binding --log-dir: %w", err)
	}

	cfg, err := l.Load()
	return cfg, l, err
}
