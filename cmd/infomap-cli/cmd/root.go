package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mapequation/infomap-go/pkg/telemetry"
	"github.com/mapequation/infomap-go/pkg/utils"
)

var shutdownTelemetry telemetry.ShutdownFunc = func(context.Context) error { return nil }

var (
	verbose    bool
	configPath string
	logger     utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "infomap-cli",
	Short: "Find hierarchical community structure in a network",
	Long: `infomap-cli clusters a network into a hierarchy of modules by
minimizing the expected description length of a compressed random walk
on it (the map equation).

It reads Pajek (.net) or plain link-list network files, runs the
Infomap search, and writes the resulting partition as .clu, .tree, or
.ftree.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := utils.LevelInfo
		if verbose {
			level = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(level, os.Stdout)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		shutdown, err := telemetry.Init(ctx)
		if err != nil {
			logger.Warn("telemetry disabled: %v", err)
			return nil
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

// Execute adds every child command to rootCmd and runs it.
func Execute() {
	defer shutdownTelemetry(context.Background())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (defaults built in)")

	binName := BinName()
	rootCmd.Example = `  # Cluster a Pajek network into two levels and write .tree
  ` + binName + ` run -i network.net -o result --two-level

  # Run 10 trials of the full hierarchical search and write .ftree
  ` + binName + ` run -i network.net -o result --trials 10 --format ftree`
}

// GetLogger returns the logger configured by the root command's
// PersistentPreRunE, for subcommands to share.
func GetLogger() utils.Logger { return logger }

// BinName returns the base name of the running executable.
func BinName() string { return filepath.Base(os.Args[0]) }
