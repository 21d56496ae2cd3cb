// Package cli provides the command-line interface for the profile post watcher.
package cli

import (
	"fmt"

	"github.com/jewel-tree/profile-post-watcher/internal/config"
	"github.com/jewel-tree/profile-post-watcher/internal/logger"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Watch an Instagram profile and announce new posts",
	Long: "watcher polls one Instagram profile, remembers the last post it reported, " +
		"and notifies the configured publishers when a newer post appears.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "watcher %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads config and initializes the process logger.
func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
