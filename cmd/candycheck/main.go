package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"candycheck/internal/config"
)

// Version is stamped at build time via -ldflags.
var Version = "0.3.0"

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "candycheck",
	Short: "candycheck - gamified Python checking over MCP",
	Long: `candycheck wraps an external Python checker (pyrefly by default) in a
lollipop reward economy and serves it to MCP clients over stdio.

Every problem a check finds locks lollipops; submitting a verified fix
unlocks them, extends a streak and occasionally hits a jackpot
multiplier. A simulated leaderboard keeps the pressure on.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the version string
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the candycheck version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("candycheck %s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
