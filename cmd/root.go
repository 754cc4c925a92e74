package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coal/siterisk/internal/policy"
)

// Version is set at build time.
var Version = "0.1.0"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "siterisk",
	Short: "Site risk scoring and correlation for learning platform plugins",
	Long: `siterisk turns per-plugin and per-role findings into layered risk
scores, correlates them into alerts, and normalizes the result into a
site-wide risk index. Findings are read from a snapshot file or a
directory of bundles gathered by an upstream collector.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("siterisk v%s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("component", "siterisk").Logger(), nil
}

// loadPolicy reads path, or returns the built-in policy when path is empty.
func loadPolicy(path string) (*policy.Policy, error) {
	if path == "" {
		return policy.Default(), nil
	}
	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	return pol, nil
}
