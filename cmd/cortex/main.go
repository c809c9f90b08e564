// Package main implements the cortex CLI: a thin cobra wrapper over
// the Cortex Memory Core and Drift Analysis Core packages. rootCmd
// wires logging/config in PersistentPreRunE; command implementations
// are split into their own cmd_*.go files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cortex/internal/config"
	"cortex/internal/logging"
)

var (
	configPath string
	namespace  string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex Memory Core and Drift Analysis Core CLI",
	Long: `cortex is the command-line surface for the Cortex Memory Core
(typed, decaying, CRDT-synced agent memory) and the Drift Analysis Core
(pattern detection, taint analysis, quality gates, learning feedback).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Logging.DebugMode = true
			loaded.Logging.Level = "debug"
		}
		cfg = loaded

		return logging.Initialize(logging.Settings{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Dir:        cfg.Logging.Dir,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cortex.yaml", "Path to cortex.yaml")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Target namespace (agent://, team://, project://)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	memoryCmd.AddCommand(memoryPutCmd, memoryGetCmd, memoryQueryCmd)
	analyzeCmd.AddCommand(analyzeScanCmd, analyzeGateCmd, analyzeWatchCmd)
	learnCmd.AddCommand(learnFeedbackCmd)

	rootCmd.AddCommand(
		memoryCmd,
		agentCmd,
		retrieveCmd,
		consolidateCmd,
		analyzeCmd,
		learnCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
