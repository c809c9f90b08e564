package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cortex/internal/consolidation"
	"cortex/internal/decay"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Run one consolidation pass over a namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if namespace == "" {
			return fmt.Errorf("--namespace is required")
		}

		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		embEngine, err := newEmbeddingEngine()
		if err != nil {
			return err
		}
		decayEngine := decay.New(cfg.Decay)

		consolidationEngine := consolidation.New(engine, memStore, embEngine, decayEngine, cfg.Consolidation)
		result, err := consolidationEngine.Run(namespace)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}
