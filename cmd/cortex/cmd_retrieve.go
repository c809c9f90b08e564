package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cortex/internal/retrieval"
)

var (
	retrieveBudget int
	retrieveTopK   int
	retrieveIntent string
)

// retrieveCmd is a top-level alias for `memory query`, kept separate
// since retrieval is its own named operation in the platform, not
// strictly a memory-record CRUD verb.
var retrieveCmd = &cobra.Command{
	Use:   "retrieve <text>",
	Short: "Run a fused sparse+dense retrieval query",
	Args:  cobra.ExactArgs(1),
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

		retrievalEngine := retrieval.New(engine, memStore, embEngine, cfg.Retrieval)
		results, err := retrievalEngine.Retrieve(cmd.Context(), retrieval.Query{
			Text:       args[0],
			Namespace:  namespace,
			Budget:     retrieveBudget,
			TopK:       retrieveTopK,
			IntentType: retrieveIntent,
		})
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	retrieveCmd.Flags().IntVar(&retrieveBudget, "budget", 2000, "Token budget for the packed result set")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 20, "Candidates considered before packing")
	retrieveCmd.Flags().StringVar(&retrieveIntent, "intent", "", "Intent type hint (e.g. debugging, implementing)")
}
