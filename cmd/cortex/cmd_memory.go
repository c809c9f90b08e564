package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cortex/internal/memory"
	"cortex/internal/retrieval"
	"cortex/internal/storage"
	"cortex/internal/types"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Read and write typed memories",
}

var (
	putType       string
	putImportance string
)

var memoryPutCmd = &cobra.Command{
	Use:   "put <content>",
	Short: "Store a new typed memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if namespace == "" {
			return fmt.Errorf("--namespace is required")
		}
		ns, err := types.ParseNamespace(namespace)
		if err != nil {
			return err
		}

		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		rec := memory.New(ns, types.MemoryType(putType), types.Importance(putImportance), args[0])
		if err := memStore.Put(rec); err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var memoryGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		rec, err := memStore.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var (
	queryBudget int
	queryTopK   int
	queryIntent string
)

var memoryQueryCmd = &cobra.Command{
	Use:   "query <text>",
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
			Budget:     queryBudget,
			TopK:       queryTopK,
			IntentType: queryIntent,
		})
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	memoryPutCmd.Flags().StringVar(&putType, "type", string(types.MemorySemantic), "Memory type")
	memoryPutCmd.Flags().StringVar(&putImportance, "importance", string(types.ImportanceNormal), "Importance level")

	memoryQueryCmd.Flags().IntVar(&queryBudget, "budget", 2000, "Token budget for the packed result set")
	memoryQueryCmd.Flags().IntVar(&queryTopK, "top-k", 20, "Candidates considered before packing")
	memoryQueryCmd.Flags().StringVar(&queryIntent, "intent", "", "Intent type hint (e.g. debugging, implementing)")
}

func openMemoryStore() (*storage.Engine, *memory.Store, error) {
	engine, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return engine, memory.NewStore(engine), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
