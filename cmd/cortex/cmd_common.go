package main

import "cortex/internal/embedding"

func newEmbeddingEngine() (embedding.Engine, error) {
	return embedding.NewEngine(cfg.Embedding)
}
