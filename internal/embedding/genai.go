package embedding

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"cortex/internal/logging"
)

// genaiMaxBatchSize is the maximum number of texts allowed in a
// single GenAI EmbedContent request; the API returns 400 above it.
const genaiMaxBatchSize = 100

// genaiDimensions is gemini-embedding-001's output size.
const genaiDimensions = 3072

func int32Ptr(i int32) *int32 { return &i }

// genaiEngine generates embeddings via Google's hosted Gemini API.
// Unlike the native/tfidf providers this one makes a network call per
// Embed/EmbedBatch invocation, so it is always wrapped in the LRU
// cache NewEngine applies to every provider.
type genaiEngine struct {
	client   *genai.Client
	model    string
	taskType string
}

// newGenAIEngine builds the GenAI provider. apiKey is required; model
// and taskType default to "gemini-embedding-001" and
// "SEMANTIC_SIMILARITY" when empty.
func newGenAIEngine(ctx context.Context, apiKey, model, taskType string) (*genaiEngine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "newGenAIEngine")
	defer timer.Stop()

	if apiKey == "" {
		return nil, fmt.Errorf("embedding: genai provider requires an api key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if taskType == "" {
		taskType = "SEMANTIC_SIMILARITY"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("embedding: create genai client: %w", err)
	}

	logging.Get(logging.CategoryEmbedding).Infof("genai embedding engine ready: model=%s task_type=%s", model, taskType)
	return &genaiEngine{client: client, model: model, taskType: taskType}, nil
}

func (e *genaiEngine) Name() string    { return fmt.Sprintf("genai:%s", e.model) }
func (e *genaiEngine) Dimensions() int { return genaiDimensions }

func (e *genaiEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding: genai returned no embeddings")
	}
	return vecs[0], nil
}

// EmbedBatch chunks texts into genaiMaxBatchSize-sized requests and
// concatenates the results, matching the API's per-request cap.
func (e *genaiEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= genaiMaxBatchSize {
		return e.embedChunk(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiMaxBatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := start + genaiMaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: genai batch [%d:%d]: %w", start, end, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (e *genaiEngine) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	start := time.Now()
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: int32Ptr(genaiDimensions),
	})
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("embedding: genai EmbedContent: %w", err)
	}
	logging.Get(logging.CategoryEmbedding).Debugf("genai embed: %d texts in %v", len(texts), latency)

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// HealthCheck embeds a one-word probe to confirm the API key and
// network path are live, satisfying embedding.HealthChecker.
func (e *genaiEngine) HealthCheck(ctx context.Context) error {
	_, err := e.Embed(ctx, "ping")
	return err
}
