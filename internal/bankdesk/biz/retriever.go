package biz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/bankdesk/metrics"
	"github.com/kart-io/bankdesk/internal/bankdesk/vector"
	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/pkg/llm"
)

// RetrieverConfig configures knowledge base retrieval.
type RetrieverConfig struct {
	// TopK is the number of passages to return.
	TopK int
	// Collection is the vector collection name.
	Collection string
}

// Retriever embeds queries and fetches the closest knowledge base passages.
type Retriever struct {
	store         vector.Store
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever creates a retriever instance.
func NewRetriever(store vector.Store, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         store,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Retrieve returns the TopK most relevant passages for the query, closest
// first. An empty index yields an empty slice without calling the embedder.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]model.Passage, error) {
	count, err := r.store.Count(ctx, r.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to count indexed chunks: %w", err)
	}
	if count == 0 {
		logger.Debugw("index is empty, skipping retrieval", "collection", r.config.Collection)
		return []model.Passage{}, nil
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	start := time.Now()
	hits, err := r.store.Search(ctx, r.config.Collection, embedding, r.config.TopK)
	metrics.GetPipelineMetrics().RecordRetrieval(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	passages := make([]model.Passage, 0, len(hits))
	for _, hit := range hits {
		passages = append(passages, model.Passage{
			DocumentName:        hit.DocumentName,
			Content:             hit.Content,
			ChunkID:             hit.ChunkID,
			RelevancePercentage: relevancePercentage(hit.Distance),
		})
	}

	logger.Debugw("retrieved passages", "query_len", len(query), "count", len(passages))

	return passages, nil
}

// RetrieveWithContext retrieves passages and renders them as a single
// context block for the answer prompt.
func (r *Retriever) RetrieveWithContext(ctx context.Context, query string) ([]model.Passage, string, error) {
	passages, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, "", err
	}
	return passages, BuildContext(passages), nil
}

// BuildContext renders passages into the prompt context block. Sources are
// numbered from 1 and separated by a horizontal rule.
func BuildContext(passages []model.Passage) string {
	if len(passages) == 0 {
		return ""
	}

	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("[Source %d: %s]\n%s", i+1, p.DocumentName, p.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// relevancePercentage converts a distance into a 0-100 relevance score,
// rounded to one decimal place.
func relevancePercentage(distance float64) float64 {
	relevance := (1 - distance) * 100
	relevance = math.Max(0, math.Min(100, relevance))
	return math.Round(relevance*10) / 10
}
