package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/bankdesk/vector"
	"github.com/kart-io/bankdesk/internal/pkg/rag/chunker"
	"github.com/kart-io/bankdesk/pkg/llm"
)

// embedBatchSize bounds how many chunks are embedded per provider call.
const embedBatchSize = 32

// IndexerConfig configures knowledge base indexing.
type IndexerConfig struct {
	// KnowledgeDir is the directory holding the markdown knowledge base.
	KnowledgeDir string
	// Collection is the vector collection name.
	Collection string
	// EmbeddingDim is the embedding vector dimension.
	EmbeddingDim int
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Indexer chunks markdown documents, embeds them and loads the vector index.
type Indexer struct {
	store         vector.Store
	embedProvider llm.EmbeddingProvider
	chunker       *chunker.Chunker
	config        *IndexerConfig
}

// NewIndexer creates an indexer instance.
func NewIndexer(store vector.Store, embedProvider llm.EmbeddingProvider, ck *chunker.Chunker, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:         store,
		embedProvider: embedProvider,
		chunker:       ck,
		config:        config,
	}
}

// IndexAll indexes every markdown document in the knowledge directory.
func (ix *Indexer) IndexAll(ctx context.Context) (*IndexReport, error) {
	if err := ix.store.EnsureCollection(ctx, ix.config.Collection, ix.config.EmbeddingDim); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	names, err := ix.documentFiles()
	if err != nil {
		return nil, err
	}

	report := &IndexReport{}
	for _, name := range names {
		chunks, err := ix.indexDocument(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to index document %s: %w", name, err)
		}
		report.Documents++
		report.Chunks += chunks
	}

	logger.Infow("indexed knowledge base",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"collection", ix.config.Collection)

	return report, nil
}

// indexDocument chunks, embeds and inserts a single document. Returns the
// number of chunks written.
func (ix *Indexer) indexDocument(ctx context.Context, name string) (int, error) {
	content, err := ix.DocumentContent(name)
	if err != nil {
		return 0, err
	}

	chunks := ix.chunker.Split(name, content)
	if len(chunks) == 0 {
		logger.Warnw("document produced no chunks", "document", name)
		return 0, nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embeddings, err := ix.embedProvider.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(batch))
		}

		embedded := make([]*vector.EmbeddedChunk, len(batch))
		for i, c := range batch {
			embedded[i] = &vector.EmbeddedChunk{
				ChunkID:      c.ID(),
				DocumentName: c.DocumentName,
				ChunkIndex:   c.Index,
				Content:      c.Content,
				Embedding:    embeddings[i],
			}
		}

		if _, err := ix.store.Insert(ctx, ix.config.Collection, embedded); err != nil {
			return 0, err
		}
	}

	logger.Debugw("indexed document", "document", name, "chunks", len(chunks))
	return len(chunks), nil
}

// Count returns the number of indexed chunks.
func (ix *Indexer) Count(ctx context.Context) (int64, error) {
	if err := ix.store.EnsureCollection(ctx, ix.config.Collection, ix.config.EmbeddingDim); err != nil {
		return 0, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return ix.store.Count(ctx, ix.config.Collection)
}

// Clear drops the collection and recreates it empty.
func (ix *Indexer) Clear(ctx context.Context) error {
	if err := ix.store.Drop(ctx, ix.config.Collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := ix.store.EnsureCollection(ctx, ix.config.Collection, ix.config.EmbeddingDim); err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}

	logger.Infow("cleared knowledge base index", "collection", ix.config.Collection)
	return nil
}

// DocumentNames lists the documents currently in the index.
func (ix *Indexer) DocumentNames(ctx context.Context) ([]string, error) {
	return ix.store.DocumentNames(ctx, ix.config.Collection)
}

// DocumentContent reads the full content of a knowledge base document by
// file name. Names with path separators are rejected.
func (ix *Indexer) DocumentContent(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid document name: %q", name)
	}

	data, err := os.ReadFile(filepath.Join(ix.config.KnowledgeDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", name, err)
	}
	return string(data), nil
}

// documentFiles lists the markdown files in the knowledge directory.
func (ix *Indexer) documentFiles() ([]string, error) {
	entries, err := os.ReadDir(ix.config.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}
