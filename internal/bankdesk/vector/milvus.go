package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/bankdesk/pkg/component/milvus"
)

// maxDocumentNames bounds the scalar query used to enumerate documents.
const maxDocumentNames = 1000

// MilvusStore implements Store on top of a Milvus collection.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore creates a Milvus-backed vector store.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection creates the chunk collection if it does not exist.
func (s *MilvusStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	schema := &milvus.CollectionSchema{
		Name:        collection,
		Description: "bank knowledge base chunks",
		Dimension:   dimension,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 320},
			{Name: "document_name", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	return s.client.EnsureCollection(ctx, schema)
}

// Insert adds embedded chunks to the collection.
func (s *MilvusStore) Insert(ctx context.Context, collection string, chunks []*EmbeddedChunk) ([]int64, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"chunk_id":      make([]any, len(chunks)),
		"document_name": make([]any, len(chunks)),
		"chunk_index":   make([]any, len(chunks)),
		"content":       make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["chunk_id"][i] = chunk.ChunkID
		metadata["document_name"][i] = chunk.DocumentName
		metadata["chunk_index"][i] = int64(chunk.ChunkIndex)
		metadata["content"][i] = chunk.Content
	}

	ids, err := s.client.Insert(ctx, collection, &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert into milvus: %w", err)
	}

	return ids, nil
}

// Search returns the topK nearest chunks. Milvus reports cosine similarity,
// which is converted to a distance here so lower always means closer.
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*Hit, error) {
	outputFields := []string{"chunk_id", "document_name", "chunk_index", "content"}
	results, err := s.client.Search(ctx, collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	hits := make([]*Hit, 0, len(results))
	for _, r := range results {
		hit := &Hit{
			Distance: 1 - float64(r.Score),
		}
		if v, ok := r.Metadata["chunk_id"].(string); ok {
			hit.ChunkID = v
		}
		if v, ok := r.Metadata["document_name"].(string); ok {
			hit.DocumentName = v
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			hit.ChunkIndex = int(v)
		}
		if v, ok := r.Metadata["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DocumentNames lists distinct document names by querying the first chunk of
// each document.
func (s *MilvusStore) DocumentNames(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.client.Query(ctx, collection, "chunk_index == 0", []string{"document_name"}, maxDocumentNames)
	if err != nil {
		return nil, fmt.Errorf("failed to list document names: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		name, ok := row["document_name"].(string)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Count returns the number of indexed chunks.
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// Drop removes the collection.
func (s *MilvusStore) Drop(ctx context.Context, collection string) error {
	return s.client.DropCollection(ctx, collection)
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ Store = (*MilvusStore)(nil)
