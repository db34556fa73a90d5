package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/bankdesk/internal/bankdesk/vector"
	"github.com/kart-io/bankdesk/pkg/llm"
)

// fakeChat replays scripted responses, one per call.
type fakeChat struct {
	responses []string
	err       error
	calls     [][]llm.Message
}

func (f *fakeChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeChat: no scripted response for call %d", len(f.calls))
	}
	response := f.responses[0]
	f.responses = f.responses[1:]
	return response, nil
}

func (f *fakeChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	if systemPrompt != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, messages...)
	}
	return f.Chat(ctx, messages)
}

func (f *fakeChat) Name() string { return "fake-chat" }

// fakeEmbedder returns a constant small vector for every input.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embed" }

// fakeVectorStore serves scripted hits and records inserts in memory.
type fakeVectorStore struct {
	hits     []*vector.Hit
	inserted []*vector.EmbeddedChunk
	dropped  bool
	err      error
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return f.err
}

func (f *fakeVectorStore) Insert(ctx context.Context, collection string, chunks []*vector.EmbeddedChunk) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, chunks...)
	ids := make([]int64, len(chunks))
	for i := range chunks {
		ids[i] = int64(len(f.inserted) - len(chunks) + i)
	}
	return ids, nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*vector.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeVectorStore) DocumentNames(ctx context.Context, collection string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, c := range f.inserted {
		if _, ok := seen[c.DocumentName]; ok {
			continue
		}
		seen[c.DocumentName] = struct{}{}
		names = append(names, c.DocumentName)
	}
	return names, nil
}

func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	// Scripted hits stand in for content indexed before the test started.
	return int64(len(f.inserted) + len(f.hits)), nil
}

func (f *fakeVectorStore) Drop(ctx context.Context, collection string) error {
	f.dropped = true
	f.inserted = nil
	return f.err
}

func (f *fakeVectorStore) Close(ctx context.Context) error { return nil }

var _ vector.Store = (*fakeVectorStore)(nil)
var _ llm.ChatProvider = (*fakeChat)(nil)
var _ llm.EmbeddingProvider = (*fakeEmbedder)(nil)
