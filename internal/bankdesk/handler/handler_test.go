package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bankdesk/internal/bankdesk/biz"
	"github.com/kart-io/bankdesk/internal/bankdesk/handler"
	"github.com/kart-io/bankdesk/internal/bankdesk/router"
	"github.com/kart-io/bankdesk/internal/bankdesk/store"
	"github.com/kart-io/bankdesk/internal/bankdesk/vector"
	"github.com/kart-io/bankdesk/internal/model"
	"github.com/kart-io/bankdesk/internal/pkg/rag/chunker"
	"github.com/kart-io/bankdesk/pkg/llm"
	sqliteopts "github.com/kart-io/bankdesk/pkg/options/sqlite"
)

type scriptedChat struct {
	responses []string
	calls     int
}

func (s *scriptedChat) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.calls++
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response for call %d", s.calls)
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func (s *scriptedChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return s.Chat(ctx, nil)
}

func (s *scriptedChat) Name() string { return "scripted" }

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e constEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, _ := e.Embed(ctx, []string{text})
	return vectors[0], nil
}

func (constEmbedder) Name() string { return "const-embed" }

type memVectorStore struct {
	hits     []*vector.Hit
	inserted []*vector.EmbeddedChunk
}

func (m *memVectorStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}

func (m *memVectorStore) Insert(ctx context.Context, collection string, chunks []*vector.EmbeddedChunk) ([]int64, error) {
	m.inserted = append(m.inserted, chunks...)
	return make([]int64, len(chunks)), nil
}

func (m *memVectorStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*vector.Hit, error) {
	if topK < len(m.hits) {
		return m.hits[:topK], nil
	}
	return m.hits, nil
}

func (m *memVectorStore) DocumentNames(ctx context.Context, collection string) ([]string, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range m.inserted {
		if _, ok := seen[c.DocumentName]; ok {
			continue
		}
		seen[c.DocumentName] = struct{}{}
		names = append(names, c.DocumentName)
	}
	for _, h := range m.hits {
		if _, ok := seen[h.DocumentName]; ok {
			continue
		}
		seen[h.DocumentName] = struct{}{}
		names = append(names, h.DocumentName)
	}
	return names, nil
}

func (m *memVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(m.inserted) + len(m.hits)), nil
}

func (m *memVectorStore) Drop(ctx context.Context, collection string) error {
	m.inserted = nil
	return nil
}

func (m *memVectorStore) Close(ctx context.Context) error { return nil }

var _ vector.Store = (*memVectorStore)(nil)

type testEnv struct {
	engine  *gin.Engine
	factory store.Factory
	chat    *scriptedChat
}

func newTestEnv(t *testing.T, chatResponses []string, hits []*vector.Hit) *testEnv {
	t.Helper()

	opts := sqliteopts.NewOptions()
	opts.Path = ":memory:"
	factory, err := store.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fees.md"), []byte("Overdraft fee is $35."), 0o644))

	chat := &scriptedChat{responses: chatResponses}
	vectorStore := &memVectorStore{hits: hits}

	retriever := biz.NewRetriever(vectorStore, constEmbedder{}, &biz.RetrieverConfig{
		TopK:       3,
		Collection: "banking_knowledge",
	})
	pipeline := biz.NewPipeline(
		biz.NewReformulator(chat),
		biz.NewAnswerer(chat, retriever),
		biz.NewValidator(chat),
	)
	indexer := biz.NewIndexer(vectorStore, constEmbedder{}, chunker.New(500, 50), &biz.IndexerConfig{
		KnowledgeDir: dir,
		Collection:   "banking_knowledge",
		EmbeddingDim: 3,
	})
	service := biz.NewService(pipeline, indexer, factory, biz.NewAnswerCache(nil, nil))

	h := handler.New(service, "test", time.Minute)
	return &testEnv{
		engine:  router.New(h),
		factory: factory,
		chat:    chat,
	}
}

func knowledgeHits() []*vector.Hit {
	return []*vector.Hit{
		{ChunkID: "fees.md_0", DocumentName: "fees.md", ChunkIndex: 0, Content: "Overdraft fee is $35.", Distance: 0.1},
	}
}

func pipelineResponses() []string {
	return []string{
		`{"reformulated_query": "overdraft fee amount", "detected_intent": "FEES"}`,
		`{"answer": "The overdraft fee is $35.", "primary_source": "fees.md"}`,
		`{"grounded_score": 38, "relevant_score": 28, "complete_score": 18, "clear_score": 9, "is_grounded": true, "is_relevant": true, "is_complete": true, "reasoning": "Well grounded."}`,
	}
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeSuccess(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Code)
	return envelope.Data
}

func TestQueryEndpoint(t *testing.T) {
	env := newTestEnv(t, pipelineResponses(), knowledgeHits())

	w := doRequest(t, env.engine, http.MethodPost, "/v1/query", handler.QueryRequest{Question: "What is the overdraft fee?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeSuccess(t, w)
	assert.Equal(t, "The overdraft fee is $35.", data["answer"])
	assert.Equal(t, "fees.md", data["source_document"])
	assert.Equal(t, "FEES", data["detected_intent"])
	assert.Equal(t, float64(93), data["confidence_score"])
	assert.Equal(t, "high", data["confidence_level"])
	assert.Equal(t, float64(1), data["query_id"])
	assert.Equal(t, 3, env.chat.calls)

	// The query is persisted to history.
	list, err := env.factory.Queries().List(context.Background(), &model.QueryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)
}

func TestQueryEndpointMissingQuestion(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodPost, "/v1/query", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.chat.calls)
}

func TestGetQuery(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	query := &model.Query{Question: "q", Answer: "a", ConfidenceScore: 80}
	require.NoError(t, env.factory.Queries().Create(context.Background(), query))

	w := doRequest(t, env.engine, http.MethodGet, fmt.Sprintf("/v1/queries/%d", query.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSuccess(t, w)
	assert.Equal(t, "q", data["question"])
}

func TestGetQueryNotFound(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodGet, "/v1/queries/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetQueryInvalidID(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodGet, "/v1/queries/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListQueriesTruncatesAnswers(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	long := strings.Repeat("x", 300)
	require.NoError(t, env.factory.Queries().Create(context.Background(), &model.Query{
		Question: "q", Answer: long, ConfidenceScore: 80, DetectedIntent: model.IntentFees,
	}))

	w := doRequest(t, env.engine, http.MethodGet, "/v1/queries?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeSuccess(t, w)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	answer := items[0].(map[string]any)["answer"].(string)
	assert.Equal(t, strings.Repeat("x", 200)+"...", answer)
	assert.Equal(t, float64(1), data["total"])
}

func TestListQueriesIntentFilter(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, env.factory.Queries().Create(ctx, &model.Query{Question: "a", DetectedIntent: model.IntentFees}))
	require.NoError(t, env.factory.Queries().Create(ctx, &model.Query{Question: "b", DetectedIntent: model.IntentCards}))

	w := doRequest(t, env.engine, http.MethodGet, "/v1/queries?intent=FEES", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeSuccess(t, w)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].(map[string]any)["question"])
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	require.NoError(t, env.factory.Queries().Create(context.Background(), &model.Query{
		Question: "q", ConfidenceScore: 85, DetectedIntent: model.IntentFees,
	}))

	w := doRequest(t, env.engine, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeSuccess(t, w)
	assert.Equal(t, float64(1), data["total_queries"])
	assert.Contains(t, data, "confidence_distribution")
	assert.Contains(t, data, "top_documents")
	assert.Contains(t, data, "low_confidence_count")
}

func TestIndexAndDocuments(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodPost, "/v1/index", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSuccess(t, w)
	assert.Equal(t, float64(1), data["documents"])

	w = doRequest(t, env.engine, http.MethodGet, "/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Code int                  `json:"code"`
		Data []model.DocumentInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "fees.md", envelope.Data[0].Name)
}

func TestGetDocument(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodGet, "/v1/documents/fees.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeSuccess(t, w)
	assert.Equal(t, "Overdraft fee is $35.", data["content"])

	w = doRequest(t, env.engine, http.MethodGet, "/v1/documents/missing.md", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearQueries(t *testing.T) {
	env := newTestEnv(t, pipelineResponses(), knowledgeHits())

	w := doRequest(t, env.engine, http.MethodPost, "/v1/query", handler.QueryRequest{Question: "What is the overdraft fee?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, env.engine, http.MethodDelete, "/v1/queries", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeSuccess(t, w)
	assert.Equal(t, float64(1), data["removed"])

	list, err := env.factory.Queries().List(context.Background(), &model.QueryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestClearIndex(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodPost, "/v1/index", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, env.engine, http.MethodDelete, "/v1/index", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w := doRequest(t, env.engine, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bankdesk_pipeline_queries_total")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
