package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/bankdesk/pkg/llm"
)

func newTestProvider(baseURL string) *Provider {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 0
	cfg.Timeout = 5 * time.Second
	return NewProviderWithConfig(cfg)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:11434", cfg.BaseURL)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedModel)
	assert.Equal(t, "llama3.2:3b", cfg.ChatModel)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestNewProviderAppliesConfigMap(t *testing.T) {
	p, err := NewProvider(map[string]any{
		"base_url":    "http://ollama:11434",
		"embed_model": "custom-embed",
		"chat_model":  "custom-chat",
		"temperature": 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())

	provider := p.(*Provider)
	assert.Equal(t, "http://ollama:11434", provider.config.BaseURL)
	assert.Equal(t, "custom-embed", provider.config.EmbedModel)
	assert.Equal(t, "custom-chat", provider.config.ChatModel)
	assert.Equal(t, 0.3, provider.config.Temperature)
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, []string{"hello", "world"}, req.Input)

		_ = json.NewEncoder(w).Encode(embedResponse{
			Model:      req.Model,
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	embeddings, err := newTestProvider(server.URL).Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2}, embeddings[0])
}

func TestEmbedEmptyInput(t *testing.T) {
	embeddings, err := newTestProvider("http://unused").Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:   req.Model,
			Message: chatMessage{Role: "assistant", Content: "hi there"},
			Done:    true,
		})
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", response)
}

func TestChatSendsTemperature(t *testing.T) {
	var gotOptions map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotOptions = req.Options
		_ = json.NewEncoder(w).Encode(chatResponse{Done: true})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Temperature = 0.3
	_, err := NewProviderWithConfig(cfg).Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	require.NotNil(t, gotOptions)
	assert.Equal(t, 0.3, gotOptions["temperature"])
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the prompt", req.Prompt)
		assert.Equal(t, "the system", req.System)

		_ = json.NewEncoder(w).Encode(generateResponse{Response: "generated", Done: true})
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).Generate(context.Background(), "the prompt", "the system")
	require.NoError(t, err)
	assert.Equal(t, "generated", response)
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRetryRebuildsRequestBody(t *testing.T) {
	var attempts atomic.Int32
	var listener *httptest.Server
	listener = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			// Drop the first connection so the client retries.
			listener.CloseClientConnections()
			return
		}

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "ok"},
			Done:    true,
		})
	}))
	defer listener.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = listener.URL
	cfg.MaxRetries = 2
	cfg.Timeout = 5 * time.Second

	response, err := NewProviderWithConfig(cfg).Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.GreaterOrEqual(t, attempts.Load(), int32(2))
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	assert.NoError(t, newTestProvider(server.URL).Ping(context.Background()))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3.2:3b"}, {"name": "nomic-embed-text"}]}`))
	}))
	defer server.Close()

	models, err := newTestProvider(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:3b", "nomic-embed-text"}, models)
}
