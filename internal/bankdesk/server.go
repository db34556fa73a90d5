// Package bankdesk provides the bank customer service server implementation.
package bankdesk

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/bankdesk/internal/bankdesk/biz"
	"github.com/kart-io/bankdesk/internal/bankdesk/handler"
	"github.com/kart-io/bankdesk/internal/bankdesk/router"
	"github.com/kart-io/bankdesk/internal/bankdesk/store"
	"github.com/kart-io/bankdesk/internal/bankdesk/vector"
	"github.com/kart-io/bankdesk/internal/pkg/rag/chunker"
	"github.com/kart-io/bankdesk/pkg/app"
	"github.com/kart-io/bankdesk/pkg/component/milvus"
	"github.com/kart-io/bankdesk/pkg/llm"
	cacheopts "github.com/kart-io/bankdesk/pkg/options/cache"
	httpopts "github.com/kart-io/bankdesk/pkg/options/http"
	llmopts "github.com/kart-io/bankdesk/pkg/options/llm"
	logopts "github.com/kart-io/bankdesk/pkg/options/logger"
	milvusopts "github.com/kart-io/bankdesk/pkg/options/milvus"
	ragopts "github.com/kart-io/bankdesk/pkg/options/rag"
	sqliteopts "github.com/kart-io/bankdesk/pkg/options/sqlite"

	_ "github.com/kart-io/bankdesk/pkg/llm/ollama"
	_ "github.com/kart-io/bankdesk/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "bankdesk"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	SQLiteOptions    *sqliteopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	CacheOptions     *cacheopts.Options
	ShutdownTimeout  time.Duration
}

// Server represents the bankdesk server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	milvusClose     func()
	redisClose      func()
	storeClose      func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("starting bankdesk service", "version", app.GetVersion())

	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	vectorStore := vector.NewMilvusStore(milvusClient)
	logger.Infow("vector store initialized", "address", cfg.MilvusOptions.Address)

	factory, err := store.New(cfg.SQLiteOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	logger.Infow("history store initialized", "path", cfg.SQLiteOptions.Path)

	answerCache, redisClient, redisClose := cfg.buildCache(ctx)

	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if redisClient != nil {
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, nil)
	}
	logger.Infow("embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model)

	retriever := biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{
		TopK:       cfg.RAGOptions.TopK,
		Collection: cfg.RAGOptions.Collection,
	})
	pipeline := biz.NewPipeline(
		biz.NewReformulator(chatProvider),
		biz.NewAnswerer(chatProvider, retriever),
		biz.NewValidator(chatProvider),
	)
	indexer := biz.NewIndexer(vectorStore, embedProvider,
		chunker.New(cfg.RAGOptions.ChunkSize, cfg.RAGOptions.ChunkOverlap),
		&biz.IndexerConfig{
			KnowledgeDir: cfg.RAGOptions.KnowledgeDir,
			Collection:   cfg.RAGOptions.Collection,
			EmbeddingDim: cfg.RAGOptions.EmbeddingDim,
		})
	service := biz.NewService(pipeline, indexer, factory, answerCache)

	// Index the knowledge base on first start so queries have something
	// to retrieve against.
	if err := service.EnsureIndexed(ctx); err != nil {
		return nil, fmt.Errorf("failed to index knowledge base: %w", err)
	}

	h := handler.New(service, app.GetVersion(), cfg.HTTPOptions.RequestTimeout)
	engine := router.New(h)

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Infow("bankdesk service is ready", "addr", cfg.HTTPOptions.Addr)
	return &Server{
		httpServer:      httpServer,
		shutdownTimeout: cfg.ShutdownTimeout,
		milvusClose:     func() { _ = milvusClient.Close(context.Background()) },
		redisClose:      redisClose,
		storeClose:      func() { _ = factory.Close() },
	}, nil
}

// buildCache connects to Redis when caching is enabled. An unreachable Redis
// degrades to cache-off with a warning instead of failing startup.
func (cfg *Config) buildCache(ctx context.Context) (*biz.AnswerCache, *goredis.Client, func()) {
	if !cfg.CacheOptions.Enabled || cfg.CacheOptions.Redis == nil {
		logger.Info("answer cache is disabled")
		return biz.NewAnswerCache(nil, nil), nil, nil
	}

	redisOpts := cfg.CacheOptions.Redis
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         redisOpts.Addr(),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		MaxRetries:   redisOpts.MaxRetries,
		PoolSize:     redisOpts.PoolSize,
		MinIdleConns: redisOpts.MinIdleConns,
		DialTimeout:  redisOpts.DialTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warnw("failed to connect to redis, answer cache disabled", "error", err.Error())
		_ = redisClient.Close()
		return biz.NewAnswerCache(nil, nil), nil, nil
	}

	cache := biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
		Enabled:   true,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	})
	logger.Infow("answer cache initialized",
		"host", redisOpts.Host,
		"port", redisOpts.Port,
		"ttl", cfg.CacheOptions.TTL)

	return cache, redisClient, func() { _ = redisClient.Close() }
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if s.milvusClose != nil {
			s.milvusClose()
		}
		if s.redisClose != nil {
			s.redisClose()
		}
		if s.storeClose != nil {
			s.storeClose()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down bankdesk service...")
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	logger.Info("bankdesk service stopped")
	return nil
}
