package biz

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/bankdesk/metrics"
	"github.com/kart-io/bankdesk/internal/bankdesk/store"
	"github.com/kart-io/bankdesk/internal/model"
)

// Service bundles the pipeline, the indexer and the history store behind the
// operations the API exposes.
type Service struct {
	pipeline *Pipeline
	indexer  *Indexer
	factory  store.Factory
	cache    *AnswerCache
	metrics  *metrics.PipelineMetrics
}

// NewService creates the service facade.
func NewService(pipeline *Pipeline, indexer *Indexer, factory store.Factory, cache *AnswerCache) *Service {
	return &Service{
		pipeline: pipeline,
		indexer:  indexer,
		factory:  factory,
		cache:    cache,
		metrics:  metrics.GetPipelineMetrics(),
	}
}

// ProcessQuery answers a question, persists it to the history and returns
// the stored record alongside the full pipeline result. Cached answers skip
// the pipeline but are still recorded in the history.
func (s *Service) ProcessQuery(ctx context.Context, question string) (*model.Query, *model.PipelineResult, error) {
	cached, err := s.cache.Get(ctx, question)
	if err != nil {
		logger.Warnw("answer cache lookup failed, running pipeline", "error", err.Error())
	}

	cacheHit := cached != nil
	result := cached
	if !cacheHit {
		result, err = s.pipeline.Process(ctx, question)
		if err != nil {
			s.metrics.RecordQuery(false, err)
			return nil, nil, err
		}
	}
	s.metrics.RecordQuery(cacheHit, nil)

	query := &model.Query{
		Question:          result.OriginalQuestion,
		ReformulatedQuery: result.ReformulatedQuery,
		DetectedIntent:    result.DetectedIntent,
		Answer:            result.Answer,
		ConfidenceScore:   result.ConfidenceScore,
		SourceDocument:    result.SourceDocument,
		ResponseTimeMs:    result.TotalTimeMs,
	}
	if err := s.factory.Queries().Create(ctx, query); err != nil {
		return nil, nil, fmt.Errorf("failed to save query: %w", err)
	}
	if err := s.factory.DocumentUsage().RecordUse(ctx, result.SourceDocument); err != nil {
		logger.Warnw("failed to record document usage",
			"document", result.SourceDocument, "error", err.Error())
	}

	if !cacheHit {
		if err := s.cache.Set(ctx, question, result); err != nil {
			logger.Warnw("failed to cache answer", "error", err.Error())
		}
	}

	return query, result, nil
}

// GetQuery returns a stored query by ID.
func (s *Service) GetQuery(ctx context.Context, id uint64) (*model.Query, error) {
	return s.factory.Queries().Get(ctx, id)
}

// ListQueries returns a page of query history.
func (s *Service) ListQueries(ctx context.Context, filter *model.QueryFilter) (*model.QueryList, error) {
	return s.factory.Queries().List(ctx, filter)
}

// ClearHistory deletes all stored query history and invalidates cached
// answers. Returns the number of history rows removed.
func (s *Service) ClearHistory(ctx context.Context) (int64, error) {
	removed, err := s.factory.Queries().ClearAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear query history: %w", err)
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear answer cache", "error", err.Error())
	}
	return removed, nil
}

// DashboardStats aggregates history, usage and cache state for the
// dashboard.
type DashboardStats struct {
	*model.QueryStats
	TopDocuments       []model.DocumentInfo `json:"top_documents"`
	LowConfidenceCount int64                `json:"low_confidence_count"`
	Cache              map[string]any       `json:"cache"`
	Pipeline           map[string]any       `json:"pipeline"`
}

// Stats returns dashboard statistics.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	queryStats, err := s.factory.Queries().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate query stats: %w", err)
	}

	topDocs, err := s.factory.DocumentUsage().List(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to list document usage: %w", err)
	}

	lowConfidence, err := s.factory.Queries().CountBelowConfidence(ctx, 40)
	if err != nil {
		return nil, fmt.Errorf("failed to count low confidence queries: %w", err)
	}

	cacheStats, err := s.cache.Stats(ctx)
	if err != nil {
		logger.Warnw("failed to read cache stats", "error", err.Error())
		cacheStats = map[string]any{"enabled": false}
	}

	stats := &DashboardStats{
		QueryStats:         queryStats,
		TopDocuments:       make([]model.DocumentInfo, 0, len(topDocs)),
		LowConfidenceCount: lowConfidence,
		Cache:              cacheStats,
		Pipeline:           s.metrics.Stats(),
	}
	for _, d := range topDocs {
		stats.TopDocuments = append(stats.TopDocuments, model.DocumentInfo{
			Name:       d.DocumentName,
			UsageCount: d.UsageCount,
			LastUsed:   d.LastUsed,
		})
	}

	return stats, nil
}

// Documents lists indexed documents with their usage stats, most used first.
func (s *Service) Documents(ctx context.Context) ([]model.DocumentInfo, error) {
	names, err := s.indexer.DocumentNames(ctx)
	if err != nil {
		return nil, err
	}

	usageRows, err := s.factory.DocumentUsage().List(ctx, 100)
	if err != nil {
		return nil, err
	}
	usageByName := make(map[string]*model.DocumentUsage, len(usageRows))
	for _, row := range usageRows {
		usageByName[row.DocumentName] = row
	}

	documents := make([]model.DocumentInfo, 0, len(names))
	for _, name := range names {
		info := model.DocumentInfo{Name: name}
		if row, ok := usageByName[name]; ok {
			info.UsageCount = row.UsageCount
			info.LastUsed = row.LastUsed
		}
		documents = append(documents, info)
	}
	sort.SliceStable(documents, func(i, j int) bool {
		return documents[i].UsageCount > documents[j].UsageCount
	})

	return documents, nil
}

// DocumentContent returns the full content of a knowledge base document.
func (s *Service) DocumentContent(name string) (string, error) {
	return s.indexer.DocumentContent(name)
}

// IndexedCount returns the number of indexed chunks.
func (s *Service) IndexedCount(ctx context.Context) (int64, error) {
	return s.indexer.Count(ctx)
}

// EnsureIndexed indexes the knowledge base if the index is empty. Called at
// startup.
func (s *Service) EnsureIndexed(ctx context.Context) error {
	count, err := s.indexer.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Infow("knowledge base already indexed", "chunks", count)
		return nil
	}

	report, err := s.indexer.IndexAll(ctx)
	s.metrics.RecordIndexing(reportDocs(report), reportChunks(report), err)
	return err
}

// Reindex rebuilds the index from scratch and invalidates cached answers.
func (s *Service) Reindex(ctx context.Context) (*IndexReport, error) {
	if err := s.indexer.Clear(ctx); err != nil {
		s.metrics.RecordIndexing(0, 0, err)
		return nil, err
	}

	report, err := s.indexer.IndexAll(ctx)
	s.metrics.RecordIndexing(reportDocs(report), reportChunks(report), err)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear answer cache after reindex", "error", err.Error())
	}

	return report, nil
}

// ClearIndex drops all indexed chunks and invalidates cached answers.
func (s *Service) ClearIndex(ctx context.Context) error {
	if err := s.indexer.Clear(ctx); err != nil {
		return err
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear answer cache", "error", err.Error())
	}
	return nil
}

func reportDocs(r *IndexReport) int {
	if r == nil {
		return 0
	}
	return r.Documents
}

func reportChunks(r *IndexReport) int {
	if r == nil {
		return 0
	}
	return r.Chunks
}
