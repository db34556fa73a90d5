package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/bankdesk/internal/model"
)

// Pipeline runs the three answer stages in sequence: reformulation,
// retrieval with answer generation, and validation.
type Pipeline struct {
	reformulator *Reformulator
	answerer     *Answerer
	validator    *Validator
}

// NewPipeline creates a pipeline from its stages.
func NewPipeline(reformulator *Reformulator, answerer *Answerer, validator *Validator) *Pipeline {
	return &Pipeline{
		reformulator: reformulator,
		answerer:     answerer,
		validator:    validator,
	}
}

// Process runs a raw question through all stages and collects per-stage
// timings. Any provider error aborts the pipeline.
func (p *Pipeline) Process(ctx context.Context, question string) (*model.PipelineResult, error) {
	totalStart := time.Now()

	reformStart := time.Now()
	reformulation, err := p.reformulator.Reformulate(ctx, question)
	if err != nil {
		return nil, err
	}
	reformulationTime := time.Since(reformStart)

	searchStart := time.Now()
	search, err := p.answerer.Answer(ctx, reformulation.ReformulatedQuery)
	if err != nil {
		return nil, err
	}
	searchTime := time.Since(searchStart)

	sources := make([]string, len(search.RelevantPassages))
	for i, passage := range search.RelevantPassages {
		sources[i] = passage.Content
	}

	validationStart := time.Now()
	validation, err := p.validator.Validate(ctx, reformulation.OriginalQuestion, search.Answer, sources)
	if err != nil {
		return nil, err
	}
	validationTime := time.Since(validationStart)

	result := &model.PipelineResult{
		OriginalQuestion: question,

		ReformulatedQuery: reformulation.ReformulatedQuery,
		DetectedIntent:    reformulation.DetectedIntent,

		Answer:           search.Answer,
		SourceDocument:   search.SourceDocument,
		RelevantPassages: search.RelevantPassages,

		ConfidenceScore:     validation.ConfidenceScore,
		ValidationReasoning: validation.Reasoning,
		IsGrounded:          validation.IsGrounded,
		IsRelevant:          validation.IsRelevant,
		IsComplete:          validation.IsComplete,

		TotalTimeMs:         time.Since(totalStart).Milliseconds(),
		ReformulationTimeMs: reformulationTime.Milliseconds(),
		SearchTimeMs:        searchTime.Milliseconds(),
		ValidationTimeMs:    validationTime.Milliseconds(),
	}

	logger.Infow("pipeline completed",
		"intent", result.DetectedIntent,
		"source", result.SourceDocument,
		"confidence", result.ConfidenceScore,
		"total_ms", result.TotalTimeMs)

	return result, nil
}
