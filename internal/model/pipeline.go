package model

// Passage is a retrieved knowledge base chunk with its relevance to a query.
type Passage struct {
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	ChunkID      string  `json:"chunk_id"`
	// RelevancePercentage is (1 - distance) * 100 clamped to [0, 100],
	// rounded to one decimal place.
	RelevancePercentage float64 `json:"relevance_score"`
}

// ReformulationResult is the outcome of the query reformulation stage.
type ReformulationResult struct {
	OriginalQuestion  string `json:"original_question"`
	ReformulatedQuery string `json:"reformulated_query"`
	DetectedIntent    string `json:"detected_intent"`
}

// SearchResult is the outcome of the retrieval and answer stage.
type SearchResult struct {
	Query            string    `json:"query"`
	Answer           string    `json:"answer"`
	SourceDocument   string    `json:"source_document"`
	RelevantPassages []Passage `json:"relevant_passages"`
}

// ValidationResult is the outcome of the answer validation stage.
type ValidationResult struct {
	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
	IsGrounded      bool   `json:"is_grounded"`
	IsRelevant      bool   `json:"is_relevant"`
	IsComplete      bool   `json:"is_complete"`
}

// PipelineResult is the complete outcome of processing one question.
type PipelineResult struct {
	OriginalQuestion string `json:"original_question"`

	ReformulatedQuery string `json:"reformulated_query"`
	DetectedIntent    string `json:"detected_intent"`

	Answer           string    `json:"answer"`
	SourceDocument   string    `json:"source_document"`
	RelevantPassages []Passage `json:"relevant_passages"`

	ConfidenceScore     int    `json:"confidence_score"`
	ValidationReasoning string `json:"validation_reasoning"`
	IsGrounded          bool   `json:"is_grounded"`
	IsRelevant          bool   `json:"is_relevant"`
	IsComplete          bool   `json:"is_complete"`

	TotalTimeMs         int64 `json:"total_time_ms"`
	ReformulationTimeMs int64 `json:"reformulation_time_ms"`
	SearchTimeMs        int64 `json:"search_time_ms"`
	ValidationTimeMs    int64 `json:"validation_time_ms"`
}

// ConfidenceLevel returns the coarse confidence label for the result.
func (r *PipelineResult) ConfidenceLevel() string {
	return ConfidenceLevel(r.ConfidenceScore)
}
