// Package model provides data models for the bankdesk service.
package model

import (
	"time"
)

// Intent categories assigned by the reformulation stage.
const (
	IntentAccount = "ACCOUNT"
	IntentLoans   = "LOANS"
	IntentFees    = "FEES"
	IntentCards   = "CARDS"
	IntentBranch  = "BRANCH"
	IntentTech    = "TECH"
	IntentOther   = "OTHER"
)

// Intents lists every valid intent category.
var Intents = []string{
	IntentAccount,
	IntentLoans,
	IntentFees,
	IntentCards,
	IntentBranch,
	IntentTech,
	IntentOther,
}

// IsValidIntent reports whether s is one of the known intent categories.
func IsValidIntent(s string) bool {
	for _, intent := range Intents {
		if s == intent {
			return true
		}
	}
	return false
}

// Query records a processed question together with the pipeline outcome.
type Query struct {
	ID                uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Question          string    `json:"question" gorm:"type:text;not null"`
	ReformulatedQuery string    `json:"reformulated_query" gorm:"type:text"`
	DetectedIntent    string    `json:"detected_intent" gorm:"size:32;index:idx_intent"`
	Answer            string    `json:"answer" gorm:"type:text"`
	ConfidenceScore   int       `json:"confidence_score" gorm:"index:idx_confidence"`
	SourceDocument    string    `json:"source_document" gorm:"size:255"`
	ResponseTimeMs    int64     `json:"response_time_ms" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_created_at"`
}

// TableName returns the table name for GORM.
func (q *Query) TableName() string {
	return "queries"
}

// ConfidenceLevel maps a 0-100 confidence score to a coarse label.
func ConfidenceLevel(score int) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// QueryList contains a page of query history plus pagination info.
type QueryList struct {
	TotalCount int64    `json:"totalCount"`
	Items      []*Query `json:"items"`
}

// QueryFilter narrows query history listings.
type QueryFilter struct {
	Limit         int
	Offset        int
	Intent        string
	MinConfidence *int
	MaxConfidence *int
}

// ConfidenceDistribution buckets query counts by confidence level.
type ConfidenceDistribution struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
}

// QueryStats aggregates history for the dashboard.
type QueryStats struct {
	TotalQueries           int64                  `json:"total_queries"`
	AvgConfidence          float64                `json:"avg_confidence"`
	AvgResponseTimeMs      float64                `json:"avg_response_time_ms"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidence_distribution"`
	IntentDistribution     map[string]int64       `json:"intent_distribution"`
	QueriesPerDay          map[string]int64       `json:"queries_per_day"`
}
