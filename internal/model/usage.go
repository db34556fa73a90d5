package model

import (
	"time"
)

// DocumentUsage tracks how often a knowledge base document backed an answer.
type DocumentUsage struct {
	ID           uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentName string     `json:"document_name" gorm:"size:255;not null;uniqueIndex:uk_document_name"`
	UsageCount   int64      `json:"usage_count" gorm:"default:0"`
	LastUsed     *time.Time `json:"last_used"`
}

// TableName returns the table name for GORM.
func (d *DocumentUsage) TableName() string {
	return "document_usage"
}

// DocumentInfo pairs a document name with its usage stats for API responses.
type DocumentInfo struct {
	Name       string     `json:"name"`
	UsageCount int64      `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}
