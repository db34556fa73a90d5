// Package store provides the persistence layer for query history and
// document usage statistics.
package store

import (
	"context"

	"github.com/kart-io/bankdesk/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Queries() QueryStore
	DocumentUsage() UsageStore
	Close() error
}

// QueryStore defines the query history storage interface.
type QueryStore interface {
	Create(ctx context.Context, query *model.Query) error
	Get(ctx context.Context, id uint64) (*model.Query, error)
	List(ctx context.Context, filter *model.QueryFilter) (*model.QueryList, error)
	CountBelowConfidence(ctx context.Context, threshold int) (int64, error)
	Stats(ctx context.Context) (*model.QueryStats, error)
	ClearAll(ctx context.Context) (int64, error)
}

// UsageStore defines the document usage storage interface.
type UsageStore interface {
	RecordUse(ctx context.Context, documentName string) error
	List(ctx context.Context, limit int) ([]*model.DocumentUsage, error)
	Get(ctx context.Context, documentName string) (*model.DocumentUsage, error)
}
