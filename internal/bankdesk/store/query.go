package store

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/bankdesk/internal/model"
)

type queries struct {
	db *gorm.DB
}

func newQueries(db *gorm.DB) *queries {
	return &queries{db}
}

// Create persists a processed query.
func (q *queries) Create(ctx context.Context, query *model.Query) error {
	return q.db.WithContext(ctx).Create(query).Error
}

// Get retrieves a query by ID.
func (q *queries) Get(ctx context.Context, id uint64) (*model.Query, error) {
	var query model.Query
	if err := q.db.WithContext(ctx).Where("id = ?", id).First(&query).Error; err != nil {
		return nil, err
	}
	return &query, nil
}

// List returns a page of query history, newest first. TotalCount is the
// overall number of stored queries, not the filtered count.
func (q *queries) List(ctx context.Context, filter *model.QueryFilter) (*model.QueryList, error) {
	if filter == nil {
		filter = &model.QueryFilter{Limit: 50}
	}

	var total int64
	if err := q.db.WithContext(ctx).Model(&model.Query{}).Count(&total).Error; err != nil {
		return nil, err
	}

	tx := q.db.WithContext(ctx).Model(&model.Query{})
	if filter.Intent != "" {
		tx = tx.Where("detected_intent = ?", filter.Intent)
	}
	if filter.MinConfidence != nil {
		tx = tx.Where("confidence_score >= ?", *filter.MinConfidence)
	}
	if filter.MaxConfidence != nil {
		tx = tx.Where("confidence_score <= ?", *filter.MaxConfidence)
	}

	var items []*model.Query
	if err := tx.Order("created_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&items).Error; err != nil {
		return nil, err
	}

	return &model.QueryList{TotalCount: total, Items: items}, nil
}

// CountBelowConfidence counts queries at or below the confidence threshold.
func (q *queries) CountBelowConfidence(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&model.Query{}).
		Where("confidence_score <= ?", threshold).
		Count(&count).Error
	return count, err
}

// ClearAll deletes every stored query and returns the number of rows removed.
func (q *queries) ClearAll(ctx context.Context) (int64, error) {
	result := q.db.WithContext(ctx).Where("1 = 1").Delete(&model.Query{})
	return result.RowsAffected, result.Error
}

// Stats aggregates query history for the dashboard.
func (q *queries) Stats(ctx context.Context) (*model.QueryStats, error) {
	stats := &model.QueryStats{
		IntentDistribution: make(map[string]int64),
		QueriesPerDay:      make(map[string]int64),
	}

	db := q.db.WithContext(ctx).Model(&model.Query{})

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalQueries).Error; err != nil {
		return nil, err
	}

	var averages struct {
		AvgConfidence   *float64
		AvgResponseTime *float64
	}
	err := db.Session(&gorm.Session{}).
		Select("AVG(confidence_score) AS avg_confidence, AVG(response_time_ms) AS avg_response_time").
		Scan(&averages).Error
	if err != nil {
		return nil, err
	}
	if averages.AvgConfidence != nil {
		stats.AvgConfidence = round1(*averages.AvgConfidence)
	}
	if averages.AvgResponseTime != nil {
		stats.AvgResponseTimeMs = round1(*averages.AvgResponseTime)
	}

	type bucketRow struct {
		Bucket string
		Count  int64
	}
	var buckets []bucketRow
	err = db.Session(&gorm.Session{}).
		Select(`CASE
			WHEN confidence_score >= 70 THEN 'high'
			WHEN confidence_score >= 40 THEN 'medium'
			ELSE 'low'
		END AS bucket, COUNT(id) AS count`).
		Group("bucket").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		switch b.Bucket {
		case "high":
			stats.ConfidenceDistribution.High = b.Count
		case "medium":
			stats.ConfidenceDistribution.Medium = b.Count
		case "low":
			stats.ConfidenceDistribution.Low = b.Count
		}
	}

	type intentRow struct {
		DetectedIntent string
		Count          int64
	}
	var intents []intentRow
	err = db.Session(&gorm.Session{}).
		Select("detected_intent, COUNT(id) AS count").
		Group("detected_intent").
		Scan(&intents).Error
	if err != nil {
		return nil, err
	}
	for _, row := range intents {
		stats.IntentDistribution[row.DetectedIntent] = row.Count
	}

	type dayRow struct {
		Day   string
		Count int64
	}
	var days []dayRow
	sevenDaysAgo := time.Now().UTC().AddDate(0, 0, -7)
	err = db.Session(&gorm.Session{}).
		Select("date(created_at) AS day, COUNT(id) AS count").
		Where("created_at >= ?", sevenDaysAgo).
		Group("date(created_at)").
		Scan(&days).Error
	if err != nil {
		return nil, err
	}
	for _, row := range days {
		stats.QueriesPerDay[row.Day] = row.Count
	}

	return stats, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
