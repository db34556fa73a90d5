package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/bankdesk/internal/model"
)

type usage struct {
	db *gorm.DB
}

func newUsage(db *gorm.DB) *usage {
	return &usage{db}
}

// RecordUse bumps the usage counter for a document. The "none" placeholder
// used when no source backed an answer is never recorded.
func (u *usage) RecordUse(ctx context.Context, documentName string) error {
	if documentName == "" || documentName == "none" {
		return nil
	}

	now := time.Now().UTC()
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.DocumentUsage
		err := tx.Where("document_name = ?", documentName).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.DocumentUsage{
				DocumentName: documentName,
				UsageCount:   1,
				LastUsed:     &now,
			}).Error
		}
		if err != nil {
			return err
		}

		row.UsageCount++
		row.LastUsed = &now
		return tx.Save(&row).Error
	})
}

// List returns usage rows ordered by usage count, most used first.
func (u *usage) List(ctx context.Context, limit int) ([]*model.DocumentUsage, error) {
	var rows []*model.DocumentUsage
	if err := u.db.WithContext(ctx).Order("usage_count DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Get retrieves the usage row for a single document.
func (u *usage) Get(ctx context.Context, documentName string) (*model.DocumentUsage, error) {
	var row model.DocumentUsage
	if err := u.db.WithContext(ctx).Where("document_name = ?", documentName).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
