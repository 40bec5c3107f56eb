// Package index 维护分块索引：文件ID到有序分块记录的映射，数据库为真源.
package index

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/khaznati/chunkvault/pkg/internal/model"
)

// ErrDuplicate 同一文件的同一序号被写了两次.
var ErrDuplicate = errors.New("index: duplicate chunk sequence")

// Index 基于 GORM 的分块索引仓库.
type Index struct {
	db *gorm.DB
}

// New 创建分块索引.
func New(db *gorm.DB) *Index {
	return &Index{db: db}
}

// Append 登记一个分块，(FileID, Seq) 冲突时返回 ErrDuplicate.
func (i *Index) Append(ctx context.Context, rec *model.Chunk) error {
	err := i.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: file %s seq %d", ErrDuplicate, rec.FileID, rec.Seq)
		}

		return fmt.Errorf("append chunk record: %w", err)
	}

	return nil
}

// AppendBatch 在事务里批量登记分块.
func (i *Index) AppendBatch(ctx context.Context, recs []model.Chunk) error {
	if len(recs) == 0 {
		return nil
	}

	err := i.db.WithContext(ctx).Create(&recs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}

		return fmt.Errorf("append chunk records: %w", err)
	}

	return nil
}

// ListOrdered 返回文件的全部分块记录，按 Seq 升序.
func (i *Index) ListOrdered(ctx context.Context, fileID string) ([]model.Chunk, error) {
	var recs []model.Chunk

	err := i.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list chunk records: %w", err)
	}

	return recs, nil
}

// Count 返回文件已登记的分块数.
func (i *Index) Count(ctx context.Context, fileID string) (int64, error) {
	var n int64

	err := i.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("file_id = ?", fileID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count chunk records: %w", err)
	}

	return n, nil
}

// DeleteAll 清除文件的全部分块记录.
func (i *Index) DeleteAll(ctx context.Context, fileID string) error {
	err := i.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&model.Chunk{}).Error
	if err != nil {
		return fmt.Errorf("delete chunk records: %w", err)
	}

	return nil
}
