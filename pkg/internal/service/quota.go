package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/khaznati/chunkvault/pkg/internal/model"
)

// ensureUser 返回用户记录，首次出现的用户按默认配额自动建档.
func (fs *FileService) ensureUser(ctx context.Context, name string) (*model.User, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: user required", ErrNotFound)
	}

	user := model.User{
		Name:         name,
		StorageQuota: fs.cfg.DefaultQuotaBytes(),
	}

	// 已存在时不动现有配额
	err := fs.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("provision user %s: %w", name, err)
	}

	if err := fs.db.WithContext(ctx).First(&user, "name = ?", name).Error; err != nil {
		return nil, fmt.Errorf("load user %s: %w", name, err)
	}

	return &user, nil
}

// GetUsage 返回用户的已用字节数和配额.
func (fs *FileService) GetUsage(ctx context.Context, name string) (used, quota int64, err error) {
	user, err := fs.ensureUser(ctx, name)
	if err != nil {
		return 0, 0, err
	}

	return user.StorageUsed, user.StorageQuota, nil
}

// checkQuota 校验再写入 size 字节是否超出配额，0 配额表示不限制.
func (fs *FileService) checkQuota(user *model.User, size int64) error {
	if user.StorageQuota <= 0 {
		return nil
	}

	if user.StorageUsed+size > user.StorageQuota {
		return fmt.Errorf("%w: used %d + %d exceeds quota %d",
			ErrQuotaExceeded, user.StorageUsed, size, user.StorageQuota)
	}

	return nil
}

// reserveUsage 在事务内原子占用配额，竞争下也不会超卖.
// 返回 ErrQuotaExceeded 表示占用失败.
func reserveUsage(tx *gorm.DB, name string, size int64) error {
	res := tx.Model(&model.User{}).
		Where("name = ? AND (storage_quota <= 0 OR storage_used + ? <= storage_quota)", name, size).
		Update("storage_used", gorm.Expr("storage_used + ?", size))
	if res.Error != nil {
		return fmt.Errorf("reserve usage for %s: %w", name, res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrQuotaExceeded
	}

	return nil
}

// releaseUsage 归还已占用的字节数，不会减到负数.
func releaseUsage(tx *gorm.DB, name string, size int64) error {
	res := tx.Model(&model.User{}).
		Where("name = ?", name).
		Update("storage_used", gorm.Expr(
			"CASE WHEN storage_used >= ? THEN storage_used - ? ELSE 0 END", size, size))
	if res.Error != nil {
		return fmt.Errorf("release usage for %s: %w", name, res.Error)
	}

	return nil
}
