package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/model"
	"github.com/khaznati/chunkvault/pkg/internal/types"
	nlog "github.com/khaznati/chunkvault/pkg/log"
	"github.com/khaznati/chunkvault/pkg/queue"
)

// TrashFile 把文件移入回收站.
// 只翻转元数据，分块留在后端，配额占用不变，恢复因此是瞬时的.
func (fs *FileService) TrashFile(ctx context.Context, userName, fileID string) error {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return err
	}

	if file.IsTrashed {
		return ErrNotFound
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"is_trashed":         true,
		"trashed_at":         now,
		"original_folder_id": file.FolderID,
		"folder_id":          nil,
	}

	if err := fs.db.WithContext(ctx).Model(file).Updates(updates).Error; err != nil {
		return fmt.Errorf("trash file: %w", err)
	}

	fs.publishFileEvent(queue.TopicFileTrashed, file)

	return nil
}

// RestoreFile 把文件移出回收站，放回原目录.
// 原目录已被删除或原位置出现重名文件时回到根目录.
func (fs *FileService) RestoreFile(ctx context.Context, userName, fileID string) (*types.FileInfo, error) {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return nil, err
	}

	if !file.IsTrashed {
		return nil, ErrNotFound
	}

	target := file.OriginalFolderID
	if target != nil {
		if _, err := fs.getFolder(ctx, userName, *target); err != nil {
			target = nil
		}
	}

	if err := fs.checkNameFree(ctx, userName, target, file.Name); err != nil {
		target = nil

		if err := fs.checkNameFree(ctx, userName, nil, file.Name); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{
		"is_trashed":         false,
		"trashed_at":         nil,
		"original_folder_id": nil,
		"folder_id":          target,
	}

	if err := fs.db.WithContext(ctx).Model(file).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("restore file: %w", err)
	}

	file.IsTrashed = false
	file.TrashedAt = nil
	file.FolderID = target
	file.OriginalFolderID = nil

	fs.publishFileEvent(queue.TopicFileRestored, file)

	info := fileInfo(file)

	return &info, nil
}

// ListTrash 列出回收站里的文件.
func (fs *FileService) ListTrash(ctx context.Context, userName string) ([]types.FileInfo, error) {
	var files []model.File

	err := fs.db.WithContext(ctx).
		Where("user_id = ? AND is_trashed = ?", userName, true).
		Order("trashed_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	out := make([]types.FileInfo, 0, len(files))
	for i := range files {
		out = append(out, fileInfo(&files[i]))
	}

	return out, nil
}

// DeletePermanently 彻底删除一个文件：后端分块、索引、元数据、配额占用.
// 每个分块的删除独立尝试，个别失败不阻止其余分块和元数据清理，
// 失败数通过事件上报，留给后台任务兜底.
func (fs *FileService) DeletePermanently(ctx context.Context, userName, fileID string) error {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return err
	}

	recs, err := fs.index.ListOrdered(ctx, file.ID)
	if err != nil {
		return err
	}

	failed := 0

	for _, rec := range recs {
		opCtx, cancel := context.WithTimeout(ctx, fs.cfg.GetChunkOpTimeout())
		err := fs.backend.Delete(opCtx, backend.Locator(rec.Locator))

		cancel()

		if err != nil {
			failed++

			nlog.Logger().Warn().
				Err(err).
				Str("file", file.ID).
				Int("seq", rec.Seq).
				Msg("chunk delete failed, locator orphaned")
		}
	}

	err = fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", file.ID).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete chunk index: %w", err)
		}

		if err := tx.Unscoped().Delete(file).Error; err != nil {
			return fmt.Errorf("delete file row: %w", err)
		}

		return releaseUsage(tx, userName, file.Size)
	})
	if err != nil {
		return err
	}

	fs.publishFileDeleted(file, failed)

	return nil
}

// EmptyTrash 清空回收站，单个文件失败不影响其余文件.
func (fs *FileService) EmptyTrash(ctx context.Context, userName string) (*types.PurgeResult, error) {
	files, err := fs.ListTrash(ctx, userName)
	if err != nil {
		return nil, err
	}

	result := &types.PurgeResult{}

	for _, f := range files {
		if err := fs.DeletePermanently(ctx, userName, f.ID); err != nil {
			result.Failed++

			nlog.Logger().Warn().Err(err).Str("file", f.ID).Msg("empty trash: delete failed")

			continue
		}

		result.Deleted++
	}

	fs.publishTrashPurged(userName, result)

	return result, nil
}

// PurgeExpired 删除在指定时刻之前进入回收站的所有文件，跨所有用户.
// 由定时任务调用，实现回收站的自动过期.
func (fs *FileService) PurgeExpired(ctx context.Context, before time.Time) (*types.PurgeResult, error) {
	var files []model.File

	err := fs.db.WithContext(ctx).
		Where("is_trashed = ? AND trashed_at < ?", true, before).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list expired trash: %w", err)
	}

	result := &types.PurgeResult{}

	for i := range files {
		if err := fs.DeletePermanently(ctx, files[i].UserID, files[i].ID); err != nil {
			result.Failed++

			continue
		}

		result.Deleted++
	}

	if result.Deleted > 0 || result.Failed > 0 {
		nlog.Logger().Info().
			Int("deleted", result.Deleted).
			Int("failed", result.Failed).
			Time("before", before).
			Msg("trash purge finished")

		fs.publishTrashPurged("", result)
	}

	return result, nil
}

// publishFileEvent 发布只带文件引用的生命周期事件.
func (fs *FileService) publishFileEvent(topic string, file *model.File) {
	if fs.mq == nil {
		return
	}

	ref := queue.FileRef{
		ID:       file.ID,
		User:     file.UserID,
		Name:     file.Name,
		FolderID: file.FolderID,
		Size:     file.Size,
		MimeType: file.MimeType,
		Checksum: file.Checksum,
	}

	var (
		msg *message.Message
		err error
	)

	switch topic {
	case queue.TopicFileTrashed:
		payload := queue.FileTrashedPayload{File: ref, TrashedAt: time.Now().UTC()}
		msg, err = queue.NewWatermillMessage(topic, payload, queue.WithProducer("chunkvault"))
	case queue.TopicFileRestored:
		payload := queue.FileRestoredPayload{File: ref, FolderID: file.FolderID}
		msg, err = queue.NewWatermillMessage(topic, payload, queue.WithProducer("chunkvault"))
	default:
		return
	}

	if err != nil {
		return
	}

	if err := fs.mq.Publish(context.Background(), topic, msg); err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Str("file", file.ID).Msg("publish lifecycle event failed")
	}
}

// publishFileDeleted 发布永久删除事件，带上清理失败的分块数.
func (fs *FileService) publishFileDeleted(file *model.File, failedChunks int) {
	if fs.mq == nil {
		return
	}

	payload := queue.FileDeletedPayload{
		File: queue.FileRef{
			ID:       file.ID,
			User:     file.UserID,
			Name:     file.Name,
			Size:     file.Size,
			MimeType: file.MimeType,
			Checksum: file.Checksum,
		},
		FailedChunkDeletes: failedChunks,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFileDeleted, payload, queue.WithProducer("chunkvault"))
	if err != nil {
		return
	}

	_ = fs.mq.Publish(context.Background(), queue.TopicFileDeleted, msg)
}

// publishTrashPurged 发布回收站清理结果事件.
func (fs *FileService) publishTrashPurged(user string, result *types.PurgeResult) {
	if fs.mq == nil {
		return
	}

	payload := queue.TrashPurgedPayload{
		User:    user,
		Deleted: result.Deleted,
		Failed:  result.Failed,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTrashPurged, payload, queue.WithProducer("chunkvault"))
	if err != nil {
		return
	}

	_ = fs.mq.Publish(context.Background(), queue.TopicTrashPurged, msg)
}
