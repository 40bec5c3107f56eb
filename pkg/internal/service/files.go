package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/khaznati/chunkvault/pkg/internal/model"
	"github.com/khaznati/chunkvault/pkg/internal/types"
	"github.com/khaznati/chunkvault/pkg/rule"
)

// sameLocation 比较两个目录引用是否指向同一位置，nil 表示根目录.
func sameLocation(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

// folderScope 生成文件夹定位条件，根目录以 NULL 表示.
func folderScope(q *gorm.DB, folderID *uint) *gorm.DB {
	if folderID == nil {
		return q.Where("folder_id IS NULL")
	}

	return q.Where("folder_id = ?", *folderID)
}

// getOwnedFile 取归属当前用户的文件，包括回收站中的.
func (fs *FileService) getOwnedFile(ctx context.Context, userName, fileID string) (*model.File, error) {
	var file model.File

	err := fs.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", fileID, userName).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("query file: %w", err)
	}

	return &file, nil
}

// checkNameFree 同一目录下可见文件不允许重名.
func (fs *FileService) checkNameFree(ctx context.Context, userName string, folderID *uint, name string) error {
	var count int64

	q := fs.db.WithContext(ctx).Model(&model.File{}).
		Where("user_id = ? AND name = ? AND is_trashed = ?", userName, name, false)

	if err := folderScope(q, folderID).Count(&count).Error; err != nil {
		return fmt.Errorf("check name: %w", err)
	}

	if count > 0 {
		return fmt.Errorf("%w: name %q already exists in folder", ErrConflict, name)
	}

	return nil
}

// fileInfo 将存储模型转为对外视图.
func fileInfo(f *model.File) types.FileInfo {
	return types.FileInfo{
		ID:         f.ID,
		Name:       f.Name,
		FolderID:   f.FolderID,
		Size:       f.Size,
		MimeType:   f.MimeType,
		Checksum:   f.Checksum,
		ChunkCount: f.ChunkCount,
		IsTrashed:  f.IsTrashed,
		TrashedAt:  f.TrashedAt,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// GetFile 返回单个文件的元数据.
func (fs *FileService) GetFile(ctx context.Context, userName, fileID string) (*types.FileInfo, error) {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return nil, err
	}

	info := fileInfo(file)

	return &info, nil
}

// ListFiles 分页列出某目录下的可见文件.
func (fs *FileService) ListFiles(ctx context.Context, userName string, folderID *uint, page, size int) (*types.ListFilesResponse, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 200 {
		size = 50
	}

	base := fs.db.WithContext(ctx).Model(&model.File{}).
		Where("user_id = ? AND is_trashed = ?", userName, false)
	base = folderScope(base, folderID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	var files []model.File

	err := base.Order("name ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	resp := &types.ListFilesResponse{
		Total: int(total),
		Page:  page,
		Size:  size,
		Files: make([]types.FileInfo, 0, len(files)),
	}
	for i := range files {
		resp.Files = append(resp.Files, fileInfo(&files[i]))
	}

	return resp, nil
}

// RenameFile 重命名可见文件，目标名在目录内必须空闲.
func (fs *FileService) RenameFile(ctx context.Context, userName, fileID string, req *types.RenameFileRequest) (*types.FileInfo, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid rename request: %w", err)
	}

	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return nil, err
	}

	if file.IsTrashed {
		return nil, ErrNotFound
	}

	if file.Name != req.Name {
		if err := fs.checkNameFree(ctx, userName, file.FolderID, req.Name); err != nil {
			return nil, err
		}

		file.Name = req.Name
		if err := fs.db.WithContext(ctx).Model(file).Update("name", req.Name).Error; err != nil {
			return nil, fmt.Errorf("rename file: %w", err)
		}
	}

	info := fileInfo(file)

	return &info, nil
}

// MoveFile 将文件移动到另一个目录（nil 为根目录）.
func (fs *FileService) MoveFile(ctx context.Context, userName, fileID string, req *types.MoveFileRequest) (*types.FileInfo, error) {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return nil, err
	}

	if file.IsTrashed {
		return nil, ErrNotFound
	}

	// 原地移动是空操作，不能撞上自己的名字
	if sameLocation(file.FolderID, req.FolderID) {
		info := fileInfo(file)

		return &info, nil
	}

	if req.FolderID != nil {
		if _, err := fs.getFolder(ctx, userName, *req.FolderID); err != nil {
			return nil, err
		}
	}

	if err := fs.checkNameFree(ctx, userName, req.FolderID, file.Name); err != nil {
		return nil, err
	}

	file.FolderID = req.FolderID
	if err := fs.db.WithContext(ctx).Model(file).Update("folder_id", req.FolderID).Error; err != nil {
		return nil, fmt.Errorf("move file: %w", err)
	}

	info := fileInfo(file)

	return &info, nil
}
