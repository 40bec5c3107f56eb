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

// parentScope 生成父目录定位条件，根目录以 NULL 表示.
func parentScope(q *gorm.DB, parentID *uint) *gorm.DB {
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}

	return q.Where("parent_id = ?", *parentID)
}

// getFolder 取归属当前用户的文件夹.
func (fs *FileService) getFolder(ctx context.Context, userName string, folderID uint) (*model.Folder, error) {
	var folder model.Folder

	err := fs.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", folderID, userName).
		First(&folder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("query folder: %w", err)
	}

	return &folder, nil
}

// checkFolderNameFree 同一父目录下文件夹不允许重名.
// 数据库唯一索引对 NULL 父目录不生效，这里统一在应用层把关.
func (fs *FileService) checkFolderNameFree(ctx context.Context, userName string, parentID *uint, name string) error {
	var count int64

	q := fs.db.WithContext(ctx).Model(&model.Folder{}).
		Where("user_id = ? AND name = ?", userName, name)

	if err := parentScope(q, parentID).Count(&count).Error; err != nil {
		return fmt.Errorf("check folder name: %w", err)
	}

	if count > 0 {
		return fmt.Errorf("%w: folder %q already exists", ErrConflict, name)
	}

	return nil
}

func folderInfo(f *model.Folder) types.FolderInfo {
	return types.FolderInfo{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		CreatedAt: f.CreatedAt,
	}
}

// CreateFolder 在指定父目录下新建文件夹.
func (fs *FileService) CreateFolder(ctx context.Context, userName string, req *types.CreateFolderRequest) (*types.FolderInfo, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid folder request: %w", err)
	}

	if _, err := fs.ensureUser(ctx, userName); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if _, err := fs.getFolder(ctx, userName, *req.ParentID); err != nil {
			return nil, err
		}
	}

	if err := fs.checkFolderNameFree(ctx, userName, req.ParentID, req.Name); err != nil {
		return nil, err
	}

	folder := model.Folder{
		UserID:   userName,
		ParentID: req.ParentID,
		Name:     req.Name,
	}

	err := fs.db.WithContext(ctx).Create(&folder).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: folder %q already exists", ErrConflict, req.Name)
	}

	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	info := folderInfo(&folder)

	return &info, nil
}

// ListFolder 列出某目录的直接子项，folderID 为 nil 时列根目录.
func (fs *FileService) ListFolder(ctx context.Context, userName string, folderID *uint) (*types.FolderContents, error) {
	if folderID != nil {
		if _, err := fs.getFolder(ctx, userName, *folderID); err != nil {
			return nil, err
		}
	}

	var folders []model.Folder

	q := fs.db.WithContext(ctx).Where("user_id = ?", userName)
	if err := parentScope(q, folderID).Order("name ASC").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	files, err := fs.ListFiles(ctx, userName, folderID, 1, 200)
	if err != nil {
		return nil, err
	}

	contents := &types.FolderContents{
		Folders: make([]types.FolderInfo, 0, len(folders)),
		Files:   files.Files,
	}
	for i := range folders {
		contents.Folders = append(contents.Folders, folderInfo(&folders[i]))
	}

	return contents, nil
}

// RenameFolder 重命名文件夹.
func (fs *FileService) RenameFolder(ctx context.Context, userName string, folderID uint, req *types.RenameFolderRequest) (*types.FolderInfo, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid rename request: %w", err)
	}

	folder, err := fs.getFolder(ctx, userName, folderID)
	if err != nil {
		return nil, err
	}

	if folder.Name != req.Name {
		if err := fs.checkFolderNameFree(ctx, userName, folder.ParentID, req.Name); err != nil {
			return nil, err
		}

		folder.Name = req.Name
		if err := fs.db.WithContext(ctx).Model(folder).Update("name", req.Name).Error; err != nil {
			return nil, fmt.Errorf("rename folder: %w", err)
		}
	}

	info := folderInfo(folder)

	return &info, nil
}

// MoveFolder 移动文件夹，拒绝把目录移进自己的子树.
func (fs *FileService) MoveFolder(ctx context.Context, userName string, folderID uint, req *types.MoveFolderRequest) (*types.FolderInfo, error) {
	folder, err := fs.getFolder(ctx, userName, folderID)
	if err != nil {
		return nil, err
	}

	// 原地移动是空操作，不能撞上自己的名字
	if sameLocation(folder.ParentID, req.ParentID) {
		info := folderInfo(folder)

		return &info, nil
	}

	if req.ParentID != nil {
		if *req.ParentID == folderID {
			return nil, fmt.Errorf("%w: folder cannot contain itself", ErrConflict)
		}

		target, err := fs.getFolder(ctx, userName, *req.ParentID)
		if err != nil {
			return nil, err
		}

		// 沿目标的祖先链向上走，碰到自己说明成环
		for target.ParentID != nil {
			if *target.ParentID == folderID {
				return nil, fmt.Errorf("%w: move would create a cycle", ErrConflict)
			}

			target, err = fs.getFolder(ctx, userName, *target.ParentID)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := fs.checkFolderNameFree(ctx, userName, req.ParentID, folder.Name); err != nil {
		return nil, err
	}

	folder.ParentID = req.ParentID
	if err := fs.db.WithContext(ctx).Model(folder).Update("parent_id", req.ParentID).Error; err != nil {
		return nil, fmt.Errorf("move folder: %w", err)
	}

	info := folderInfo(folder)

	return &info, nil
}

// DeleteFolder 删除空文件夹，非空目录拒绝删除.
func (fs *FileService) DeleteFolder(ctx context.Context, userName string, folderID uint) error {
	folder, err := fs.getFolder(ctx, userName, folderID)
	if err != nil {
		return err
	}

	var children int64

	err = fs.db.WithContext(ctx).Model(&model.Folder{}).
		Where("user_id = ? AND parent_id = ?", userName, folderID).
		Count(&children).Error
	if err != nil {
		return fmt.Errorf("count subfolders: %w", err)
	}

	var files int64

	err = fs.db.WithContext(ctx).Model(&model.File{}).
		Where("user_id = ? AND folder_id = ?", userName, folderID).
		Count(&files).Error
	if err != nil {
		return fmt.Errorf("count files: %w", err)
	}

	if children > 0 || files > 0 {
		return fmt.Errorf("%w: folder is not empty", ErrConflict)
	}

	return fs.db.WithContext(ctx).Delete(folder).Error
}
