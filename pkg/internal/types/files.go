package types

import "time"

// InitUploadRequest 开始一次上传.
type InitUploadRequest struct {
	Name     string `json:"name"      rule:"filename"`
	FolderID *uint  `json:"folder_id"`
	Size     int64  `json:"size"      rule:"gte=0"`
	MimeType string `json:"mime_type" rule:"max=255"`
}

// UploadSessionInfo 上传会话凭据，客户端随后用 SessionID 推送内容.
type UploadSessionInfo struct {
	SessionID  string    `json:"session_id"`
	ChunkSize  int64     `json:"chunk_size"`
	ChunkCount int       `json:"chunk_count"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// FileInfo 文件元数据视图.
type FileInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	FolderID   *uint      `json:"folder_id,omitempty"`
	Size       int64      `json:"size"`
	MimeType   string     `json:"mime_type,omitempty"`
	Checksum   string     `json:"checksum,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	IsTrashed  bool       `json:"is_trashed,omitempty"`
	TrashedAt  *time.Time `json:"trashed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ListFilesResponse 文件列表.
type ListFilesResponse struct {
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Files []FileInfo `json:"files"`
}

// RenameFileRequest 文件重命名.
type RenameFileRequest struct {
	Name string `json:"name" rule:"filename"`
}

// MoveFileRequest 移动文件到另一个文件夹，nil 表示根目录.
type MoveFileRequest struct {
	FolderID *uint `json:"folder_id"`
}

// CreateFolderRequest 新建文件夹.
type CreateFolderRequest struct {
	Name     string `json:"name"      rule:"foldername"`
	ParentID *uint  `json:"parent_id"`
}

// RenameFolderRequest 文件夹重命名.
type RenameFolderRequest struct {
	Name string `json:"name" rule:"foldername"`
}

// MoveFolderRequest 移动文件夹，nil 表示根目录.
type MoveFolderRequest struct {
	ParentID *uint `json:"parent_id"`
}

// FolderInfo 文件夹元数据视图.
type FolderInfo struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FolderContents 一个文件夹的直接子项.
type FolderContents struct {
	Folders []FolderInfo `json:"folders"`
	Files   []FileInfo   `json:"files"`
}

// UsageInfo 配额与用量.
type UsageInfo struct {
	Used  int64 `json:"used"`
	Quota int64 `json:"quota"` // 0 表示不限制
}

// PurgeResult 一次回收站清理的结果.
type PurgeResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
