package model

import (
	"time"

	"gorm.io/gorm"
)

// FileStatus 文件生命周期状态.
type FileStatus string

const (
	// FileStatusPending 上传进行中，文件对列表/下载不可见.
	FileStatusPending FileStatus = "pending"
	// FileStatusCompleted 所有分块已落盘且元数据已提交.
	FileStatusCompleted FileStatus = "completed"
)

// File 文件模型，一个文件由若干顺序分块组成.
type File struct {
	// ULID，同时作为上传会话关联键
	ID string `gorm:"primaryKey;size:26" json:"id"`
	// 用户标识，和文件夹、文件名一起决定命名空间
	UserID   string     `gorm:"size:255;index"          json:"user_id"`
	FolderID *uint      `gorm:"index"                   json:"folder_id,omitempty"`
	Name     string     `gorm:"size:512;index"          json:"name"`
	Size     int64      `gorm:"index"                   json:"size"`
	MimeType string     `gorm:"size:255"                json:"mime_type"`
	Status   FileStatus `gorm:"size:16;index"           json:"status"`
	// 整文件 xxhash64 校验和（十六进制）
	Checksum   string `gorm:"size:16" json:"checksum"`
	ChunkCount int    `json:"chunk_count"`
	// 回收站：软状态，分块仍留在后端
	IsTrashed bool       `gorm:"index" json:"is_trashed"`
	TrashedAt *time.Time `gorm:"index" json:"trashed_at,omitempty"`
	// 移入回收站前所在的文件夹，恢复时写回
	OriginalFolderID *uint `json:"original_folder_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Chunk 分块记录：文件内容在对象后端的一个片段.
// (FileID, Seq) 唯一，Seq 从 0 开始连续递增.
type Chunk struct {
	ID     uint   `gorm:"primaryKey"                                json:"id"`
	FileID string `gorm:"size:26;index:idx_file_seq,unique;index"   json:"file_id"`
	Seq    int    `gorm:"index:idx_file_seq,unique"                 json:"seq"`
	// 后端定位符：S3 为对象键，Telegram 为消息ID
	Locator string `gorm:"size:1024" json:"locator"`
	// 写入该分块时使用的后端名，混合部署时用于按块路由
	Backend string `gorm:"size:32"  json:"backend"`
	Size    int64  `json:"size"`
	// 分块 xxhash64 校验和（十六进制）
	Checksum string `gorm:"size:16" json:"checksum"`

	CreatedAt time.Time `json:"created_at"`
}
