package model

import (
	"time"

	"gorm.io/gorm"
)

// Folder 文件夹模型，树形结构，根目录的 ParentID 为 NULL.
// 同一父目录下名称唯一；NULL parent 的唯一性由 service 层在创建前检查，
// 因为多数数据库的唯一索引不约束 NULL 列.
type Folder struct {
	ID       uint   `gorm:"primaryKey"                                  json:"id"`
	UserID   string `gorm:"size:255;index:idx_folder_ident,unique;index" json:"user_id"`
	ParentID *uint  `gorm:"index:idx_folder_ident,unique;index"          json:"parent_id,omitempty"`
	Name     string `gorm:"size:255;index:idx_folder_ident,unique"       json:"name"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// User 用户模型，记录配额与用量.
// 首次出现的用户按默认配额自动建档.
type User struct {
	// 用户标识，来自请求头，系统内不做认证
	Name string `gorm:"primaryKey;size:255" json:"name"`
	// 配额（字节），0 表示不限制
	StorageQuota int64 `json:"storage_quota"`
	// 已用字节数，随上传/永久删除原子增减
	StorageUsed int64 `json:"storage_used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
