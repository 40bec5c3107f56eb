// Package service 实现分块存储流水线：上传、下载、配额、文件夹与回收站.
package service

import (
	"context"
	"errors"

	"github.com/khaznati/chunkvault/pkg/configs"
	ctxPkg "github.com/khaznati/chunkvault/pkg/context"
	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/index"
	kvc "github.com/khaznati/chunkvault/pkg/internal/storage/kv"
	mqc "github.com/khaznati/chunkvault/pkg/internal/storage/mq"
	"gorm.io/gorm"
)

// 服务层错误类型，handler 据此映射 HTTP 状态码.
var (
	// ErrNotFound 文件、文件夹或用户不存在（或对请求者不可见）.
	ErrNotFound = errors.New("service: not found")
	// ErrConflict 命名冲突或非法的结构变更（如文件夹环）.
	ErrConflict = errors.New("service: conflict")
	// ErrQuotaExceeded 上传会超出用户配额.
	ErrQuotaExceeded = errors.New("service: storage quota exceeded")
	// ErrIncomplete 文件缺少分块，无法完整重建.
	ErrIncomplete = errors.New("service: file has missing chunks")
	// ErrSessionNotFound 上传会话不存在或已过期.
	ErrSessionNotFound = errors.New("service: upload session not found or expired")
	// ErrChecksumMismatch 分块内容与登记的校验和不符.
	ErrChecksumMismatch = errors.New("service: chunk checksum mismatch")
)

// FileService 聚合分块流水线的全部依赖.
type FileService struct {
	db      *gorm.DB
	kv      kvc.KVStore
	mq      *mqc.Client
	backend backend.ObjectBackend
	index   *index.Index
	cfg     configs.StorageConfig
}

// NewFileService 从 context 取出存储管理器构造服务.
func NewFileService(c context.Context) *FileService {
	mgr := ctxPkg.GetManager(c)
	if mgr == nil {
		return nil
	}

	var kvStore kvc.KVStore
	if mgr.KV != nil {
		kvStore = mgr.KV.KVStore
	}

	db := mgr.GetDBClient().GetDB()

	return &FileService{
		db:      db,
		kv:      kvStore,
		mq:      mgr.GetMQClient(),
		backend: mgr.GetBackend(),
		index:   index.New(db),
		cfg:     configs.GetConfig().Storage,
	}
}
