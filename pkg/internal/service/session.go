package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	kvc "github.com/khaznati/chunkvault/pkg/internal/storage/kv"
)

// uploadSession 一次进行中上传的状态，存在 KV 里并带 TTL.
// 提交元数据之前数据库里没有任何痕迹.
type uploadSession struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Name      string    `json:"name"`
	FolderID  *uint     `json:"folder_id,omitempty"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type,omitempty"`
	ChunkSize int64     `json:"chunk_size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(id string) string {
	return "upload:" + id
}

// saveSession 写入会话，TTL 到期后自动失效.
func (fs *FileService) saveSession(ctx context.Context, s *uploadSession) error {
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := fs.kv.Set(ctx, sessionKey(s.ID), data, fs.cfg.SessionTTL()); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}

// loadSession 取出会话，不存在或过期返回 ErrSessionNotFound.
func (fs *FileService) loadSession(ctx context.Context, id string) (*uploadSession, error) {
	data, err := fs.kv.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, kvc.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}

		return nil, fmt.Errorf("load session: %w", err)
	}

	var s uploadSession
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &s, nil
}

// dropSession 清除会话，尽力而为.
func (fs *FileService) dropSession(ctx context.Context, id string) {
	_ = fs.kv.Delete(ctx, sessionKey(id))
}
