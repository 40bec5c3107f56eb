// Package context 拓展上下文功能，将存储管理器等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/storage"
	dbc "github.com/khaznati/chunkvault/pkg/internal/storage/db"
	kvc "github.com/khaznati/chunkvault/pkg/internal/storage/kv"
	mqc "github.com/khaznati/chunkvault/pkg/internal/storage/mq"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return storage.WithManager(ctx, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	return storage.GetManagerFromContext(ctx)
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetBackend 从 context 中获取对象后端.
func GetBackend(ctx context.Context) backend.ObjectBackend {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetBackend()
	}

	return nil
}
