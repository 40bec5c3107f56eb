// Package storage 聚合持久化资源：元数据库、会话 KV、消息队列与对象后端.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	objBackend := mgr.GetBackend()
package storage

import (
	"context"
	"sync"

	"github.com/khaznati/chunkvault/pkg/configs"
	"github.com/khaznati/chunkvault/pkg/internal/backend"
	dbc "github.com/khaznati/chunkvault/pkg/internal/storage/db"
	kvc "github.com/khaznati/chunkvault/pkg/internal/storage/kv"
	mqc "github.com/khaznati/chunkvault/pkg/internal/storage/mq"
	nlog "github.com/khaznati/chunkvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB      *dbc.Client
	KV      *kvc.Client
	MQ      *mqc.Client
	Backend backend.ObjectBackend
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
// 对象后端惰性建连，这里只构造实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e
			return
		}

		m.DB = dbi

		// KV：上传会话状态
		kvi, e := kvc.NewKVClient(ctx)
		if e != nil {
			err = e
			return
		}

		m.KV = kvi

		// MQ：生命周期事件，可选
		if cfg.MQ.Enabled {
			mqi, e := mqc.New(ctx)
			if e != nil {
				err = e
				return
			}

			m.MQ = mqi
		}

		// 对象后端
		be, e := backend.New(cfg)
		if e != nil {
			err = e
			return
		}

		m.Backend = be

		mgr = m

		nlog.Logger().Info().
			Str("backend", be.Name()).
			Str("kv", cfg.KV.Type).
			Bool("mq", cfg.MQ.Enabled).
			Msg("storage manager initialized")
	})

	return mgr, err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，未启用时为 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetBackend 获取对象后端.
func (m *Manager) GetBackend() backend.ObjectBackend {
	return m.Backend
}

// Close 释放全部存储资源.
func (m *Manager) Close() error {
	var err error

	if m.Backend != nil {
		if e := m.Backend.Close(); e != nil {
			err = e
		}
	}

	if m.KV != nil {
		if e := m.KV.Close(); e != nil {
			err = e
		}
	}

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	if m.DB != nil {
		if sqlDB, e := m.DB.DB.DB(); e == nil {
			if e := sqlDB.Close(); e != nil {
				err = e
			}
		}
	}

	return err
}
