// Package storage 聚合元数据库、对象存储、任务队列与 KV，并提供资料存储网关.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
//	gw := storage.NewGateway(mgr.DB, mgr.Blob)
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"
	dbc "github.com/yeisme/eduaccess/pkg/internal/storage/db"
	kvc "github.com/yeisme/eduaccess/pkg/internal/storage/kv"
	mqc "github.com/yeisme/eduaccess/pkg/internal/storage/mq"
	nlog "github.com/yeisme/eduaccess/pkg/log"

	// 注册对象存储后端.
	_ "github.com/yeisme/eduaccess/pkg/internal/storage/awss3"
	_ "github.com/yeisme/eduaccess/pkg/internal/storage/s3"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	Blob blob.Store
	MQ   *mqc.Client
	KV   *kvc.Client
}

// Init 按配置初始化全部存储，任一失败都会关闭已打开的资源.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	var err error

	if m.DB, err = dbc.New(ctx, &cfg.DB); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	if m.Blob, err = blob.New(ctx, &cfg.Blob); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init blob store: %w", err)
	}

	if m.MQ, err = mqc.New(ctx, &cfg.MQ); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init mq: %w", err)
	}

	if m.KV, err = kvc.NewKVClient(ctx, &cfg.KV); err != nil {
		_ = m.Close()

		return nil, fmt.Errorf("init kv: %w", err)
	}

	nlog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("blob", string(cfg.Blob.Type)).
		Str("mq", string(cfg.MQ.Type)).
		Str("kv", string(cfg.KV.Type)).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取对象存储.
func (m *Manager) GetBlobStore() blob.Store {
	return m.Blob
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
