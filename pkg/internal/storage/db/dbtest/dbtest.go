// Package dbtest 提供基于内存 SQLite 的测试数据库.
package dbtest

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm/logger"

	"github.com/yeisme/eduaccess/pkg/internal/storage/db"
)

// Open 打开已迁移的内存数据库，测试结束时自动关闭.
// 单连接保证同一个测试内看到同一个内存库.
func Open(t testing.TB) *db.Client {
	t.Helper()

	client, err := db.Open(context.Background(), sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := client.DB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := client.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}
