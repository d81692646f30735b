// Package model 定义持久化到元数据库的 GORM 模型.
package model

import (
	"errors"

	"gorm.io/gorm"
)

// ErrImmutable 试图修改只追加的记录.
var ErrImmutable = errors.New("record is append-only")

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{
		&Material{},
		&UserProfile{},
		&PerformanceLog{},
	}
}

// AutoMigrate 迁移全部表结构.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
