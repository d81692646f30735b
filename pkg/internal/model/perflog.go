package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"
)

// PerformanceLog 请求性能记录，只追加不修改.
type PerformanceLog struct {
	ID         string    `gorm:"primaryKey;size:26"  json:"id"`
	Method     string    `gorm:"size:16"             json:"method"`
	Route      string    `gorm:"size:512;index"      json:"route"`
	StatusCode int       `gorm:"index"               json:"status_code"`
	DurationMS int64     `json:"duration_ms"`
	UserID     string    `gorm:"size:64"             json:"user_id"`
	IP         string    `gorm:"size:64"             json:"ip"`
	UserAgent  string    `gorm:"size:512"            json:"user_agent"`
	CreatedAt  time.Time `gorm:"index"               json:"created_at"`
}

// TableName 指定表名.
func (PerformanceLog) TableName() string { return "performance_logs" }

// BeforeCreate 生成按时间排序的 ULID.
func (p *PerformanceLog) BeforeCreate(_ *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	if p.ID == "" {
		id, err := ulid.New(ulid.Timestamp(p.CreatedAt), rand.Reader)
		if err != nil {
			return err
		}

		p.ID = id.String()
	}

	return nil
}

// BeforeUpdate 拒绝修改已写入的记录.
func (p *PerformanceLog) BeforeUpdate(_ *gorm.DB) error {
	return ErrImmutable
}
