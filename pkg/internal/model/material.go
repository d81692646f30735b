package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaterialStatus 资料处理状态.
type MaterialStatus string

const (
	StatusPending    MaterialStatus = "pending"
	StatusProcessing MaterialStatus = "processing"
	StatusCompleted  MaterialStatus = "completed"
	StatusFailed     MaterialStatus = "failed"
)

// Material 上传的课程资料及其派生产物.
// status 只由处理流水线和对账任务修改；updated_at 是判断是否卡住的依据.
type Material struct {
	ID          string         `gorm:"primaryKey;size:36"                                                       json:"id"`
	Title       string         `gorm:"size:512"                                                                 json:"title"`
	FileURL     string         `gorm:"column:file_url;size:1024;not null"                                       json:"file_url"`
	FileType    string         `gorm:"size:255"                                                                 json:"file_type"`
	FileSize    int64          `gorm:"not null;default:0"                                                       json:"file_size"`
	Status      MaterialStatus `gorm:"size:16;not null;default:pending;index:idx_material_status_updated,priority:1" json:"status"`
	Description string         `gorm:"type:text"                                                                json:"description"`
	// 以下字段由流水线在成功时写入
	Summary           *string `gorm:"type:text"                          json:"summary"`
	SimplifiedContent *string `gorm:"column:simplified_content;type:text" json:"simplified_content"`
	AudioURL          *string `gorm:"column:audio_url;size:1024"         json:"audio_url"`
	UploadedBy        string  `gorm:"size:64;index"                      json:"uploaded_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index:idx_material_status_updated,priority:2" json:"updated_at"`
}

// TableName 指定表名.
func (Material) TableName() string { return "materials" }

// BeforeCreate 未指定 id 时生成 uuid.
func (m *Material) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if m.Status == "" {
		m.Status = StatusPending
	}

	return nil
}

// IsTerminal 是否处于终态.
func (s MaterialStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
