package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 课程资料领域 --------------------------

// MaterialRef 标识一份资料.
type MaterialRef struct {
	ID         string `json:"id"`
	FileURL    string `json:"file_url,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	UploadedBy string `json:"uploaded_by,omitempty"`
}

// MaterialUploadedPayload 资料上传完成.
type MaterialUploadedPayload struct {
	Material MaterialRef `json:"material"`
	Size     int64       `json:"size"`
}

// ProcessRequestedPayload 请求处理资料.
type ProcessRequestedPayload struct {
	MaterialID  string    `json:"material_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// MaterialProcessedPayload 处理完成.
type MaterialProcessedPayload struct {
	Material   MaterialRef `json:"material"`
	HasAudio   bool        `json:"has_audio"`
	DurationMS int64       `json:"duration_ms"`
}

// MaterialFailedPayload 处理失败.
type MaterialFailedPayload struct {
	Material MaterialRef `json:"material"`
	Stage    string      `json:"stage"`
	Error    string      `json:"error"`
}

// -------------------------- 对账领域 --------------------------

// RegistrySyncedPayload 一次完整对账的结果摘要.
type RegistrySyncedPayload struct {
	UsersRepaired int   `json:"users_repaired"`
	MissingFiles  int   `json:"missing_files"`
	Cleaned       int64 `json:"cleaned"`
	Errors        int   `json:"errors"`
}
