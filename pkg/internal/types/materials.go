// Package types 定义 HTTP 请求与响应结构.
package types

// ProcessMaterialRequest 提交处理请求.
type ProcessMaterialRequest struct {
	MaterialID string `json:"materialId" rule:"required,max=64"`
}

// ProcessMaterialResponse 已提交，不代表处理完成.
type ProcessMaterialResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MaterialURLResponse 限时下载链接.
type MaterialURLResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // 秒
}

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}
