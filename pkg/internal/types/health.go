package types

// HealthResponse 健康检查结果.
type HealthResponse struct {
	Component string `json:"component,omitempty"`
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}
