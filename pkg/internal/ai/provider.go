// Package ai 封装生成式模型调用：提供方注册表、熔断包装、摘要服务与语音合成.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/metrics"
)

var (
	// ErrUnknownProvider 未注册的提供方.
	ErrUnknownProvider = errors.New("unknown ai provider")
	// ErrProviderUnavailable 提供方不可用（缺少凭据或熔断打开）.
	ErrProviderUnavailable = errors.New("ai provider unavailable")
)

// Provider 单轮 prompt -> 文本 的模型调用能力.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Factory 根据配置创建 Provider.
type Factory func(cfg *configs.AIConfig, client *http.Client) (Provider, error)

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// RegisterProvider 注册提供方工厂.
func RegisterProvider(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	factories[name] = f
}

// GetRegisteredProviders 返回已注册的提供方名称.
func GetRegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewProvider 按 ai.provider 创建提供方；ai.breaker 为 true 时包一层熔断.
func NewProvider(cfg *configs.AIConfig, cb configs.CircuitBreakerConfig) (Provider, error) {
	mu.RLock()
	f, ok := factories[cfg.Provider]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = configs.DefaultAITimeout
	}

	p, err := f(cfg, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	p = withMetrics(p)

	if cfg.Breaker {
		p = WithBreaker(p, cb)
	}

	return p, nil
}

type instrumented struct {
	Provider
}

func withMetrics(p Provider) Provider {
	return instrumented{Provider: p}
}

func (i instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := i.Provider.Complete(ctx, prompt)

	result := "ok"
	if err != nil {
		result = "error"
	}

	metrics.AIRequests.WithLabelValues(i.Name(), result).Inc()

	return out, err
}
