package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/eduaccess/pkg/configs"
)

type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker 为提供方增加熔断：失败比例达到阈值后短时间内直接返回 ErrProviderUnavailable.
// 调用方取消的请求不计入失败.
func WithBreaker(p Provider, cfg configs.CircuitBreakerConfig) Provider {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = configs.DefaultCBMinRequests
	}

	failureRate := cfg.FailureRate
	if failureRate <= 0 {
		failureRate = configs.DefaultCBFailureRate
	}

	settings := gobreaker.Settings{
		Name:        "ai-" + p.Name(),
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRate
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &breakerProvider{next: p, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerProvider) Name() string { return b.next.Name() }

func (b *breakerProvider) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Complete(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, b.next.Name(), err)
	}

	if err != nil {
		return "", err
	}

	s, _ := out.(string)

	return s, nil
}
