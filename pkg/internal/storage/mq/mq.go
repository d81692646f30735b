// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - gochannel（进程内，默认）
//   - NATS（支持 JetStream）
//   - Kafka（segmentio/kafka-go，消费组）
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "topic", msg)
//
//	ch, err := client.Subscribe(ctx, "topic")
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/eduaccess/pkg/configs"
	nlog "github.com/yeisme/eduaccess/pkg/log"
	appmetrics "github.com/yeisme/eduaccess/pkg/metrics"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewClient 用已有的 Publisher / Subscriber 构造 Client.
func NewClient(pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{publisher: pub, subscriber: sub}
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errors.New("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)

		if err := c.publisher.Publish(topic, m); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	}

	return nil
}

// Subscribe 便捷订阅，ctx 取消后通道关闭.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errors.New("mq subscriber not initialized")
	}

	ch, err := c.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return ch, nil
}

// Close 关闭资源.
func (c *Client) Close() error {
	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	// gochannel 的 publisher 与 subscriber 是同一个对象
	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}

// New 按配置初始化消息队列.
func New(ctx context.Context, cfg *configs.MQConfig) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if configs.GetConfig().Metrics.Enabled {
		metricsBuilder := metrics.NewPrometheusMetricsBuilder(appmetrics.GetRegistry(), "eduaccess", "mq")

		if pub, err = metricsBuilder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = metricsBuilder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 客户端已初始化")

	return &Client{publisher: pub, subscriber: sub}, nil
}
