package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/eduaccess/pkg/configs"
)

const (
	DefaultDrainTimeout   = 30 * time.Second
	DefaultFlusherTimeout = 10 * time.Second
)

// init 注册 NATS 工厂.
func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// buildNatsOptions 构建 NATS 连接选项.
func buildNatsOptions(cfg *configs.MQNATSConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.ClientID),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(time.Duration(cfg.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(cfg.PingInterval) * time.Second),
		nc.ReconnectBufSize(cfg.BufferSize),
		nc.DrainTimeout(DefaultDrainTimeout),
		nc.FlusherTimeout(DefaultFlusherTimeout),
		nc.RetryOnFailedConnect(true),
	}

	// 添加认证选项
	opts = appendAuthOptions(opts, cfg)

	return opts
}

// appendAuthOptions 添加认证选项.
func appendAuthOptions(opts []nc.Option, cfg *configs.MQNATSConfig) []nc.Option {
	if cfg.JWT != "" {
		opts = append(opts, nc.UserJWTAndSeed(cfg.JWT, cfg.NKey))
	} else if cfg.NKey != "" {
		opts = append(opts, nc.Nkey(cfg.NKey, nil))
	} else if cfg.User != "" {
		opts = append(opts, nc.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

// buildJetStreamConfig 构建 JetStream 配置.
func buildJetStreamConfig(cfg *configs.MQNATSConfig, logger watermill.LoggerAdapter) nats.JetStreamConfig {
	jsCfg := nats.JetStreamConfig{
		Disabled: !cfg.JetStreamEnabled,
	}

	if cfg.JetStreamEnabled {
		// 设置自动创建流
		jsCfg.AutoProvision = cfg.JetStreamAutoProvision

		// 设置消息跟踪以防止重复
		jsCfg.TrackMsgId = cfg.JetStreamTrackMsgID

		// 设置异步确认
		jsCfg.AckAsync = cfg.JetStreamAckAsync

		// 设置持久化前缀
		jsCfg.DurablePrefix = cfg.JetStreamDurablePrefix

		logger.Debug("JetStream 配置信息", watermill.LogFields{
			"auto_provision": cfg.JetStreamAutoProvision,
			"track_msg_id":   cfg.JetStreamTrackMsgID,
			"ack_async":      cfg.JetStreamAckAsync,
			"durable_prefix": cfg.JetStreamDurablePrefix,
		})
	}

	return jsCfg
}

// buildURL 构建连接 URL.
func buildURL(cfg *configs.MQNATSConfig) string {
	if len(cfg.ClusterURLs) > 0 {
		return strings.Join(cfg.ClusterURLs, ",")
	}

	return cfg.URL
}

// natsFactory 创建 NATS Publisher & Subscriber.
// 订阅方使用队列组，多实例部署时同一条处理请求只会被一个实例消费.
func natsFactory(
	_ context.Context,
	mqCfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	cfg := &mqCfg.NATS
	opts := buildNatsOptions(cfg)
	jsCfg := buildJetStreamConfig(cfg, logger)
	marshaler := &nats.JSONMarshaler{}

	// 创建 Publisher
	pub, err := createPublisher(opts, jsCfg, marshaler, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	// 创建 Subscriber
	sub, err := createSubscriber(opts, jsCfg, marshaler, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return pub, sub, nil
}

// createPublisher 创建 Publisher.
func createPublisher(
	opts []nc.Option,
	jsCfg nats.JetStreamConfig,
	marshaler *nats.JSONMarshaler,
	cfg *configs.MQNATSConfig,
	logger watermill.LoggerAdapter) (message.Publisher, error) {
	pubCfg := nats.PublisherConfig{
		NatsOptions: opts,
		JetStream:   jsCfg,
		Marshaler:   marshaler,
		URL:         buildURL(cfg),
	}

	return nats.NewPublisher(pubCfg, logger)
}

// createSubscriber 创建 Subscriber.
func createSubscriber(
	opts []nc.Option,
	jsCfg nats.JetStreamConfig,
	marshaler *nats.JSONMarshaler,
	cfg *configs.MQNATSConfig,
	logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subCfg := nats.SubscriberConfig{
		NatsOptions:      opts,
		JetStream:        jsCfg,
		Unmarshaler:      marshaler,
		URL:              buildURL(cfg),
		QueueGroupPrefix: cfg.QueueGroupPrefix,
	}

	return nats.NewSubscriber(subCfg, logger)
}
