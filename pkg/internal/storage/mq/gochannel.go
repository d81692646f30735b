package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeGoChannel, goChannelFactory)
}

// goChannelFactory 创建进程内 pub/sub；进程退出时未处理的消息会丢失.
func goChannelFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.GoChannel.OutputBuffer,
	}, logger)

	return ch, ch, nil
}
