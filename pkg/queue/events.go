package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher 发布端，*mq.Client 实现该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// -------------------------- 基于业务封装 events --------------------------

func publish[T any](ctx context.Context, pub Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(ctx, topic, msg)
}

// PublishProcessRequested 提交处理任务（ea.material.process.requested）.
func PublishProcessRequested(ctx context.Context, pub Publisher, payload ProcessRequestedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicMaterialProcessRequested, payload, opts...)
}

// ParseProcessRequested 解析处理任务.
func ParseProcessRequested(msg *message.Message) (Message[ProcessRequestedPayload], error) {
	return ParseWatermillMessage[ProcessRequestedPayload](msg)
}

// PublishMaterialUploaded 发布 ea.material.uploaded.
func PublishMaterialUploaded(ctx context.Context, pub Publisher, payload MaterialUploadedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicMaterialUploaded, payload, opts...)
}

// PublishMaterialProcessed 发布 ea.material.processed.
func PublishMaterialProcessed(ctx context.Context, pub Publisher, payload MaterialProcessedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicMaterialProcessed, payload, opts...)
}

// PublishMaterialFailed 发布 ea.material.failed.
func PublishMaterialFailed(ctx context.Context, pub Publisher, payload MaterialFailedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicMaterialFailed, payload, opts...)
}

// PublishRegistrySynced 发布 ea.registry.synced.
func PublishRegistrySynced(ctx context.Context, pub Publisher, payload RegistrySyncedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, pub, TopicRegistrySynced, payload, opts...)
}
