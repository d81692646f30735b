// Package queue 定义资料处理任务与领域事件的消息格式.
//
//   - 统一的消息封装：Message[Payload] = Header + Payload
//   - 主题常量见 topics.go，负载结构体见 payloads.go
//   - JSON 编解码使用 bytedance/sonic
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "ea.material.process.requested",
//	    "trace_id": "optional-trace-id",
//	    "producer": "eduaccess",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { "material_id": "...", "requested_at": "..." }
//	}
//
// 发布/订阅示例
//
//	err := queue.PublishProcessRequested(ctx, mqClient, queue.ProcessRequestedPayload{
//	  MaterialID:  id,
//	  RequestedAt: time.Now().UTC(),
//	}, queue.WithProducer(configs.AppName))
//
//	ch, _ := mqClient.Subscribe(ctx, queue.TopicMaterialProcessRequested)
//	for m := range ch {
//	  env, _ := queue.ParseProcessRequested(m)
//	  m.Ack()
//	  // env.Payload.MaterialID ...
//	}
//
// 注意事项
//  1. occurred_at 为 UTC，RFC3339 格式
//  2. 消费者应忽略未知字段
//  3. 处理任务没有持久化保证：gochannel 后端下进程退出即丢失
package queue

import (
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

const (
	PayloadVersionV1 string = "v1"
)

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...func(*EventHeader)) EventHeader {
	hdr := EventHeader{
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Version:    PayloadVersionV1,
	}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// WithTraceID 设置 TraceID.
func WithTraceID(id string) func(*EventHeader) { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) func(*EventHeader) { return func(h *EventHeader) { h.Producer = p } }

// Encode 将消息封装为 JSON 字节切片.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 字节解码为消息.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造一个 watermill 消息，设置 ID 与元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...func(*EventHeader)) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)
	env := Message[T]{Header: header, Payload: payload}

	data, err := Encode(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)

	if header.TraceID != "" {
		msg.Metadata.Set("trace_id", header.TraceID)
	}

	if header.Producer != "" {
		msg.Metadata.Set("producer", header.Producer)
	}

	msg.Metadata.Set("occurred_at", header.OccurredAt.Format(time.RFC3339Nano))

	if header.Version != "" {
		msg.Metadata.Set("version", header.Version)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
