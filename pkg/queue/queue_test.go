package queue

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

type capturePublisher struct {
	topic string
	msgs  []*message.Message
}

func (c *capturePublisher) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)

	return nil
}

func TestPublishProcessRequested(t *testing.T) {
	pub := &capturePublisher{}
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	err := PublishProcessRequested(context.Background(), pub,
		ProcessRequestedPayload{MaterialID: "m-1", RequestedBy: "u-1", RequestedAt: at},
		WithProducer("eduaccess"), WithTraceID("t-1"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if pub.topic != TopicMaterialProcessRequested || len(pub.msgs) != 1 {
		t.Fatalf("published to %q (%d msgs)", pub.topic, len(pub.msgs))
	}

	msg := pub.msgs[0]
	if msg.Metadata.Get("trace_id") != "t-1" || msg.Metadata.Get("producer") != "eduaccess" {
		t.Errorf("metadata not set: %v", msg.Metadata)
	}

	env, err := ParseProcessRequested(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Header.Topic != TopicMaterialProcessRequested || env.Header.Version != PayloadVersionV1 {
		t.Errorf("unexpected header %+v", env.Header)
	}

	if env.Payload.MaterialID != "m-1" || !env.Payload.RequestedAt.Equal(at) {
		t.Errorf("unexpected payload %+v", env.Payload)
	}
}
