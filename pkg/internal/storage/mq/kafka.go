package mq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	kafka "github.com/segmentio/kafka-go"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// uuidHeader 保存 watermill 消息 UUID 的 Kafka header.
const uuidHeader = "_watermill_message_uuid"

// fetchRetryWait 拉取失败后的等待时间.
const fetchRetryWait = time.Second

func init() {
	RegisterFactory(configs.MQTypeKafka, kafkaFactory)
}

// kafkaFactory 基于 segmentio/kafka-go 创建 Publisher & Subscriber.
// 订阅方使用消费组，ack 后提交 offset；nack 时重新投递同一条消息.
func kafkaFactory(
	_ context.Context,
	mqCfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	cfg := mqCfg.Kafka
	if len(cfg.Brokers) == 0 {
		return nil, nil, errors.New("kafka: no brokers configured")
	}

	errLogger := kafka.LoggerFunc(func(msg string, args ...any) {
		logger.Error(fmt.Sprintf(msg, args...), nil, watermill.LogFields{"backend": "kafka"})
	})

	pub := &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			WriteTimeout:           cfg.WriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			ErrorLogger:            errLogger,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &kafkaSubscriber{
		cfg:       cfg,
		logger:    logger,
		errLogger: errLogger,
		ctx:       ctx,
		cancel:    cancel,
	}

	return pub, sub, nil
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func (p *kafkaPublisher) Publish(topic string, msgs ...*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kms := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		kms = append(kms, toKafkaMessage(topic, m))
	}

	return p.writer.WriteMessages(msgs[0].Context(), kms...)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type kafkaSubscriber struct {
	cfg       configs.MQKafkaConfig
	logger    watermill.LoggerAdapter
	errLogger kafka.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *kafkaSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.ctx.Err() != nil {
		return nil, errors.New("kafka subscriber closed")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.cfg.Brokers,
		GroupID:     s.cfg.GroupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    s.cfg.MaxBytes,
		ErrorLogger: s.errLogger,
	})

	subCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	out := make(chan *message.Message)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()

		s.consume(subCtx, reader, topic, out)
	}()

	return out, nil
}

// consume 逐条投递，等待 ack 后提交 offset.
func (s *kafkaSubscriber) consume(ctx context.Context, reader *kafka.Reader, topic string, out chan<- *message.Message) {
	defer close(out)
	defer reader.Close()

	fields := watermill.LogFields{"topic": topic, "group": s.cfg.GroupID}

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}

			s.logger.Error("kafka fetch failed", err, fields)

			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryWait):
			}

			continue
		}

		if !s.deliver(ctx, km, out) {
			return
		}

		if err := reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			s.logger.Error("kafka commit failed", err, fields)
		}
	}
}

// deliver 投递直到被 ack；返回 false 表示订阅已结束.
func (s *kafkaSubscriber) deliver(ctx context.Context, km kafka.Message, out chan<- *message.Message) bool {
	for {
		msg := fromKafkaMessage(km)
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			return true
		case <-msg.Nacked():
			s.logger.Debug("kafka message nacked, redelivering", watermill.LogFields{"uuid": msg.UUID})
		case <-ctx.Done():
			return false
		}
	}
}

func (s *kafkaSubscriber) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

func toKafkaMessage(topic string, m *message.Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Metadata)+1)
	headers = append(headers, kafka.Header{Key: uuidHeader, Value: []byte(m.UUID)})

	for k, v := range m.Metadata {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{Topic: topic, Value: m.Payload, Headers: headers}
}

func fromKafkaMessage(km kafka.Message) *message.Message {
	id := ""
	metadata := make(message.Metadata, len(km.Headers))

	for _, h := range km.Headers {
		if h.Key == uuidHeader {
			id = string(h.Value)
			continue
		}

		metadata.Set(h.Key, string(h.Value))
	}

	if id == "" {
		id = watermill.NewUUID()
	}

	msg := message.NewMessage(id, km.Value)
	msg.Metadata = metadata

	return msg
}
