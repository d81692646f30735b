package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS      MQType = "nats"
	MQTypeGoChannel MQType = "gochannel"
	MQTypeKafka     MQType = "kafka"

	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5               // 默认最大重连次数.
	DefaultReconnectWait = 5               // 默认重连等待时间（秒）.
	DefaultMQClientID    = "eduaccess-app" // 默认客户端ID
	DefaultPingInterval  = 20              // 默认ping间隔 (秒)
	DefaultBufferSize    = 32768           // 默认重连缓冲区大小 (32KB)

	DefaultGoChannelBuffer = 256 // 进程内队列每个订阅者的缓冲区大小

	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaMaxBytes = 10 << 20 // 单次拉取上限 10MB
)

// MQConfig 消息队列配置.
// gochannel 为进程内非持久化队列，与"提交即返回"的处理语义一致；nats / kafka 用于多实例部署.
type MQConfig struct {
	Type      MQType          `mapstructure:"type"      rule:"oneof=nats gochannel kafka"`
	NATS      MQNATSConfig    `mapstructure:"nats"`
	GoChannel MQChannelConfig `mapstructure:"gochannel"`
	Kafka     MQKafkaConfig   `mapstructure:"kafka"`
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	URL                    string   `mapstructure:"url"`
	User                   string   `mapstructure:"user"`
	Password               string   `mapstructure:"password"`
	ClientID               string   `mapstructure:"client_id"`
	MaxReconnects          int      `mapstructure:"max_reconnects"           rule:"min=0,max=100"`
	ReconnectWait          int      `mapstructure:"reconnect_wait"           rule:"min=1,max=300"`
	PingInterval           int      `mapstructure:"ping_interval"            rule:"min=1,max=300"`
	BufferSize             int      `mapstructure:"buffer_size"              rule:"min=1024,max=1048576"`
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	QueueGroupPrefix       string   `mapstructure:"queue_group_prefix"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
}

// MQChannelConfig 进程内 gochannel 配置.
type MQChannelConfig struct {
	OutputBuffer int64 `mapstructure:"output_buffer" rule:"min=0"`
}

// MQKafkaConfig Kafka 配置，同一 GroupID 的实例共同消费一个主题.
type MQKafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"       rule:"omitempty,dive,hostname_port"`
	GroupID      string        `mapstructure:"group_id"`
	MaxBytes     int           `mapstructure:"max_bytes"     rule:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeGoChannel)

	// NATS 默认值
	v.SetDefault("mq.nats.url", DefaultMQURL)
	v.SetDefault("mq.nats.user", "")
	v.SetDefault("mq.nats.password", "")
	v.SetDefault("mq.nats.client_id", DefaultMQClientID)
	v.SetDefault("mq.nats.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.nats.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.nats.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.nats.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", false)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "eduaccess")
	v.SetDefault("mq.nats.queue_group_prefix", "eduaccess")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.cluster_urls", []string{})

	v.SetDefault("mq.gochannel.output_buffer", DefaultGoChannelBuffer)

	v.SetDefault("mq.kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("mq.kafka.group_id", AppName)
	v.SetDefault("mq.kafka.max_bytes", DefaultKafkaMaxBytes)
	v.SetDefault("mq.kafka.write_timeout", 10*time.Second)
}
