package configs

import (
	"github.com/spf13/viper"
)

// KVType 键值存储类型.
type KVType string

const (
	KVMemory KVType = "memory"
	KVRedis  KVType = "redis"
	KVNATS   KVType = "nats"
)

// KVConfig 键值存储配置.
type KVConfig struct {
	Type  KVType        `mapstructure:"type"  rule:"oneof=memory redis nats"`
	Redis RedisKVConfig `mapstructure:"redis"`
	NATS  NATSKVConfig  `mapstructure:"nats"`
}

// RedisKVConfig Redis KV 配置.
type RedisKVConfig struct {
	Addr      string `mapstructure:"addr"       rule:"hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         rule:"min=0,max=15"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NATSKVConfig NATS JetStream KV 配置.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"      rule:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
}

// GetKVType 返回当前配置的 KV 类型.
func (c *KVConfig) GetKVType() KVType {
	return c.Type
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", KVMemory)

	// Redis 默认值
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.key_prefix", "eduaccess:")

	// NATS 默认值
	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "eduaccess")
}
