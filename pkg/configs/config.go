// Package configs 管理应用程序配置，包括数据库、对象存储、队列、AI 模型与对账任务的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing DB config:
//
//	config := configs.GetConfig()
//	dsn := config.DB.GetDSN()
//	fmt.Println("DSN:", dsn)
//
// Example accessing pipeline config:
//
//	config := configs.GetConfig()
//	fmt.Println("Staleness:", config.Pipeline.Staleness)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/eduaccess/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 EDUACCESS_DB_TYPE.
const EnvPrefix = "EDUACCESS"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器端口、调试模式等
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 元数据库配置
		Blob           BlobConfig           `mapstructure:"blob"`            // BlobConfig 对象存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 任务队列配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 缓存配置
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 认证配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 领域事件开关
		AI             AIConfig             `mapstructure:"ai"`              // AIConfig 模型提供方配置
		Pipeline       PipelineConfig       `mapstructure:"pipeline"`        // PipelineConfig 资料处理流水线配置
		Registry       RegistryConfig       `mapstructure:"registry"`        // RegistryConfig 对账任务配置
		Identity       IdentityConfig       `mapstructure:"identity"`        // IdentityConfig 外部身份目录配置
		Stats          StatsConfig          `mapstructure:"stats"`           // StatsConfig 统计缓存配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	mu       sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	// 设置默认值
	setAllDefaults(v)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		v.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		v.SetConfigName("config")
		v.AddConfigPath(path)
		v.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				break
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	// 解析到全局配置
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return err
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	reloadConfigs(v, cfg.Server.ReloadConfig)

	return nil
}

// Validate 使用 rule 标签校验配置.
func Validate(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var cfg AppConfig

	cfg.Server.setDefaults(v)
	cfg.DB.setDefaults(v)
	cfg.Blob.setDefaults(v)
	cfg.MQ.setDefaults(v)
	cfg.KV.setDefaults(v)
	cfg.Log.setDefaults(v)
	cfg.Metrics.setDefaults(v)
	cfg.Tracing.setDefaults(v)
	cfg.Auth.setDefaults(v)
	cfg.RateLimit.setDefaults(v)
	cfg.CircuitBreaker.setDefaults(v)
	cfg.Events.setDefaults(v)
	cfg.AI.setDefaults(v)
	cfg.Pipeline.setDefaults(v)
	cfg.Registry.setDefaults(v)
	cfg.Identity.setDefaults(v)
	cfg.Stats.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)

			return
		}

		if err := Validate(&cfg); err != nil {
			fmt.Printf("Rejected reloaded config: %v\n", err)

			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	c := globalConfig

	return &c
}

// SetConfig 直接替换全局配置，主要用于测试和命令行覆盖.
func SetConfig(cfg AppConfig) {
	mu.Lock()
	globalConfig = cfg
	mu.Unlock()
}

// Defaults 返回仅包含默认值的配置.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}

func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}
