package configs

import (
	"time"

	"github.com/spf13/viper"
)

// StatsConfig 管理端统计与请求性能记录配置.
type StatsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// PerfLog 把请求耗时写入 performance_logs，统计的 gatewayResponse 来自这里.
	PerfLog PerfLogConfig `mapstructure:"perf_log"`
}

// PerfLogConfig 请求性能日志写入配置.
type PerfLogConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Buffer        int           `mapstructure:"buffer"         rule:"min=1"`
	BatchSize     int           `mapstructure:"batch_size"     rule:"min=1"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// SkipPaths 不记录的路径前缀.
	SkipPaths []string `mapstructure:"skip_paths"`
}

func (c *StatsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("stats.cache_ttl", 30*time.Second)
	v.SetDefault("stats.perf_log.enabled", true)
	v.SetDefault("stats.perf_log.buffer", 1024)
	v.SetDefault("stats.perf_log.batch_size", 100)
	v.SetDefault("stats.perf_log.flush_interval", time.Second)
	v.SetDefault("stats.perf_log.skip_paths", []string{"/metrics", "/debug/pprof", "/api/v1/health", "/swagger"})
}
