package configs

import "github.com/spf13/viper"

// RegistryConfig 对账任务配置.
type RegistryConfig struct {
	ScheduleEnabled bool   `mapstructure:"schedule_enabled"`
	Cron            string `mapstructure:"cron"             rule:"required"`
	// Concurrency 存储对账时并发检查的数量.
	Concurrency int `mapstructure:"concurrency" rule:"min=1,max=64"`
	// DefaultFullName 身份缺少姓名时使用的占位名称.
	DefaultFullName string `mapstructure:"default_full_name" rule:"required"`
	DefaultRole     string `mapstructure:"default_role"      rule:"oneof=student admin"`
}

func (c *RegistryConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("registry.schedule_enabled", true)
	v.SetDefault("registry.cron", "*/15 * * * *")
	v.SetDefault("registry.concurrency", 8)
	v.SetDefault("registry.default_full_name", "New User")
	v.SetDefault("registry.default_role", "student")
}
