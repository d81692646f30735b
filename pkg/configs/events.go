package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Material MaterialEventsConfig `mapstructure:"material"`
	Registry RegistryEventsConfig `mapstructure:"registry"`
}

// MaterialEventsConfig 资料处理领域的事件开关。
type MaterialEventsConfig struct {
	Uploaded  bool `mapstructure:"uploaded"`
	Processed bool `mapstructure:"processed"`
	Failed    bool `mapstructure:"failed"`
}

// RegistryEventsConfig 对账任务的事件开关。
type RegistryEventsConfig struct {
	Synced bool `mapstructure:"synced"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.material.uploaded", true)
	v.SetDefault("events.material.processed", true)
	v.SetDefault("events.material.failed", true)

	// 对账结果量小，但一般只有运维关心，默认关闭
	v.SetDefault("events.registry.synced", false)
}
