package configs

import (
	"time"

	"github.com/spf13/viper"
)

// IdentityConfig 外部身份目录（GoTrue 风格 admin 接口）配置.
type IdentityConfig struct {
	BaseURL    string        `mapstructure:"base_url"    rule:"omitempty,url"`
	ServiceKey string        `mapstructure:"service_key"`
	PerPage    int           `mapstructure:"per_page"    rule:"min=1,max=1000"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (c *IdentityConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.service_key", "")
	v.SetDefault("identity.per_page", 200)
	v.SetDefault("identity.timeout", 15*time.Second)
}
