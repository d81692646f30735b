package configs

import "github.com/spf13/viper"

// AuthConfig 控制 Bearer Token 校验，令牌由外部身份服务签发（HS256 共享密钥）.
type AuthConfig struct {
	Enabled   bool     `mapstructure:"enabled"`    // 开启认证校验
	JWTSecret string   `mapstructure:"jwt_secret"` // 身份服务的 JWT 签名密钥
	Issuer    string   `mapstructure:"issuer"`     // 可选，校验 iss
	Audience  string   `mapstructure:"audience"`   // 可选，校验 aud
	SkipPaths []string `mapstructure:"skip_paths"` // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	// AdminRole 管理员角色名，访问 /admin 与 /registry 需要该角色.
	AdminRole string `mapstructure:"admin_role" rule:"required"`
	// DevAllowHeader 开发模式允许用 X-User-Id 请求头直接指定用户.
	DevAllowHeader bool `mapstructure:"dev_allow_header"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("auth.dev_allow_header", false)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
		"/swagger",
	})
}
