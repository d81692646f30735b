package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
	AIProviderEcho   = "echo" // 离线提供方，本地开发使用

	SpeechPlaceholder = "placeholder"
	SpeechOpenAI      = "openai"
	SpeechNone        = "none"

	DefaultAITimeout = 60 * time.Second
)

// AIConfig 生成式模型配置，Provider 决定摘要使用哪个模型.
type AIConfig struct {
	Provider       string         `mapstructure:"provider"        rule:"oneof=openai gemini echo"`
	SpeechProvider string         `mapstructure:"speech_provider" rule:"oneof=placeholder openai none"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	OpenAI         OpenAIConfig   `mapstructure:"openai"`
	Gemini         GeminiConfig   `mapstructure:"gemini"`
	Breaker        bool           `mapstructure:"breaker"` // 模型调用是否经过熔断器
	Speech         SpeechSettings `mapstructure:"speech"`
}

// OpenAIConfig OpenAI 兼容接口配置.
type OpenAIConfig struct {
	BaseURL     string  `mapstructure:"base_url"    rule:"omitempty,url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature" rule:"min=0,max=2"`
}

// GeminiConfig Gemini REST 接口配置.
type GeminiConfig struct {
	BaseURL string `mapstructure:"base_url" rule:"omitempty,url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// SpeechSettings 语音合成参数.
type SpeechSettings struct {
	Model string `mapstructure:"model"`
	Voice string `mapstructure:"voice"`
	// MaxChars 送入语音合成的最大字符数.
	MaxChars int `mapstructure:"max_chars" rule:"min=1"`
}

func (c *AIConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", AIProviderEcho)
	v.SetDefault("ai.speech_provider", SpeechPlaceholder)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.breaker", true)

	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.api_key", "")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.temperature", 0.3)

	v.SetDefault("ai.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.gemini.api_key", "")
	v.SetDefault("ai.gemini.model", "gemini-1.5-flash")

	v.SetDefault("ai.speech.model", "tts-1")
	v.SetDefault("ai.speech.voice", "alloy")
	v.SetDefault("ai.speech.max_chars", 4000)
}
