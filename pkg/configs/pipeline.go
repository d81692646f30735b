package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultStaleness     = 30 * time.Minute // processing 超过该时长视为遗弃
	DefaultMaxInputChars = 10000            // 送入模型的最大字符数
	DefaultPreviewChars  = 300              // 模型输出无法解析时摘要截取长度
	DefaultWorkers       = 4                // 并发处理数
)

// PipelineConfig 资料处理流水线配置.
type PipelineConfig struct {
	Staleness     time.Duration `mapstructure:"staleness"       rule:"min=1m"`
	MaxInputChars int           `mapstructure:"max_input_chars" rule:"min=100"`
	PreviewChars  int           `mapstructure:"preview_chars"   rule:"min=1"`
	Workers       int           `mapstructure:"workers"         rule:"min=1,max=64"`
	SpeechEnabled bool          `mapstructure:"speech_enabled"`
	// AutoProcess 上传完成后自动提交处理任务.
	AutoProcess bool `mapstructure:"auto_process"`
	// RunTimeout 单次流水线运行的超时时间.
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

func (c *PipelineConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.staleness", DefaultStaleness)
	v.SetDefault("pipeline.max_input_chars", DefaultMaxInputChars)
	v.SetDefault("pipeline.preview_chars", DefaultPreviewChars)
	v.SetDefault("pipeline.workers", DefaultWorkers)
	v.SetDefault("pipeline.speech_enabled", true)
	v.SetDefault("pipeline.auto_process", false)
	v.SetDefault("pipeline.run_timeout", 10*time.Minute)
}
