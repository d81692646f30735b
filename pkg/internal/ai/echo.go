package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func init() {
	RegisterProvider(configs.AIProviderEcho, func(_ *configs.AIConfig, _ *http.Client) (Provider, error) {
		return Echo{}, nil
	})
}

// echoSummaryChars 离线摘要的长度.
const echoSummaryChars = 200

// Echo 离线提供方：不访问网络，根据 prompt 中的文档生成确定性的 JSON 结果.
type Echo struct{}

func (Echo) Name() string { return configs.AIProviderEcho }

func (Echo) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc := strings.Join(strings.Fields(documentFromPrompt(prompt)), " ")

	summary := doc
	if end := strings.IndexAny(doc, ".!?"); end >= 0 {
		summary = doc[:end+1]
	}

	out, err := sonic.MarshalString(Result{
		Summary:    TruncateRunes(summary, echoSummaryChars),
		Simplified: doc,
	})
	if err != nil {
		return "", err
	}

	return out, nil
}
