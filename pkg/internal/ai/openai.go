package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func init() {
	RegisterProvider(configs.AIProviderOpenAI, func(cfg *configs.AIConfig, client *http.Client) (Provider, error) {
		return NewOpenAI(cfg.OpenAI, client)
	})
}

// OpenAI chat-completions 兼容接口.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI 创建 OpenAI 提供方，缺少 api key 时返回 ErrProviderUnavailable.
func NewOpenAI(cfg configs.OpenAIConfig, client *http.Client) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is not configured", ErrProviderUnavailable)
	}

	return &OpenAI{
		client:      newOpenAIClient(cfg, client),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}, nil
}

// newOpenAIClient base_url 为空时使用官方地址.
func newOpenAIClient(cfg configs.OpenAIConfig, client *http.Client) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	if client == nil {
		client = &http.Client{Timeout: configs.DefaultAITimeout}
	}

	oc.HTTPClient = client

	return openai.NewClientWithConfig(oc)
}

func (o *OpenAI) Name() string { return configs.AIProviderOpenAI }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", openAIError(o.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// openAIError 把 go-openai 的错误统一为 *APIError，网络错误原样包装.
func openAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: provider, StatusCode: apiErr.HTTPStatusCode, Message: apiErrorMessage(apiErr.Message, apiErr.HTTPStatusCode)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}

		return &APIError{Provider: provider, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	// 非 JSON 的错误响应只有格式化文本.
	if code, body, ok := parsePlainError(err); ok {
		return &APIError{Provider: provider, StatusCode: code, Message: apiErrorMessage(body, code)}
	}

	return fmt.Errorf("%s request failed: %w", provider, err)
}
