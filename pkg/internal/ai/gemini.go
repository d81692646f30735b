package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func init() {
	RegisterProvider(configs.AIProviderGemini, func(cfg *configs.AIConfig, client *http.Client) (Provider, error) {
		return NewGemini(cfg.Gemini, client)
	})
}

// Gemini 基于 google.golang.org/genai 的 generateContent 调用.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建 Gemini 提供方；base_url 为空时使用官方地址.
func NewGemini(cfg configs.GeminiConfig, client *http.Client) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is not configured", ErrProviderUnavailable)
	}

	if client == nil {
		client = &http.Client{Timeout: configs.DefaultAITimeout}
	}

	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  client,
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/")},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: gc, model: cfg.Model}, nil
}

func (g *Gemini) Name() string { return configs.AIProviderGemini }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return "", geminiError(g.Name(), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			sb.WriteString(p.Text)
		}
	}

	return sb.String(), nil
}

// geminiError 把 genai.APIError 统一为 *APIError.
func geminiError(provider string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: provider, StatusCode: apiErr.Code, Message: apiErrorMessage(apiErr.Message, apiErr.Code)}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &APIError{Provider: provider, StatusCode: apiErrPtr.Code, Message: apiErrorMessage(apiErrPtr.Message, apiErrPtr.Code)}
	}

	return fmt.Errorf("%s request failed: %w", provider, err)
}
