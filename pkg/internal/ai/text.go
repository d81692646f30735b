package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"

	"github.com/yeisme/eduaccess/pkg/configs"
)

const (
	docBegin = "<<<DOCUMENT>>>"
	docEnd   = "<<<END DOCUMENT>>>"
)

const summaryPrompt = `You help students with reading difficulties understand lecture material.
Read the document below and answer with ONLY a JSON object of the form
{"summary": "...", "simplified": "..."}
where "summary" is a short summary of the key points and "simplified" rewrites the
content in plain, easy-to-read language. Do not add any other text.
` + docBegin + `
%s
` + docEnd

// Result 摘要结果.
type Result struct {
	Summary    string `json:"summary"`
	Simplified string `json:"simplified"`
}

// TextService 文本摘要与简化.
type TextService struct {
	provider     Provider
	maxInput     int
	previewChars int
}

// NewTextService 创建摘要服务，非正数的长度参数使用默认值.
func NewTextService(p Provider, maxInputChars, previewChars int) *TextService {
	if maxInputChars <= 0 {
		maxInputChars = configs.DefaultMaxInputChars
	}

	if previewChars <= 0 {
		previewChars = configs.DefaultPreviewChars
	}

	return &TextService{provider: p, maxInput: maxInputChars, previewChars: previewChars}
}

// Provider 返回底层提供方.
func (s *TextService) Provider() Provider { return s.provider }

// Summarize 截断输入后调用模型，并按 严格 JSON -> 首个顶层对象 -> 原文兜底 的顺序解析输出.
// 只有模型调用本身失败时返回错误.
func (s *TextService) Summarize(ctx context.Context, text string) (Result, error) {
	prompt := BuildPrompt(TruncateRunes(text, s.maxInput))

	raw, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("summarize with %s: %w", s.provider.Name(), err)
	}

	return ParseResult(raw, s.previewChars), nil
}

// BuildPrompt 构造摘要 prompt.
func BuildPrompt(document string) string {
	return fmt.Sprintf(summaryPrompt, document)
}

// documentFromPrompt 取出 prompt 中的文档部分.
func documentFromPrompt(prompt string) string {
	start := strings.Index(prompt, docBegin)
	if start < 0 {
		return prompt
	}

	rest := prompt[start+len(docBegin):]
	if end := strings.LastIndex(rest, docEnd); end >= 0 {
		rest = rest[:end]
	}

	return strings.TrimSpace(rest)
}

// ParseResult 解析模型输出，永不失败.
func ParseResult(raw string, previewChars int) Result {
	trimmed := strings.TrimSpace(raw)

	if r, ok := decodeResult(trimmed); ok {
		return r
	}

	if obj, ok := FirstObject(trimmed); ok {
		if r, ok := decodeResult(obj); ok {
			return r
		}
	}

	return Result{Summary: TruncateRunes(raw, previewChars), Simplified: raw}
}

// decodeResult 对象至少要带一个字段才算解析成功.
func decodeResult(s string) (Result, bool) {
	var fields struct {
		Summary    *string `json:"summary"`
		Simplified *string `json:"simplified"`
	}

	if err := sonic.UnmarshalString(s, &fields); err != nil {
		return Result{}, false
	}

	if fields.Summary == nil && fields.Simplified == nil {
		return Result{}, false
	}

	var r Result
	if fields.Summary != nil {
		r.Summary = *fields.Summary
	}

	if fields.Simplified != nil {
		r.Simplified = *fields.Simplified
	}

	return r, true
}

// FirstObject 返回 s 中第一个括号配平的 {...}，会跳过字符串字面量里的括号.
func FirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// TruncateRunes 按字符（rune）截断，不会切断多字节字符.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}

		count++
	}

	return s
}
