package ai

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// APIError 上游返回的非 2xx 响应.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// apiErrorMessage 上游没有给出消息时用状态文本代替.
func apiErrorMessage(msg string, status int) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return http.StatusText(status)
	}

	return msg
}

// plainErrorPattern 匹配 go-openai 对非 JSON 错误响应生成的错误文本.
var plainErrorPattern = regexp.MustCompile(`(?s)status code: (\d{3}), body: (.*)$`)

// parsePlainError 从 "error, status code: 429, body: ..." 中取出状态码与响应体.
func parsePlainError(err error) (int, string, bool) {
	m := plainErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, "", false
	}

	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, "", false
	}

	return code, m[2], true
}
