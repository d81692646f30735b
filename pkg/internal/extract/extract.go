// Package extract 从上传的资料中提取纯文本.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyText 提取结果为空.
var ErrEmptyText = errors.New("extracted text is empty")

var pdfMagic = []byte("%PDF-")

// Extractor 文本提取器.
type Extractor struct{}

// New 创建提取器.
func New() *Extractor { return &Extractor{} }

// Extract 按 MIME 类型（或 %PDF- 文件头）选择 PDF 解析，其余按 UTF-8 文本处理.
// 结果去除首尾空白，为空时返回 ErrEmptyText.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)

	if IsPDF(contentType, data) {
		text, err = pdfText(data)
		if err != nil {
			return "", err
		}
	} else {
		text = strings.ToValidUTF8(string(data), "�")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	return text, nil
}

// IsPDF 判断内容是否为 PDF.
func IsPDF(contentType string, data []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}

	return bytes.HasPrefix(data, pdfMagic)
}

func pdfText(data []byte) (text string, err error) {
	// ledongthuc/pdf 遇到损坏的文件会 panic.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return string(raw), nil
}
