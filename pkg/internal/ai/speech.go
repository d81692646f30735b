package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yeisme/eduaccess/pkg/configs"
)

// SpeechSynthesizer 文本转语音.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NewSpeech 按 ai.speech_provider 创建语音合成器；none 时返回 nil.
func NewSpeech(cfg *configs.AIConfig) (SpeechSynthesizer, error) {
	switch cfg.SpeechProvider {
	case configs.SpeechNone:
		return nil, nil
	case configs.SpeechPlaceholder, "":
		return PlaceholderSpeech{}, nil
	case configs.SpeechOpenAI:
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = configs.DefaultAITimeout
		}

		return NewOpenAISpeech(cfg.OpenAI, cfg.Speech, &http.Client{Timeout: timeout})
	default:
		return nil, fmt.Errorf("%w: speech provider %s", ErrUnknownProvider, cfg.SpeechProvider)
	}
}

// PlaceholderSpeech 占位合成器：返回一段静音 MP3（ID3 头 + 一个静音帧）.
type PlaceholderSpeech struct{}

// mp3FrameLen 128kbps/44.1kHz 的 MPEG-1 Layer III 帧长.
const mp3FrameLen = 417

func (PlaceholderSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("speech: empty text")
	}

	out := make([]byte, 0, 10+mp3FrameLen)
	out = append(out, 'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0)

	frame := make([]byte, mp3FrameLen)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})

	return append(out, frame...), nil
}

// OpenAISpeech 调用 OpenAI /audio/speech.
type OpenAISpeech struct {
	client   *openai.Client
	model    string
	voice    string
	maxChars int
}

// NewOpenAISpeech 创建 OpenAI 语音合成器.
func NewOpenAISpeech(cfg configs.OpenAIConfig, speech configs.SpeechSettings, client *http.Client) (*OpenAISpeech, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is not configured", ErrProviderUnavailable)
	}

	return &OpenAISpeech{
		client:   newOpenAIClient(cfg, client),
		model:    speech.Model,
		voice:    speech.Voice,
		maxChars: speech.MaxChars,
	}, nil
}

func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.SpeechVoice(s.voice),
		Input:          TruncateRunes(text, s.maxChars),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, openAIError("openai-speech", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}

	if len(audio) == 0 {
		return nil, errors.New("openai speech returned empty audio")
	}

	return audio, nil
}
