package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yeisme/eduaccess/pkg/configs"
)

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(&configs.AIConfig{Provider: "nope"}, configs.CircuitBreakerConfig{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	_, err := NewProvider(&configs.AIConfig{Provider: configs.AIProviderOpenAI}, configs.CircuitBreakerConfig{})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRegisteredProviders(t *testing.T) {
	got := strings.Join(GetRegisteredProviders(), ",")
	if got != "echo,gemini,openai" {
		t.Fatalf("registered providers = %s", got)
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}

		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"model":"gpt-test"`) {
			t.Errorf("model not sent: %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"S\",\"simplified\":\"X\"}"}}]}`)
	}))
	defer srv.Close()

	p, err := NewProvider(&configs.AIConfig{
		Provider: configs.AIProviderOpenAI,
		OpenAI:   configs.OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-test"},
	}, configs.CircuitBreakerConfig{})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	got, err := NewTextService(p, 0, 0).Summarize(context.Background(), "doc")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if got != (Result{Summary: "S", Simplified: "X"}) {
		t.Fatalf("got %+v", got)
	}
}

func TestOpenAIAPIError(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantMessage string
	}{
		{"json", "application/json", `{"error":{"message":"rate limited","type":"requests"}}`, "rate limited"},
		{"plain text", "text/plain", "upstream quota exceeded", "upstream quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p, err := NewOpenAI(configs.OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}, srv.Client())
			if err != nil {
				t.Fatalf("new openai: %v", err)
			}

			_, err = p.Complete(context.Background(), "hi")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}

			if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != tt.wantMessage {
				t.Fatalf("unexpected api error %+v", apiErr)
			}
		})
	}
}

func TestParsePlainError(t *testing.T) {
	code, body, ok := parsePlainError(errors.New("error, status code: 502, body: bad gateway\n"))
	if !ok || code != http.StatusBadGateway || body != "bad gateway\n" {
		t.Fatalf("got %d %q %v", code, body, ok)
	}

	if _, _, ok := parsePlainError(errors.New("dial tcp: connection refused")); ok {
		t.Fatal("network error should not parse as api error")
	}
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"summary\":"},{"text":"\"S\",\"simplified\":\"X\"}"}]}}]}`)
	}))
	defer srv.Close()

	p, err := NewGemini(configs.GeminiConfig{BaseURL: srv.URL, APIKey: "g-key", Model: "gemini-test"}, srv.Client())
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}

	out, err := p.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if out != `{"summary":"S","simplified":"X"}` {
		t.Fatalf("got %q", out)
	}
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	p, err := NewGemini(configs.GeminiConfig{BaseURL: srv.URL, APIKey: "bad", Model: "gemini-test"}, srv.Client())
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}

	_, err = p.Complete(context.Background(), "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}

	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "API key not valid" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	stub := &stubProvider{err: errors.New("upstream down")}
	p := WithBreaker(stub, configs.CircuitBreakerConfig{
		FailureRate:       0.5,
		MinRequests:       2,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	})

	for i := 0; i < 2; i++ {
		if _, err := p.Complete(context.Background(), "x"); err == nil || errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	if _, err := p.Complete(context.Background(), "x"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable once open, got %v", err)
	}

	if len(stub.prompts) != 2 {
		t.Fatalf("provider called %d times, want 2", len(stub.prompts))
	}
}

func TestSpeech(t *testing.T) {
	s, err := NewSpeech(&configs.AIConfig{SpeechProvider: configs.SpeechPlaceholder})
	if err != nil {
		t.Fatalf("new speech: %v", err)
	}

	audio, err := s.Synthesize(context.Background(), "hello")
	if err != nil || len(audio) == 0 {
		t.Fatalf("placeholder speech: %d bytes, err %v", len(audio), err)
	}

	if string(audio[:3]) != "ID3" {
		t.Fatalf("expected ID3 header")
	}

	none, err := NewSpeech(&configs.AIConfig{SpeechProvider: configs.SpeechNone})
	if err != nil || none != nil {
		t.Fatalf("none speech: %v %v", none, err)
	}
}

func TestOpenAISpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xFB, 0x01})
	}))
	defer srv.Close()

	s, err := NewOpenAISpeech(configs.OpenAIConfig{BaseURL: srv.URL, APIKey: "k"},
		configs.SpeechSettings{Model: "tts-1", Voice: "alloy", MaxChars: 10}, srv.Client())
	if err != nil {
		t.Fatalf("new speech: %v", err)
	}

	audio, err := s.Synthesize(context.Background(), "read this aloud")
	if err != nil || len(audio) != 3 {
		t.Fatalf("got %v, %v", audio, err)
	}
}
