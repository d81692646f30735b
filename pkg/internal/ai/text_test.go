package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type stubProvider struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)

	return s.reply, s.err
}

func TestSummarizeParsePolicy(t *testing.T) {
	prose := strings.Repeat("lorem ipsum ", 60)

	cases := []struct {
		name  string
		reply string
		want  Result
	}{
		{
			name:  "strict json",
			reply: `{"summary":"S","simplified":"X"}`,
			want:  Result{Summary: "S", Simplified: "X"},
		},
		{
			name:  "json wrapped in prose",
			reply: "Sure! Here is the result:\n```json\n{\"summary\":\"S {1}\",\"simplified\":\"X\"}\n```\nHope it helps.",
			want:  Result{Summary: "S {1}", Simplified: "X"},
		},
		{
			name:  "prose only",
			reply: prose,
			want:  Result{Summary: prose[:300], Simplified: prose},
		},
		{
			name:  "object without known fields",
			reply: `{"answer":"nope"}`,
			want:  Result{Summary: `{"answer":"nope"}`, Simplified: `{"answer":"nope"}`},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewTextService(&stubProvider{reply: tc.reply}, 10000, 300)

			got, err := svc.Summarize(context.Background(), "some lecture text")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSummarizeProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewTextService(&stubProvider{err: boom}, 0, 0)

	if _, err := svc.Summarize(context.Background(), "text"); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSummarizeTruncatesInput(t *testing.T) {
	stub := &stubProvider{reply: `{"summary":"s","simplified":"x"}`}
	svc := NewTextService(stub, 50, 300)

	if _, err := svc.Summarize(context.Background(), strings.Repeat("é", 500)); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	doc := documentFromPrompt(stub.prompts[0])
	if n := utf8.RuneCountInString(doc); n != 50 {
		t.Fatalf("document sent with %d runes, want 50", n)
	}
}

func TestFirstObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`prefix {"a":1} suffix {"b":2}`, `{"a":1}`, true},
		{`x {"a":"}{"} y`, `{"a":"}{"}`, true},
		{`{"a":"\"}"}`, `{"a":"\"}"}`, true},
		{`{"a":{"b":{}}} tail`, `{"a":{"b":{}}}`, true},
		{`no braces here`, "", false},
		{`{"unbalanced":`, "", false},
	}

	for _, tc := range cases {
		got, ok := FirstObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("FirstObject(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo wörld", 4); got != "héll" {
		t.Fatalf("got %q", got)
	}

	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}

	if got := TruncateRunes("abc", 0); got != "abc" {
		t.Fatalf("non-positive limit should not truncate, got %q", got)
	}
}

func TestEchoProviderRoundTrip(t *testing.T) {
	svc := NewTextService(Echo{}, 0, 0)

	got, err := svc.Summarize(context.Background(), "Photosynthesis turns light into sugar.  Plants   need water.")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if got.Summary != "Photosynthesis turns light into sugar." {
		t.Errorf("summary = %q", got.Summary)
	}

	if got.Simplified != "Photosynthesis turns light into sugar. Plants need water." {
		t.Errorf("simplified = %q", got.Simplified)
	}
}
