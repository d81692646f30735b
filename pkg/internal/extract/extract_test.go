package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)

	for _, line := range lines {
		doc.Cell(0, 8, line)
		doc.Ln(10)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}

	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	data := buildPDF(t, "Cellular respiration", "Mitochondria")

	for _, ct := range []string{"application/pdf", "application/octet-stream", ""} {
		text, err := New().Extract(context.Background(), data, ct)
		if err != nil {
			t.Fatalf("content type %q: %v", ct, err)
		}

		if !strings.Contains(text, "Cellular") || !strings.Contains(text, "Mitochondria") {
			t.Fatalf("content type %q: unexpected text %q", ct, text)
		}
	}
}

func TestExtractText(t *testing.T) {
	text, err := New().Extract(context.Background(), []byte("  \n Hello, world \xff!\n\n"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if text != "Hello, world �!" {
		t.Fatalf("got %q", text)
	}
}

func TestExtractEmpty(t *testing.T) {
	if _, err := New().Extract(context.Background(), []byte(" \t\n "), "text/plain"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestExtractBrokenPDF(t *testing.T) {
	if _, err := New().Extract(context.Background(), []byte("%PDF-1.4 garbage"), "application/pdf"); err == nil {
		t.Fatal("expected error for broken pdf")
	}
}

func TestIsPDF(t *testing.T) {
	if !IsPDF("application/pdf; name=a.pdf", nil) {
		t.Error("pdf mime with params not detected")
	}

	if IsPDF("text/plain", []byte("plain")) {
		t.Error("plain text detected as pdf")
	}
}
