package language_test

import (
	"testing"

	"github.com/borovikovd/oleg-bot/internal/language"
)

func TestDetectEnglish(t *testing.T) {
	d := language.NewDetector()
	got := d.Detect("Hello there, how are you doing today? The weather is wonderful.")
	if got != "en" {
		t.Errorf("Detect = %q, want en", got)
	}
}

func TestDetectRussian(t *testing.T) {
	d := language.NewDetector()
	got := d.Detect("Привет, как дела? Сегодня отличная погода, пойдём гулять.")
	if got != "ru" {
		t.Errorf("Detect = %q, want ru", got)
	}
}

func TestShortTextFallsBack(t *testing.T) {
	d := language.NewDetector()
	for _, text := range []string{"", "  ", "ok", "hm"} {
		if got := d.Detect(text); got != "en" {
			t.Errorf("Detect(%q) = %q, want fallback en", text, got)
		}
	}
}

func TestNoiseOnlyFallsBack(t *testing.T) {
	d := language.NewDetector()
	for _, text := range []string{
		"https://example.com/some/path",
		"@someone #topic",
		"!!! ??? ...",
	} {
		if got := d.Detect(text); got != "en" {
			t.Errorf("Detect(%q) = %q, want fallback en", text, got)
		}
	}
}

func TestURLStrippedBeforeDetection(t *testing.T) {
	d := language.NewDetector()
	got := d.Detect("schau dir das an, es ist wirklich unglaublich interessant https://example.com/x")
	if got != "de" {
		t.Errorf("Detect = %q, want de", got)
	}
}

func TestDetectFromMessages(t *testing.T) {
	d := language.NewDetector()

	got := d.DetectFromMessages([]string{"the quick brown fox", "", "jumps over the lazy dog"})
	if got != "en" {
		t.Errorf("DetectFromMessages = %q, want en", got)
	}

	if got := d.DetectFromMessages(nil); got != "en" {
		t.Errorf("DetectFromMessages(nil) = %q, want fallback en", got)
	}
}

func TestCustomFallback(t *testing.T) {
	d := language.NewDetectorWithFallback("ru")
	if got := d.Detect("ok"); got != "ru" {
		t.Errorf("Detect short text = %q, want configured fallback ru", got)
	}
	if d.Fallback() != "ru" {
		t.Errorf("Fallback() = %q, want ru", d.Fallback())
	}
}
