// Package language picks a dominant ISO 639-1 language code for recent
// message batches. Detection is statistical (lingua); anything that cannot be
// classified degrades to the configured fallback code, never an error.
package language

import (
	"regexp"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// DefaultFallback is used when detection is impossible or unreliable.
const DefaultFallback = "en"

// minDetectableLength — cleaned text shorter than this is too unreliable to
// classify and short-circuits to the fallback.
const minDetectableLength = 3

var (
	urlRe        = regexp.MustCompile(`https?://[^\s]+`)
	mentionTagRe = regexp.MustCompile(`[@#]\w+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// supportedLanguages mirrors the set of languages the bot knows how to
// respond in. Restricting the detector keeps classification fast and avoids
// exotic false positives on short chat messages.
var supportedLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German,
	lingua.Italian, lingua.Portuguese, lingua.Russian, lingua.Chinese,
	lingua.Japanese, lingua.Korean, lingua.Arabic, lingua.Hindi,
	lingua.Turkish, lingua.Polish, lingua.Dutch, lingua.Swedish,
	lingua.Danish, lingua.Finnish, lingua.Ukrainian, lingua.Czech,
	lingua.Hungarian, lingua.Romanian, lingua.Bulgarian, lingua.Croatian,
	lingua.Slovak, lingua.Slovene, lingua.Estonian, lingua.Latvian,
	lingua.Lithuanian,
}

// Detector wraps the statistical language identifier with input cleanup and
// a fallback contract. Safe for concurrent use.
type Detector struct {
	fallback string
	detector lingua.LanguageDetector
}

// NewDetector returns a Detector falling back to English.
func NewDetector() *Detector {
	return NewDetectorWithFallback(DefaultFallback)
}

// NewDetectorWithFallback returns a Detector with a custom fallback code.
func NewDetectorWithFallback(fallback string) *Detector {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Detector{
		fallback: fallback,
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			Build(),
	}
}

// DetectFromMessages joins the non-empty texts and detects the dominant
// language of the combined batch.
func (d *Detector) DetectFromMessages(messages []string) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m) != "" {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return d.fallback
	}
	return d.Detect(strings.Join(parts, " "))
}

// Detect returns the ISO 639-1 code for text, or the fallback when the text
// is too short or unclassifiable.
func (d *Detector) Detect(text string) string {
	cleaned := cleanText(text)
	if len([]rune(cleaned)) < minDetectableLength {
		return d.fallback
	}

	lang, ok := d.detector.DetectLanguageOf(cleaned)
	if !ok {
		return d.fallback
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Fallback returns the configured fallback code.
func (d *Detector) Fallback() string {
	return d.fallback
}

// cleanText strips URLs, @mentions, #hashtags and symbol-only noise that
// skews classification, then collapses whitespace.
func cleanText(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	text = mentionTagRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	// Drop input that is nothing but symbols or emoji.
	hasWord := false
	for _, r := range text {
		if r == ' ' {
			continue
		}
		if isWordRune(r) {
			hasWord = true
			break
		}
	}
	if !hasWord {
		return ""
	}
	return text
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r > 0x80 && r < 0x2700: // accented letters, Cyrillic, CJK below symbol blocks
		return true
	case r >= 0x2E80 && r < 0xFFFD: // CJK and beyond, excluding emoji planes
		return true
	}
	return false
}
