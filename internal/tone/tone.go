// Package tone derives coarse stylistic signals from recent message batches.
// The hints steer reaction choice and response generation style.
package tone

import "strings"

const (
	DefaultHighEmojiThreshold    = 0.02
	DefaultFormalLengthThreshold = 18.0
)

// Formality classifies the conversation register.
type Formality string

const (
	Formal Formality = "formal"
	Casual Formality = "casual"
)

// Hints are the analysis results for one message batch. Recomputed fresh on
// every call; nothing is persisted.
type Hints struct {
	EmojiDensity     float64
	Formality        Formality
	AvgMessageLength float64 // words per message
	HasHighEmoji     bool
}

// Analyzer scores message batches against two configurable thresholds.
type Analyzer struct {
	highEmojiThreshold    float64
	formalLengthThreshold float64
}

// NewAnalyzer returns an Analyzer with the default thresholds.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		highEmojiThreshold:    DefaultHighEmojiThreshold,
		formalLengthThreshold: DefaultFormalLengthThreshold,
	}
}

// NewAnalyzerWithThresholds returns an Analyzer with custom thresholds.
// Non-positive values fall back to the defaults.
func NewAnalyzerWithThresholds(highEmoji, formalLength float64) *Analyzer {
	a := NewAnalyzer()
	if highEmoji > 0 {
		a.highEmojiThreshold = highEmoji
	}
	if formalLength > 0 {
		a.formalLengthThreshold = formalLength
	}
	return a
}

// Analyze scores a batch of message texts. Blank entries are ignored; an
// effectively empty batch yields neutral defaults. Pure function of its input.
func (a *Analyzer) Analyze(messages []string) Hints {
	valid := messages[:0:0]
	for _, m := range messages {
		if strings.TrimSpace(m) != "" {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		return Hints{Formality: Casual}
	}

	density := emojiDensity(valid)
	avgLen := avgWordCount(valid)

	formality := Casual
	if avgLen > a.formalLengthThreshold {
		formality = Formal
	}

	return Hints{
		EmojiDensity:     density,
		Formality:        formality,
		AvgMessageLength: avgLen,
		HasHighEmoji:     density > a.highEmojiThreshold,
	}
}

// emojiRanges are the Unicode code point ranges counted as emoji: emoticons,
// symbols & pictographs, transport & map symbols, flags, dingbats, and
// enclosed characters.
var emojiRanges = [...][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// emojiDensity is emoji code points over total code points across the batch.
func emojiDensity(messages []string) float64 {
	var total, emoji int
	for _, m := range messages {
		for _, r := range m {
			total++
			if isEmoji(r) {
				emoji++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(emoji) / float64(total)
}

func avgWordCount(messages []string) float64 {
	var words int
	for _, m := range messages {
		words += len(strings.Fields(m))
	}
	return float64(words) / float64(len(messages))
}
