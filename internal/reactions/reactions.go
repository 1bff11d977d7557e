// Package reactions picks emoji reactions matched to message sentiment,
// conversation tone and language.
package reactions

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/borovikovd/oleg-bot/internal/tone"
)

// SentimentContext tags the flavor of reaction pool to draw from.
type SentimentContext string

const (
	ContextNeutral  SentimentContext = "neutral"
	ContextPositive SentimentContext = "positive"
	ContextNegative SentimentContext = "negative"
	ContextFunny    SentimentContext = "funny"
	ContextThinking SentimentContext = "thinking"
	ContextSupport  SentimentContext = "support"
)

var basePools = map[SentimentContext][]string{
	ContextPositive: {"👍", "❤️", "😊", "🎉", "✨", "🔥", "💯"},
	ContextNegative: {"👎", "😔", "🤔", "😬", "😅"},
	ContextNeutral:  {"👀", "🤷", "🙃", "😐", "🤖"},
	ContextFunny:    {"😂", "🤣", "😄", "😆", "🤭", "😹"},
	ContextThinking: {"🤔", "💭", "🧠", "💡", "🔍"},
	ContextSupport:  {"❤️", "🤗", "💪", "👏", "🙌", "✊"},
}

var languagePools = map[string][]string{
	"ru": {"🇷🇺", "💔", "🥃", "🐻"},
	"es": {"🇪🇸", "💃", "🌶️", "⚽"},
	"fr": {"🇫🇷", "🥖", "🍷", "🎨"},
	"de": {"🇩🇪", "🍺", "⚽", "🥨"},
	"it": {"🇮🇹", "🍕", "🍝", "🤌"},
	"ja": {"🇯🇵", "🍜", "🎌", "🌸"},
	"zh": {"🇨🇳", "🥢", "🐉", "🎋"},
}

var (
	formalPool = []string{"👍", "👌", "✅", "💼", "📊", "📈"}
	casualPool = []string{"😎", "🤘", "🙌", "🔥", "💯", "😂"}

	expressivePool = []string{"🎉", "✨", "🔥", "💯", "🙌", "🤘", "😎"}
	restrainedPool = []string{"👍", "👌", "✅", "💼"}

	tooCasualForFormal = []string{"🤘", "🔥", "💯", "😂", "🤣"}
)

// keywordRule maps a keyword set to a sentiment context. Rules are evaluated
// in order; the first set with a match wins.
type keywordRule struct {
	context  SentimentContext
	keywords []string
}

var keywordRules = []keywordRule{
	{ContextFunny, []string{
		"lol", "haha", "funny", "joke", "laugh", "humor", "hilarious",
		"comedy", "meme", "rofl", "lmao", "😂", "🤣",
	}},
	{ContextPositive, []string{
		"good", "great", "awesome", "amazing", "perfect", "love", "happy",
		"thanks", "thank", "excellent", "wonderful", "fantastic", "brilliant",
	}},
	{ContextNegative, []string{
		"bad", "terrible", "awful", "hate", "sad", "angry", "frustrated",
		"disappointed", "wrong", "problem", "issue", "error", "fail",
	}},
	{ContextThinking, []string{
		"think", "wonder", "question", "why", "how", "what", "hmm",
		"curious", "consider", "analyze", "understand", "explain",
	}},
}

// languageFlavorChance — odds of mixing language-specific emoji into the pool.
const languageFlavorChance = 0.2

// Picker selects reactions. The random source is injectable for tests and
// guarded by a mutex; webhook handlers call Choose concurrently.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker returns a Picker seeded from the clock.
func NewPicker() *Picker {
	return &Picker{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewPickerWithRand returns a Picker over the given random source.
func NewPickerWithRand(rng *rand.Rand) *Picker {
	return &Picker{rng: rng}
}

// Choose picks a reaction for a message, adjusting the pool for detected
// sentiment, tone and language.
func (p *Picker) Choose(text string, hints tone.Hints, lang string, ctx SentimentContext) string {
	pool := poolFor(text, ctx)
	pool = adjustForTone(pool, hints)

	if flavored, ok := languagePools[lang]; ok && p.chance(languageFlavorChance) {
		pool = append(pool, flavored...)
	}

	return p.pick(pool)
}

// ForMention picks an acknowledgment reaction for a rate-limited mention.
func (p *Picker) ForMention(hints tone.Hints) string {
	if hints.Formality == tone.Formal {
		return p.pick([]string{"👍", "✅", "👌"})
	}
	return p.pick([]string{"👋", "👀", "🤖", "✋", "👍", "🙋"})
}

// ForReply picks an engagement reaction for a rate-limited reply to the bot.
func (p *Picker) ForReply(hints tone.Hints) string {
	pool := []string{"👀", "🤔", "💭", "👍", "🙂"}
	if hints.HasHighEmoji {
		pool = append(pool, "😊", "😉", "🤗")
	}
	return p.pick(pool)
}

func (p *Picker) pick(pool []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pool[p.rng.Intn(len(pool))]
}

func (p *Picker) chance(prob float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < prob
}

// ClassifySentiment returns the sentiment context the keyword table assigns
// to the text, or the given default when nothing matches.
func ClassifySentiment(text string, fallback SentimentContext) SentimentContext {
	if text == "" {
		return fallback
	}
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.context
			}
		}
	}
	return fallback
}

// Stats reports the picker's emoji inventory for the admin surface.
type Stats struct {
	TotalReactionTypes int
	SupportedLanguages int
	LanguageCodes      []string
}

// GetStats counts distinct reactions across the base pools.
func GetStats() Stats {
	seen := make(map[string]struct{})
	for _, pool := range basePools {
		for _, r := range pool {
			seen[r] = struct{}{}
		}
	}
	codes := make([]string, 0, len(languagePools))
	for code := range languagePools {
		codes = append(codes, code)
	}
	return Stats{
		TotalReactionTypes: len(seen),
		SupportedLanguages: len(languagePools),
		LanguageCodes:      codes,
	}
}

func poolFor(text string, ctx SentimentContext) []string {
	if text == "" {
		return clone(basePools[ContextNeutral])
	}
	ctx = ClassifySentiment(text, ctx)
	pool, ok := basePools[ctx]
	if !ok {
		pool = basePools[ContextNeutral]
	}
	return clone(pool)
}

// adjustForTone widens or narrows the pool by register: formal conversations
// drop the rowdier emoji, emoji-heavy ones get more expressive options.
func adjustForTone(pool []string, hints tone.Hints) []string {
	if hints.Formality == tone.Formal {
		pool = append(pool, formalPool...)
		pool = without(pool, tooCasualForFormal)
	} else {
		pool = append(pool, casualPool...)
	}

	if hints.HasHighEmoji {
		pool = append(pool, expressivePool...)
	} else {
		pool = append(pool, restrainedPool...)
	}

	return dedupe(pool)
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func without(pool, drop []string) []string {
	dropSet := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		dropSet[d] = struct{}{}
	}
	out := pool[:0]
	for _, r := range pool {
		if _, skip := dropSet[r]; !skip {
			out = append(out, r)
		}
	}
	return out
}

func dedupe(pool []string) []string {
	seen := make(map[string]struct{}, len(pool))
	out := pool[:0]
	for _, r := range pool {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
