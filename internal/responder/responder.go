// Package responder turns a message plus conversation context into reply
// text. Generation goes through an ai.Provider; when the provider fails, a
// canned phrase in the detected language is used instead so the bot never
// goes silent after deciding to speak.
package responder

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/borovikovd/oleg-bot/internal/ai"
	"github.com/borovikovd/oleg-bot/internal/store"
	"github.com/borovikovd/oleg-bot/internal/tone"
)

const (
	contextMessages = 5
	maxResponseLen  = 500
)

var languageInstructions = map[string]string{
	"en": "Respond in English",
	"es": "Responde en español",
	"fr": "Répondez en français",
	"de": "Antworte auf Deutsch",
	"it": "Rispondi in italiano",
	"pt": "Responda em português",
	"ru": "Отвечай на русском языке",
	"ja": "日本語で答えてください",
	"zh": "请用中文回答",
	"ko": "한국어로 대답해주세요",
	"ar": "أجب باللغة العربية",
	"hi": "हिंदी में उत्तर दें",
}

var fallbackPhrases = map[string][]string{
	"en": {
		"Interesting point! 🤔",
		"I see what you mean.",
		"That's worth thinking about.",
		"Fair enough!",
		"Good observation.",
	},
	"es": {
		"¡Punto interesante! 🤔",
		"Entiendo lo que quieres decir.",
		"Eso vale la pena pensarlo.",
		"¡Justo!",
		"Buena observación.",
	},
	"ru": {
		"Интересная мысль! 🤔",
		"Понимаю, что ты имеешь в виду.",
		"Над этим стоит подумать.",
		"Справедливо!",
		"Хорошее наблюдение.",
	},
	"fr": {
		"Point intéressant ! 🤔",
		"Je vois ce que tu veux dire.",
		"Ça vaut la peine d'y réfléchir.",
		"C'est juste !",
		"Bonne observation.",
	},
}

// Responder wraps a generation provider with prompt building, response
// cleanup, fallbacks and usage tracking.
type Responder struct {
	provider ai.Provider

	mu            sync.Mutex // guards rng and the counters
	rng           *rand.Rand
	totalRequests int
	totalFailures int
}

func NewResponder(provider ai.Provider) *Responder {
	return NewResponderWithRand(provider, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewResponderWithRand allows a seeded source for deterministic fallback
// selection in tests.
func NewResponderWithRand(provider ai.Provider, rng *rand.Rand) *Responder {
	return &Responder{provider: provider, rng: rng}
}

// Respond generates a reply to msg given recent conversation, the detected
// language and tone hints. The returned flag reports whether the canned
// fallback was used instead of generated text.
func (r *Responder) Respond(msg store.Message, recent []store.Message, language string, hints tone.Hints) (string, bool) {
	r.mu.Lock()
	r.totalRequests++
	r.mu.Unlock()

	messages := []ai.Message{
		{Role: "system", Content: r.buildSystemPrompt(language, hints)},
		{Role: "user", Content: r.buildUserPrompt(msg, recent)},
	}

	text, err := r.provider.Generate(messages)
	if err != nil {
		log.Printf("[RESPONDER] generation failed, using fallback: %v", err)
		r.mu.Lock()
		r.totalFailures++
		r.mu.Unlock()
		return r.fallback(language, hints), true
	}

	cleaned := cleanResponse(text)
	if cleaned == "" {
		log.Printf("[RESPONDER] empty generation, using fallback")
		r.mu.Lock()
		r.totalFailures++
		r.mu.Unlock()
		return r.fallback(language, hints), true
	}
	return cleaned, false
}

func (r *Responder) buildSystemPrompt(language string, hints tone.Hints) string {
	languageInstruction, ok := languageInstructions[language]
	if !ok {
		languageInstruction = fmt.Sprintf("Respond in %s if possible, otherwise English", language)
	}

	formalityInstruction := "Use casual, friendly language"
	if hints.Formality == tone.Formal {
		formalityInstruction = "Use formal language and avoid excessive emojis"
	}

	emojiInstruction := "Use emojis sparingly"
	if hints.HasHighEmoji {
		emojiInstruction = "Feel free to use emojis to match the conversation style"
	}

	return fmt.Sprintf(`You are Oleg, a witty and engaging chatbot participating in a group chat.

Key traits:
- Witty and sometimes sarcastic, but not mean-spirited
- Conversational and natural, like a friend in the group
- Brief responses (under 100 words, preferably 1-2 sentences)
- Contextually aware of the ongoing conversation
- Adapt to the group's communication style

Language: %s
Tone: %s
Emojis: %s

Remember: Be helpful when asked direct questions, but primarily focus on natural conversation flow. Don't be overly formal or robotic.`,
		languageInstruction, formalityInstruction, emojiInstruction)
}

func (r *Responder) buildUserPrompt(msg store.Message, recent []store.Message) string {
	return fmt.Sprintf(`Recent conversation:
%s

Latest message to respond to: %q

Generate a natural, witty response that fits the conversation flow. Keep it brief and engaging.`,
		conversationContext(recent), msg.Text)
}

func conversationContext(recent []store.Message) string {
	if len(recent) == 0 {
		return "No recent conversation context."
	}
	if len(recent) > contextMessages {
		recent = recent[len(recent)-contextMessages:]
	}

	var lines []string
	for _, m := range recent {
		if m.Text == "" {
			continue
		}
		sender := fmt.Sprintf("User%d", m.UserID)
		if m.IsBot {
			sender = "Bot"
		}
		lines = append(lines, sender+": "+m.Text)
	}
	if len(lines) == 0 {
		return "No text messages in recent context."
	}
	return strings.Join(lines, "\n")
}

func cleanResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) {
		cleaned = strings.TrimSpace(cleaned[1 : len(cleaned)-1])
	}
	// Truncate by runes so a multi-byte character is never cut in half;
	// Telegram rejects invalid UTF-8.
	if runes := []rune(cleaned); len(runes) > maxResponseLen {
		cleaned = string(runes[:maxResponseLen-3]) + "..."
	}
	return cleaned
}

func (r *Responder) fallback(language string, hints tone.Hints) string {
	phrases, ok := fallbackPhrases[language]
	if !ok {
		phrases = fallbackPhrases["en"]
	}
	r.mu.Lock()
	phrase := phrases[r.rng.Intn(len(phrases))]
	r.mu.Unlock()
	if hints.Formality == tone.Formal {
		phrase = strings.ReplaceAll(phrase, " 🤔", "")
	}
	return phrase
}

// GetStats reports request counters for the /stats command.
func (r *Responder) GetStats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]any{
		"total_requests": r.totalRequests,
		"total_failures": r.totalFailures,
	}
}
