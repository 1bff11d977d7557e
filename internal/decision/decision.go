// Package decision is the authority on whether and how the bot participates
// in a chat. Per inbound message it builds a context snapshot, walks an
// ordered rule cascade (first match wins), and tracks a rolling reply quota.
package decision

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/borovikovd/oleg-bot/internal/language"
	"github.com/borovikovd/oleg-bot/internal/store"
	"github.com/borovikovd/oleg-bot/internal/tone"
)

// Action is what the bot does with a message.
type Action string

const (
	ActionReply  Action = "reply"
	ActionReact  Action = "react"
	ActionIgnore Action = "ignore"
)

// Limited tags a REACT outcome that stands in for a rate-limited reply, so
// the caller can pick a matching reaction flavor without parsing reasoning
// strings.
type Limited string

const (
	LimitedNone    Limited = ""
	LimitedMention Limited = "mention"
	LimitedReply   Limited = "reply"
)

// Result is the outcome of one evaluation. Confidence is advisory only;
// Reasoning is for logs.
type Result struct {
	Action        Action
	Confidence    float64
	Reasoning     string
	ShouldProcess bool
	Limited       Limited
}

// Context is the per-message snapshot the rules evaluate. Built once per
// ShouldRespond call and discarded.
type Context struct {
	ChatID           int64
	MessageID        int
	UserID           int64
	Text             string
	IsDirectMention  bool
	IsReplyToBot     bool
	RecentMessages   []store.Message
	TopicHeat        float64
	TimeSinceLastBot float64 // seconds, +Inf when the bot never spoke
	QuotaUsage       float64
	Language         string
	Tone             tone.Hints
}

// Config holds the engine's runtime-tunable parameters.
type Config struct {
	BotUsername         string
	ReplyTargetRatio    float64 // fraction of messages that should get a reply
	GapMinSeconds       int     // minimum spacing between bot messages per chat
	TopicHeatThreshold  float64
	ReactionProbability float64 // chance of reacting instead of replying on hot topics
}

// DefaultConfig returns the tuning the bot ships with.
func DefaultConfig() Config {
	return Config{
		BotUsername:         "oleg_bot",
		ReplyTargetRatio:    0.10,
		GapMinSeconds:       20,
		TopicHeatThreshold:  0.6,
		ReactionProbability: 0.3,
	}
}

const (
	// quotaResetInterval — counters roll over hourly, checked lazily on read.
	quotaResetInterval = time.Hour

	// contextWindow — how many recent messages feed the context snapshot.
	contextWindow = 20

	// heatWindow — trailing window for topic-heat scoring.
	heatWindow = 5 * time.Minute
)

// Stats is a snapshot of engine state for the admin surface.
type Stats struct {
	MessageCount       int
	ReplyCount         int
	QuotaUsage         float64
	TargetRatio        float64
	GapMinSeconds      int
	TopicHeatThreshold float64
	LastReset          time.Time
}

// Engine decides per message and tracks the rolling quota. Safe for
// concurrent use; decisions for the same chat should still be serialized by
// the caller so pacing checks see prior bot messages.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	store *store.Store
	langs *language.Detector
	tones *tone.Analyzer

	messageCount int
	replyCount   int
	lastReset    time.Time

	mentionRe []*regexp.Regexp

	rng *rand.Rand
	now func() time.Time
}

// New creates an Engine over the given store and analyzers.
func New(cfg Config, st *store.Store, langs *language.Detector, tones *tone.Analyzer) *Engine {
	if cfg.BotUsername == "" {
		cfg.BotUsername = DefaultConfig().BotUsername
	}
	e := &Engine{
		cfg:   cfg,
		store: st,
		langs: langs,
		tones: tones,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	e.lastReset = e.now()
	e.rebuildMentionPatterns()
	log.Printf("[DECIDE] engine initialized: target_ratio=%.2f gap=%ds heat_threshold=%.2f",
		cfg.ReplyTargetRatio, cfg.GapMinSeconds, cfg.TopicHeatThreshold)
	return e
}

// ShouldRespond is the sole entry point: it evaluates one inbound message
// and returns the action to take. Every call counts toward the quota.
func (e *Engine) ShouldRespond(chatID int64, msg store.Message) Result {
	ctx := e.buildContext(chatID, msg)
	res := e.applyRules(ctx)

	e.mu.Lock()
	e.messageCount++
	if res.Action == ActionReply {
		e.replyCount++
	}
	e.mu.Unlock()

	log.Printf("[DECIDE] message %d: action=%s confidence=%.2f reason=%q",
		msg.ID, res.Action, res.Confidence, res.Reasoning)
	return res
}

func (e *Engine) buildContext(chatID int64, msg store.Message) Context {
	recent := e.store.Messages(chatID, contextWindow)

	texts := make([]string, 0, len(recent))
	for _, m := range recent {
		if m.Text != "" {
			texts = append(texts, m.Text)
		}
	}

	return Context{
		ChatID:           chatID,
		MessageID:        msg.ID,
		UserID:           msg.UserID,
		Text:             msg.Text,
		IsDirectMention:  e.isDirectMention(msg.Text),
		IsReplyToBot:     isReplyToBot(msg, recent),
		RecentMessages:   recent,
		TopicHeat:        e.topicHeat(recent),
		TimeSinceLastBot: e.TimeSinceLastBotMessage(chatID),
		QuotaUsage:       e.QuotaUsage(),
		Language:         e.langs.DetectFromMessages(texts),
		Tone:             e.tones.Analyze(texts),
	}
}

// applyRules walks the cascade in priority order; the first matching rule
// wins.
func (e *Engine) applyRules(ctx Context) Result {
	e.mu.Lock()
	gap := float64(e.cfg.GapMinSeconds)
	targetRatio := e.cfg.ReplyTargetRatio
	heatThreshold := e.cfg.TopicHeatThreshold
	reactionProb := e.cfg.ReactionProbability
	e.mu.Unlock()

	// R1: direct mentions always get a response; a reaction when paced out.
	if ctx.IsDirectMention {
		if ctx.TimeSinceLastBot >= gap {
			return Result{ActionReply, 0.95, "Direct mention detected", true, LimitedNone}
		}
		return Result{ActionReact, 0.8, "Direct mention but rate limited, reacting instead", true, LimitedMention}
	}

	// R2: replies to the bot's own messages.
	if ctx.IsReplyToBot {
		if ctx.TimeSinceLastBot >= gap {
			return Result{ActionReply, 0.9, "Reply to bot message", true, LimitedNone}
		}
		return Result{ActionReact, 0.7, "Reply to bot but rate limited, reacting instead", true, LimitedReply}
	}

	// R3: pacing gap not yet elapsed.
	if ctx.TimeSinceLastBot < gap {
		return Result{
			Action:     ActionIgnore,
			Confidence: 0.9,
			Reasoning:  fmt.Sprintf("Rate limited: %.1fs < %.0fs", ctx.TimeSinceLastBot, gap),
		}
	}

	// R4: rolling quota exhausted.
	if ctx.QuotaUsage >= targetRatio {
		return Result{
			Action:     ActionIgnore,
			Confidence: 0.8,
			Reasoning:  fmt.Sprintf("Quota exceeded: %.1f%% >= %.1f%%", ctx.QuotaUsage*100, targetRatio*100),
		}
	}

	// R5: join hot topics, sometimes with just an emoji.
	if ctx.TopicHeat >= heatThreshold {
		if e.chance(reactionProb) {
			return Result{ActionReact, 0.6,
				fmt.Sprintf("Hot topic participation (react): heat=%.2f", ctx.TopicHeat), true, LimitedNone}
		}
		return Result{ActionReply, 0.6,
			fmt.Sprintf("Hot topic participation (reply): heat=%.2f", ctx.TopicHeat), true, LimitedNone}
	}

	// R6: random trickle participation scaled by remaining quota.
	if remaining := targetRatio - ctx.QuotaUsage; remaining > 0 {
		prob := math.Min(remaining*2, 0.10)
		if e.chance(prob) {
			return Result{ActionReply, 0.4,
				fmt.Sprintf("Random participation: prob=%.1f%%", prob*100), true, LimitedNone}
		}
	}

	return Result{Action: ActionIgnore, Confidence: 0.5, Reasoning: "No compelling reason to respond"}
}

func (e *Engine) chance(p float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < p
}

// isDirectMention matches @username, the bare username, and the invocation
// words ("bot" and the bot's given name).
func (e *Engine) isDirectMention(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	e.mu.Lock()
	patterns := e.mentionRe
	e.mu.Unlock()
	for _, re := range patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// rebuildMentionPatterns compiles the mention matchers for the current
// username. Caller must hold no locks or e.mu consistently; it is invoked
// from New and UpdateSettings.
func (e *Engine) rebuildMentionPatterns() {
	username := strings.ToLower(e.cfg.BotUsername)
	escaped := regexp.QuoteMeta(username)

	patterns := []*regexp.Regexp{
		regexp.MustCompile(`@` + escaped + `\b`),
		regexp.MustCompile(`\b` + escaped + `\b`),
		regexp.MustCompile(`\bbot\b`),
	}
	if given := givenName(username); given != "" && given != username {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(given)+`\b`))
	}
	e.mentionRe = patterns
}

// givenName derives the bot's call name from its username: "oleg_bot" and
// "olegbot" both answer to "oleg".
func givenName(username string) string {
	name := strings.TrimSuffix(username, "_bot")
	name = strings.TrimSuffix(name, "bot")
	return strings.Trim(name, "_")
}

// isReplyToBot resolves the reply target within the recent window and checks
// it was bot-authored. Unresolvable targets simply do not match.
func isReplyToBot(msg store.Message, recent []store.Message) bool {
	if msg.ReplyToID == 0 {
		return false
	}
	for _, m := range recent {
		if m.ID == msg.ReplyToID {
			return m.IsBot
		}
	}
	return false
}

// topicHeat scores recent conversational intensity: message rate, participant
// diversity and reply density over a trailing 5-minute window, normalized to
// [0,1].
func (e *Engine) topicHeat(recent []store.Message) float64 {
	if len(recent) < 2 {
		return 0
	}

	now := e.now()
	var inWindow []store.Message
	for _, m := range recent {
		if now.Sub(m.Timestamp) <= heatWindow {
			inWindow = append(inWindow, m)
		}
	}
	if len(inWindow) == 0 {
		return 0
	}

	messageRate := float64(len(inWindow)) / heatWindow.Minutes()

	users := make(map[int64]struct{}, len(inWindow))
	for _, m := range inWindow {
		users[m.UserID] = struct{}{}
	}
	diversity := math.Min(float64(len(users))/3.0, 1.0)

	replies := 0
	for _, m := range inWindow {
		if m.ReplyToID != 0 {
			replies++
		}
	}
	replyFraction := math.Min(float64(replies)/float64(len(inWindow)), 0.5)

	heat := messageRate*0.4 + diversity*0.4 + replyFraction*0.2
	return math.Min(heat/2.0, 1.0)
}

// TimeSinceLastBotMessage returns seconds since the bot's last message in
// the chat, or +Inf when the bot has not spoken within the last hour.
func (e *Engine) TimeSinceLastBotMessage(chatID int64) float64 {
	if !e.store.HasRecentBotMessage(chatID, time.Hour) {
		return math.Inf(1)
	}
	msgs := e.store.Messages(chatID, 50)
	now := e.now()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsBot {
			return now.Sub(msgs[i].Timestamp).Seconds()
		}
	}
	return math.Inf(1)
}

// QuotaUsage returns the rolling reply/message ratio, resetting the counters
// first if the hourly interval has elapsed.
func (e *Engine) QuotaUsage() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.now().Sub(e.lastReset) >= quotaResetInterval {
		e.messageCount = 0
		e.replyCount = 0
		e.lastReset = e.now()
	}
	if e.messageCount == 0 {
		return 0
	}
	return float64(e.replyCount) / float64(e.messageCount)
}

// UpdateSettings applies recognized configuration keys; unknown keys are
// logged and ignored. Values arrive pre-validated by the admin surface.
func (e *Engine) UpdateSettings(settings map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, value := range settings {
		switch key {
		case "bot_username":
			if v, ok := value.(string); ok && v != "" {
				log.Printf("[DECIDE] updated bot_username: %s -> %s", e.cfg.BotUsername, v)
				e.cfg.BotUsername = v
				e.rebuildMentionPatterns()
			}
		case "reply_target_ratio":
			if v, ok := toFloat(value); ok {
				log.Printf("[DECIDE] updated reply_target_ratio: %.2f -> %.2f", e.cfg.ReplyTargetRatio, v)
				e.cfg.ReplyTargetRatio = v
			}
		case "gap_min_seconds":
			if v, ok := toInt(value); ok {
				log.Printf("[DECIDE] updated gap_min_seconds: %d -> %d", e.cfg.GapMinSeconds, v)
				e.cfg.GapMinSeconds = v
			}
		case "topic_heat_threshold":
			if v, ok := toFloat(value); ok {
				log.Printf("[DECIDE] updated topic_heat_threshold: %.2f -> %.2f", e.cfg.TopicHeatThreshold, v)
				e.cfg.TopicHeatThreshold = v
			}
		case "reaction_probability":
			if v, ok := toFloat(value); ok {
				log.Printf("[DECIDE] updated reaction_probability: %.2f -> %.2f", e.cfg.ReactionProbability, v)
				e.cfg.ReactionProbability = v
			}
		default:
			log.Printf("[DECIDE] unknown setting %q ignored", key)
		}
	}
}

// Settings returns a copy of the current configuration.
func (e *Engine) Settings() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// GetStats returns the current quota counters and tuning.
func (e *Engine) GetStats() Stats {
	usage := e.QuotaUsage()
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		MessageCount:       e.messageCount,
		ReplyCount:         e.replyCount,
		QuotaUsage:         usage,
		TargetRatio:        e.cfg.ReplyTargetRatio,
		GapMinSeconds:      e.cfg.GapMinSeconds,
		TopicHeatThreshold: e.cfg.TopicHeatThreshold,
		LastReset:          e.lastReset,
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
