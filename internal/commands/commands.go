// Package commands implements the slash-command admin surface. Tuning
// commands require an admin user id; read-only commands are open to anyone
// in the chat.
package commands

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/borovikovd/oleg-bot/internal/decision"
	"github.com/borovikovd/oleg-bot/internal/reactions"
	"github.com/borovikovd/oleg-bot/internal/storage"
	"github.com/borovikovd/oleg-bot/internal/store"
)

// Handler dispatches slash commands to their implementations.
type Handler struct {
	admins   map[int64]struct{}
	engine   *decision.Engine
	store    *store.Store
	settings *storage.Store // may be nil, then tuning changes are not persisted
}

func NewHandler(adminIDs []int64, engine *decision.Engine, st *store.Store, settings *storage.Store) *Handler {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	log.Printf("[CMD] handler initialized with %d admin users", len(admins))
	return &Handler{admins: admins, engine: engine, store: st, settings: settings}
}

var commandNames = []string{"/setquota", "/setgap", "/stats", "/status", "/help"}

// IsCommand reports whether text starts with a known command.
func (h *Handler) IsCommand(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, cmd := range commandNames {
		if strings.HasPrefix(text, cmd) {
			return true
		}
	}
	return false
}

// Handle executes the command in text and returns the response to send.
func (h *Handler) Handle(text string, userID, chatID int64) string {
	if !h.IsCommand(text) {
		return "Unknown command. Use /help to see available commands."
	}

	parts := strings.Fields(strings.TrimSpace(text))
	command := strings.ToLower(parts[0])
	// Telegram appends the bot name in groups: /stats@oleg_bot.
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	args := parts[1:]

	if (command == "/setquota" || command == "/setgap") && !h.isAdmin(userID) {
		return "❌ Admin permissions required for this command."
	}

	var response string
	switch command {
	case "/setquota":
		response = h.handleSetQuota(args)
	case "/setgap":
		response = h.handleSetGap(args)
	case "/stats":
		response = h.handleStats(chatID)
	case "/status":
		response = h.handleStatus(chatID)
	case "/help":
		response = h.handleHelp(userID)
	default:
		return "Unknown command. Use /help to see available commands."
	}

	log.Printf("[CMD] executed %s by user %d in chat %d", command, userID, chatID)
	return response
}

func (h *Handler) isAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

func (h *Handler) handleSetQuota(args []string) string {
	current := h.engine.Settings().ReplyTargetRatio
	if len(args) == 0 {
		return fmt.Sprintf("📊 Current quota: %.1f%%\nUsage: /setquota <ratio> (e.g., /setquota 0.15 for 15%%)", current*100)
	}

	quota, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "❌ Invalid quota value. Use a decimal between 0.0 and 1.0"
	}
	if quota < 0.0 || quota > 1.0 {
		return "❌ Quota must be between 0.0 and 1.0 (0% to 100%)"
	}

	h.engine.UpdateSettings(map[string]any{"reply_target_ratio": quota})
	h.persist()
	return fmt.Sprintf("✅ Quota updated: %.1f%% → %.1f%%", current*100, quota*100)
}

func (h *Handler) handleSetGap(args []string) string {
	current := h.engine.Settings().GapMinSeconds
	if len(args) == 0 {
		return fmt.Sprintf("⏱️ Current gap: %ds\nUsage: /setgap <seconds> (e.g., /setgap 30)", current)
	}

	gap, err := strconv.Atoi(args[0])
	if err != nil {
		return "❌ Invalid gap value. Use an integer between 5 and 300"
	}
	if gap < 5 || gap > 300 {
		return "❌ Gap must be between 5 and 300 seconds"
	}

	h.engine.UpdateSettings(map[string]any{"gap_min_seconds": gap})
	h.persist()
	return fmt.Sprintf("✅ Gap updated: %ds → %ds", current, gap)
}

func (h *Handler) persist() {
	if h.settings == nil {
		return
	}
	cfg := h.engine.Settings()
	err := h.settings.Save(storage.Settings{
		ReplyTargetRatio: cfg.ReplyTargetRatio,
		GapMinSeconds:    cfg.GapMinSeconds,
	})
	if err != nil {
		log.Printf("[CMD] failed to persist settings: %v", err)
	}
}

func (h *Handler) handleStats(chatID int64) string {
	engineStats := h.engine.GetStats()
	reactionStats := reactions.GetStats()
	storeStats := h.store.MemoryStats()

	var b strings.Builder
	b.WriteString("📊 **OlegBot Statistics**\n\n")

	b.WriteString("🧠 **Decision Engine:**\n")
	fmt.Fprintf(&b, "• Messages processed: %d\n", engineStats.MessageCount)
	fmt.Fprintf(&b, "• Replies sent: %d\n", engineStats.ReplyCount)
	fmt.Fprintf(&b, "• Current quota usage: %.1f%%\n", engineStats.QuotaUsage*100)
	fmt.Fprintf(&b, "• Target ratio: %.1f%%\n", engineStats.TargetRatio*100)
	fmt.Fprintf(&b, "• Minimum gap: %ds\n", engineStats.GapMinSeconds)
	fmt.Fprintf(&b, "• Heat threshold: %.1f\n\n", engineStats.TopicHeatThreshold)

	b.WriteString("💾 **Message Store:**\n")
	fmt.Fprintf(&b, "• Active chats: %d\n", storeStats.ActiveChats)
	fmt.Fprintf(&b, "• Window size: %d messages\n\n", storeStats.WindowSize)

	b.WriteString("😊 **Reaction Handler:**\n")
	fmt.Fprintf(&b, "• Reaction types: %d\n", reactionStats.TotalReactionTypes)
	fmt.Fprintf(&b, "• Supported languages: %d\n", reactionStats.SupportedLanguages)

	chatMessages := h.store.Messages(chatID, 0)
	if len(chatMessages) > 0 {
		botCount := 0
		for _, m := range chatMessages {
			if m.IsBot {
				botCount++
			}
		}
		b.WriteString("\n💬 **This Chat:**\n")
		fmt.Fprintf(&b, "• Messages in window: %d\n", len(chatMessages))
		fmt.Fprintf(&b, "• Bot messages: %d\n", botCount)
	}

	return b.String()
}

func (h *Handler) handleStatus(chatID int64) string {
	stats := h.engine.GetStats()

	statusEmoji, statusText := "🟢", "Active"
	switch {
	case stats.QuotaUsage >= 0.8:
		statusEmoji, statusText = "🔴", "Rate Limited"
	case stats.QuotaUsage >= 0.5:
		statusEmoji, statusText = "🟡", "Moderate"
	}

	sinceLast := h.engine.TimeSinceLastBotMessage(chatID)
	var lastActivity string
	switch {
	case math.IsInf(sinceLast, 1):
		lastActivity = "No recent activity"
	case sinceLast < 60:
		lastActivity = fmt.Sprintf("%.0fs ago", sinceLast)
	case sinceLast < 3600:
		lastActivity = fmt.Sprintf("%.0fm ago", sinceLast/60)
	default:
		lastActivity = fmt.Sprintf("%.0fh ago", sinceLast/3600)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **Bot Status: %s**\n\n", statusEmoji, statusText)
	fmt.Fprintf(&b, "📈 Quota usage: %.1f%% / %.1f%%\n", stats.QuotaUsage*100, stats.TargetRatio*100)
	fmt.Fprintf(&b, "⏱️ Last activity: %s\n", lastActivity)
	fmt.Fprintf(&b, "💬 Messages processed: %d\n", stats.MessageCount)
	return b.String()
}

func (h *Handler) handleHelp(userID int64) string {
	var b strings.Builder
	b.WriteString("🤖 **OlegBot Commands**\n\n")

	b.WriteString("📊 **General Commands:**\n")
	b.WriteString("• `/stats` - Show bot statistics\n")
	b.WriteString("• `/status` - Show bot status\n")
	b.WriteString("• `/help` - Show this help message\n\n")

	if h.isAdmin(userID) {
		b.WriteString("⚙️ **Admin Commands:**\n")
		b.WriteString("• `/setquota <ratio>` - Set reply quota (0.0-1.0)\n")
		b.WriteString("• `/setgap <seconds>` - Set minimum gap between replies (5-300)\n\n")
	}

	b.WriteString("💡 **Tips:**\n")
	b.WriteString("• Mention the bot to get a guaranteed response\n")
	b.WriteString("• Bot participates in hot topics automatically\n")
	b.WriteString("• Reactions are used when rate-limited\n")
	return b.String()
}
