// Package bot wires the pipeline together: every inbound update is stored,
// run through the decision engine, and acted on by sending a reply or a
// reaction through the Telegram API.
package bot

import (
	"context"
	"log"
	"time"

	"github.com/borovikovd/oleg-bot/internal/commands"
	"github.com/borovikovd/oleg-bot/internal/decision"
	"github.com/borovikovd/oleg-bot/internal/language"
	"github.com/borovikovd/oleg-bot/internal/reactions"
	"github.com/borovikovd/oleg-bot/internal/responder"
	"github.com/borovikovd/oleg-bot/internal/store"
	"github.com/borovikovd/oleg-bot/internal/telegram"
	"github.com/borovikovd/oleg-bot/internal/tone"
)

// Sender is the slice of the Telegram client the orchestrator needs.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int) (int, error)
	SetMessageReaction(ctx context.Context, chatID int64, messageID int, emoji string) error
}

// Bot coordinates storage, decisions and outbound sends for one bot account.
type Bot struct {
	store     *store.Store
	engine    *decision.Engine
	langs     *language.Detector
	tones     *tone.Analyzer
	picker    *reactions.Picker
	responder *responder.Responder
	commands  *commands.Handler
	sender    Sender

	now func() time.Time
}

type Deps struct {
	Store     *store.Store
	Engine    *decision.Engine
	Languages *language.Detector
	Tones     *tone.Analyzer
	Picker    *reactions.Picker
	Responder *responder.Responder
	Commands  *commands.Handler
	Sender    Sender
}

func New(d Deps) *Bot {
	return &Bot{
		store:     d.Store,
		engine:    d.Engine,
		langs:     d.Languages,
		tones:     d.Tones,
		picker:    d.Picker,
		responder: d.Responder,
		commands:  d.Commands,
		sender:    d.Sender,
		now:       time.Now,
	}
}

// ProcessUpdate handles one webhook delivery. Errors are logged, not
// returned; Telegram retries failed deliveries and a decision pipeline
// failure should never trigger a redelivery storm.
func (b *Bot) ProcessUpdate(ctx context.Context, update *telegram.Update) {
	msg := update.Message
	edited := false
	if msg == nil {
		msg = update.EditedMessage
		edited = true
	}
	if msg == nil {
		log.Printf("[BOT] ignoring update %d without message", update.UpdateID)
		return
	}
	b.processMessage(ctx, msg, edited)
}

func (b *Bot) processMessage(ctx context.Context, msg *telegram.IncomingMessage, edited bool) {
	var userID int64
	fromBot := false
	if msg.From != nil {
		userID = msg.From.ID
		fromBot = msg.From.IsBot
	}

	stored := store.Message{
		ID:        msg.MessageID,
		ChatID:    msg.Chat.ID,
		UserID:    userID,
		Text:      msg.ContentText(),
		Timestamp: b.now(),
		IsBot:     fromBot,
	}
	if msg.ReplyToMessage != nil {
		stored.ReplyToID = msg.ReplyToMessage.MessageID
	}
	b.store.Add(stored)

	prefix := "message"
	if edited {
		prefix = "edited message"
	}
	log.Printf("[BOT] %s received: chat_id=%d user_id=%d message_id=%d has_text=%t",
		prefix, stored.ChatID, stored.UserID, stored.ID, stored.Text != "")

	if fromBot || stored.Text == "" {
		return
	}

	if b.commands.IsCommand(stored.Text) {
		b.handleCommand(ctx, stored)
		return
	}

	res := b.engine.ShouldRespond(stored.ChatID, stored)
	log.Printf("[BOT] decision for message %d: action=%s confidence=%.2f reasoning=%q",
		stored.ID, res.Action, res.Confidence, res.Reasoning)
	if !res.ShouldProcess {
		return
	}

	recent := b.store.Messages(stored.ChatID, 10)
	texts := make([]string, 0, len(recent))
	for _, m := range recent {
		if m.Text != "" {
			texts = append(texts, m.Text)
		}
	}
	lang := b.langs.DetectFromMessages(texts)
	hints := b.tones.Analyze(texts)

	switch res.Action {
	case decision.ActionReact:
		b.react(ctx, stored, res, hints, lang)
	case decision.ActionReply:
		b.reply(ctx, stored, recent, lang, hints)
	}
}

func (b *Bot) handleCommand(ctx context.Context, stored store.Message) {
	response := b.commands.Handle(stored.Text, stored.UserID, stored.ChatID)
	sentID, err := b.sender.SendMessage(ctx, stored.ChatID, response, 0)
	if err != nil {
		log.Printf("[BOT] failed to send command response: %v", err)
		return
	}
	b.store.Add(store.Message{
		ID:        sentID,
		ChatID:    stored.ChatID,
		Text:      response,
		Timestamp: b.now(),
		IsBot:     true,
	})
}

func (b *Bot) react(ctx context.Context, stored store.Message, res decision.Result, hints tone.Hints, lang string) {
	var emoji string
	switch res.Limited {
	case decision.LimitedMention:
		emoji = b.picker.ForMention(hints)
	case decision.LimitedReply:
		emoji = b.picker.ForReply(hints)
	default:
		emoji = b.picker.Choose(stored.Text, hints, lang, reactions.ContextNeutral)
	}

	if err := b.sender.SetMessageReaction(ctx, stored.ChatID, stored.ID, emoji); err != nil {
		log.Printf("[BOT] failed to set reaction on message %d: %v", stored.ID, err)
		return
	}
	log.Printf("[BOT] reacted to message %d with %s", stored.ID, emoji)
}

func (b *Bot) reply(ctx context.Context, stored store.Message, recent []store.Message, lang string, hints tone.Hints) {
	text, usedFallback := b.responder.Respond(stored, recent, lang, hints)
	if usedFallback {
		log.Printf("[BOT] using fallback reply for message %d", stored.ID)
	}

	sentID, err := b.sender.SendMessage(ctx, stored.ChatID, text, stored.ID)
	if err != nil {
		log.Printf("[BOT] failed to send reply to message %d: %v", stored.ID, err)
		// Degrade to a reaction so the decision still has a visible effect.
		emoji := b.picker.Choose(stored.Text, hints, lang, reactions.ContextNeutral)
		if rerr := b.sender.SetMessageReaction(ctx, stored.ChatID, stored.ID, emoji); rerr != nil {
			log.Printf("[BOT] fallback reaction also failed: %v", rerr)
		}
		return
	}

	b.store.Add(store.Message{
		ID:        sentID,
		ChatID:    stored.ChatID,
		Text:      text,
		Timestamp: b.now(),
		IsBot:     true,
	})
	log.Printf("[BOT] replied to message %d (%d chars)", stored.ID, len(text))
}
