package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/borovikovd/oleg-bot/internal/ai"
	"github.com/borovikovd/oleg-bot/internal/bot"
	"github.com/borovikovd/oleg-bot/internal/commands"
	"github.com/borovikovd/oleg-bot/internal/config"
	"github.com/borovikovd/oleg-bot/internal/decision"
	"github.com/borovikovd/oleg-bot/internal/language"
	"github.com/borovikovd/oleg-bot/internal/reactions"
	"github.com/borovikovd/oleg-bot/internal/responder"
	"github.com/borovikovd/oleg-bot/internal/storage"
	"github.com/borovikovd/oleg-bot/internal/store"
	"github.com/borovikovd/oleg-bot/internal/telegram"
	"github.com/borovikovd/oleg-bot/internal/tone"
	"github.com/borovikovd/oleg-bot/internal/webhook"
)

func main() {
	log.Printf("[INFO] Starting OlegBot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	provider, err := ai.NewProvider(cfg.AIProvider, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		log.Fatal(err)
	}

	settings, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}

	messages := store.New(cfg.WindowSize, 0, 0)
	langs := language.NewDetector()
	tones := tone.NewAnalyzer()

	engineCfg := decision.DefaultConfig()
	engineCfg.BotUsername = cfg.BotUsername
	engineCfg.ReplyTargetRatio = cfg.ReplyTargetRatio
	engineCfg.GapMinSeconds = cfg.GapMinSeconds
	if persisted, ok, err := settings.Load(); err != nil {
		log.Printf("[WARN] could not load persisted settings: %v", err)
	} else if ok {
		engineCfg.ReplyTargetRatio = persisted.ReplyTargetRatio
		engineCfg.GapMinSeconds = persisted.GapMinSeconds
		log.Printf("[INFO] restored settings: target_ratio=%.2f gap=%ds",
			persisted.ReplyTargetRatio, persisted.GapMinSeconds)
	}

	engine := decision.New(engineCfg, messages, langs, tones)
	client := telegram.NewClient(cfg.TelegramBotToken)

	app := bot.New(bot.Deps{
		Store:     messages,
		Engine:    engine,
		Languages: langs,
		Tones:     tones,
		Picker:    reactions.NewPicker(),
		Responder: responder.NewResponder(provider),
		Commands:  commands.NewHandler(cfg.AdminUserIDs, engine, messages, settings),
		Sender:    client,
	})

	me, err := client.GetMe(ctx)
	if err != nil {
		log.Fatal("[ERR] getMe failed: ", err)
	}
	log.Printf("[INFO] authenticated as @%s (id=%d)", me.Username, me.ID)

	if cfg.TelegramWebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			log.Fatal("[ERR] setWebhook failed: ", err)
		}
		log.Printf("[INFO] webhook registered: %s", cfg.TelegramWebhookURL)
	} else {
		log.Printf("[WARN] TELEGRAM_WEBHOOK_URL not set, webhook not registered")
	}

	go runStoreCleaner(ctx, messages)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: webhook.NewServer(app, cfg.TelegramWebhookSecret).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] HTTP server error:", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if cfg.TelegramWebhookURL != "" {
		if err := client.DeleteWebhook(shutdownCtx); err != nil {
			log.Printf("[WARN] deleteWebhook failed: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] server shutdown: %v", err)
	}
	log.Printf("[INFO] OlegBot stopped")
}

// runStoreCleaner periodically evicts idle chats in addition to the store's
// own lazy cleanup, so a quiet deployment still releases memory.
func runStoreCleaner(ctx context.Context, messages *store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := messages.Cleanup(); removed > 0 {
				log.Printf("[INFO] cleaned up %d idle chats", removed)
			}
		}
	}
}
