package config

import "testing"

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without TELEGRAM_BOT_TOKEN")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("AI_PROVIDER", "pollinations")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotUsername != "oleg_bot" {
		t.Errorf("BotUsername = %q", cfg.BotUsername)
	}
	if cfg.WindowSize != 50 || cfg.GapMinSeconds != 20 || cfg.ReplyTargetRatio != 0.10 {
		t.Errorf("tuning defaults = %+v", cfg)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestLoadOpenAIRequiresKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for openai provider without key")
	}
}

func TestLoadAdminIDs(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("AI_PROVIDER", "pollinations")
	t.Setenv("ADMIN_USER_IDS", "100,200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[0] != 100 || cfg.AdminUserIDs[1] != 200 {
		t.Fatalf("AdminUserIDs = %v", cfg.AdminUserIDs)
	}
}
