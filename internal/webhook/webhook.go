// Package webhook is the HTTP surface: the Telegram delivery endpoint plus
// health and root probes.
package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/borovikovd/oleg-bot/internal/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Processor consumes parsed Telegram updates.
type Processor interface {
	ProcessUpdate(ctx context.Context, update *telegram.Update)
}

// Server holds the webhook handlers and their dependencies.
type Server struct {
	bot    Processor
	secret string
}

func NewServer(bot Processor, secret string) *Server {
	return &Server{bot: bot, secret: secret}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/webhook/telegram", s.handleTelegram)
	return r
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()

	if s.secret != "" && r.Header.Get(secretHeader) != s.secret {
		log.Printf("[WEBHOOK] %s invalid webhook secret", traceID)
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Invalid webhook secret"})
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("[WEBHOOK] %s failed to parse update: %v", traceID, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid update format"})
		return
	}

	s.bot.ProcessUpdate(r.Context(), &update)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":   "OlegBot",
		"status": "running",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[WEBHOOK] failed to write response: %v", err)
	}
}
