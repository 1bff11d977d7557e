// Package store keeps a bounded sliding window of recent messages per chat.
// Windows are fixed-size rings, chats are evicted LRU at capacity, and chats
// idle past the cleanup interval are dropped. Safe for concurrent use.
package store

import (
	"container/list"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	DefaultWindowSize      = 50
	DefaultMaxChats        = 1000
	DefaultCleanupInterval = 24 * time.Hour

	minWindowSize = 10
	maxWindowSize = 200

	// cleanupEvery — run the idle-chat sweep on every Nth insertion.
	cleanupEvery = 100
)

// Message is one chat message in the window. Immutable once stored.
type Message struct {
	ID        int
	ChatID    int64
	UserID    int64
	Text      string
	Timestamp time.Time
	IsBot     bool
	ReplyToID int // 0 when the message is not a reply
}

// window is a fixed-capacity ring of messages in arrival order.
type window struct {
	buf   []Message
	start int
	count int
}

func (w *window) push(m Message) {
	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = m
		w.count++
		return
	}
	// Full: overwrite the oldest slot.
	w.buf[w.start] = m
	w.start = (w.start + 1) % len(w.buf)
}

// slice returns messages oldest first.
func (w *window) slice() []Message {
	out := make([]Message, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

type chatEntry struct {
	chatID       int64
	win          *window
	lastActivity time.Time
}

// Store holds per-chat message windows with LRU and idle-chat bounds.
type Store struct {
	mu              sync.Mutex
	windowSize      int
	maxChats        int
	cleanupInterval time.Duration

	chats map[int64]*list.Element
	order *list.List // *chatEntry, front = least recently used

	inserts int
	now     func() time.Time
}

// Stats is a snapshot of store occupancy for the admin surface.
type Stats struct {
	ActiveChats        int
	MaxChats           int
	TotalMessages      int
	WindowSize         int
	MemoryUsagePercent float64
}

// New creates a Store. Zero or out-of-range arguments fall back to defaults;
// windowSize is clamped to [10,200].
func New(windowSize, maxChats int, cleanupInterval time.Duration) *Store {
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	if windowSize < minWindowSize {
		windowSize = minWindowSize
	}
	if windowSize > maxWindowSize {
		windowSize = maxWindowSize
	}
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	log.Printf("[STORE] initialized: window_size=%d max_chats=%d cleanup_interval=%s",
		windowSize, maxChats, cleanupInterval)
	return &Store{
		windowSize:      windowSize,
		maxChats:        maxChats,
		cleanupInterval: cleanupInterval,
		chats:           make(map[int64]*list.Element),
		order:           list.New(),
		now:             time.Now,
	}
}

// Add inserts a message into its chat window, creating the window (and
// evicting the least recently used chat at capacity) if needed.
func (s *Store) Add(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	el, ok := s.chats[m.ChatID]
	if !ok {
		if len(s.chats) >= s.maxChats {
			s.evictLRULocked()
		}
		entry := &chatEntry{
			chatID: m.ChatID,
			win:    &window{buf: make([]Message, s.windowSize)},
		}
		el = s.order.PushBack(entry)
		s.chats[m.ChatID] = el
	}
	entry := el.Value.(*chatEntry)
	entry.lastActivity = now
	s.order.MoveToBack(el)
	entry.win.push(m)

	s.inserts++
	if s.inserts%cleanupEvery == 0 {
		s.cleanupLocked(now)
	}
}

// Messages returns the chat's messages oldest first, truncated to the last
// limit entries when limit > 0. Unknown chats yield nil. Reading a chat
// refreshes its LRU position.
func (s *Store) Messages(chatID int64, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	entry := el.Value.(*chatEntry)
	entry.lastActivity = s.now()
	s.order.MoveToBack(el)

	msgs := entry.win.slice()
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

// RecentText joins the texts of the last limit non-empty messages with a
// single space, for language and tone analysis.
func (s *Store) RecentText(chatID int64, limit int) string {
	msgs := s.Messages(chatID, limit)
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, " ")
}

// HasRecentBotMessage reports whether the most recent bot-authored message in
// the window is within the given duration of now. Only the nearest bot
// message is considered; newer user messages do not mask it. Like Messages,
// reading a chat refreshes its LRU position.
func (s *Store) HasRecentBotMessage(chatID int64, within time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.chats[chatID]
	if !ok {
		return false
	}
	entry := el.Value.(*chatEntry)
	now := s.now()
	entry.lastActivity = now
	s.order.MoveToBack(el)
	win := entry.win
	for i := win.count - 1; i >= 0; i-- {
		m := win.buf[(win.start+i)%len(win.buf)]
		if m.IsBot {
			return now.Sub(m.Timestamp) <= within
		}
	}
	return false
}

// ClearChat drops the chat's window and activity record. Idempotent.
func (s *Store) ClearChat(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(chatID)
}

// ChatCount returns the number of tracked chats.
func (s *Store) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// Cleanup forces an idle-chat sweep and returns how many chats were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked(s.now())
}

// MemoryStats returns occupancy counters.
func (s *Store) MemoryStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for el := s.order.Front(); el != nil; el = el.Next() {
		total += el.Value.(*chatEntry).win.count
	}
	return Stats{
		ActiveChats:        len(s.chats),
		MaxChats:           s.maxChats,
		TotalMessages:      total,
		WindowSize:         s.windowSize,
		MemoryUsagePercent: float64(len(s.chats)) / float64(s.maxChats) * 100,
	}
}

func (s *Store) clearLocked(chatID int64) {
	el, ok := s.chats[chatID]
	if !ok {
		return
	}
	s.order.Remove(el)
	delete(s.chats, chatID)
}

func (s *Store) evictLRULocked() {
	front := s.order.Front()
	if front == nil {
		return
	}
	chatID := front.Value.(*chatEntry).chatID
	s.clearLocked(chatID)
	log.Printf("[STORE] evicted LRU chat %d (at capacity)", chatID)
}

func (s *Store) cleanupLocked(now time.Time) int {
	var stale []int64
	for el := s.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*chatEntry)
		if now.Sub(entry.lastActivity) > s.cleanupInterval {
			stale = append(stale, entry.chatID)
		}
	}
	for _, id := range stale {
		s.clearLocked(id)
	}
	if len(stale) > 0 {
		log.Printf("[STORE] cleaned up %d inactive chats", len(stale))
	}
	return len(stale)
}
