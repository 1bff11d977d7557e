package decision

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/borovikovd/oleg-bot/internal/language"
	"github.com/borovikovd/oleg-bot/internal/store"
	"github.com/borovikovd/oleg-bot/internal/tone"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(50, 0, 0)
	e := New(cfg, st, language.NewDetector(), tone.NewAnalyzer())
	e.rng = rand.New(rand.NewSource(1))
	return e, st
}

func userMsg(chatID int64, id int, text string, ts time.Time) store.Message {
	return store.Message{ID: id, ChatID: chatID, UserID: int64(100 + id), Text: text, Timestamp: ts}
}

func TestMentionRepliesWhenGapElapsed(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	res := e.ShouldRespond(1, userMsg(1, 1, "@oleg_bot hello", time.Now()))

	if res.Action != ActionReply {
		t.Fatalf("action = %s, want reply", res.Action)
	}
	if res.Confidence < 0.9 {
		t.Errorf("confidence = %v, want >= 0.9", res.Confidence)
	}
	if !res.ShouldProcess {
		t.Error("should_process = false for a direct mention")
	}
}

func TestMentionOverridesQuota(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	// Exhaust the quota completely.
	e.mu.Lock()
	e.messageCount = 10
	e.replyCount = 10
	e.mu.Unlock()

	res := e.ShouldRespond(1, userMsg(1, 1, "@oleg_bot are you there", time.Now()))
	if res.Action != ActionReply || res.Confidence < 0.9 {
		t.Errorf("mention with exhausted quota: got %s/%.2f, want reply/>=0.9", res.Action, res.Confidence)
	}
}

func TestMentionRateLimitedReacts(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())
	now := time.Now()

	st.Add(store.Message{ID: 1, ChatID: 1, Text: "earlier reply", Timestamp: now.Add(-5 * time.Second), IsBot: true})

	res := e.ShouldRespond(1, userMsg(1, 2, "oleg what do you think", now))
	if res.Action != ActionReact {
		t.Fatalf("action = %s, want react", res.Action)
	}
	if res.Limited != LimitedMention {
		t.Errorf("limited tag = %q, want %q", res.Limited, LimitedMention)
	}
	if !res.ShouldProcess {
		t.Error("rate-limited mention should still be processed")
	}
}

func TestReplyToBotMessage(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())
	now := time.Now()

	st.Add(store.Message{ID: 10, ChatID: 1, Text: "my hot take", Timestamp: now.Add(-60 * time.Second), IsBot: true})

	m := userMsg(1, 11, "I disagree with that", now)
	m.ReplyToID = 10
	res := e.ShouldRespond(1, m)

	if res.Action != ActionReply || res.Confidence != 0.9 {
		t.Errorf("reply-to-bot: got %s/%.2f, want reply/0.90", res.Action, res.Confidence)
	}
}

func TestReplyToBotRateLimitedReacts(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())
	now := time.Now()

	st.Add(store.Message{ID: 10, ChatID: 1, Text: "bot says", Timestamp: now.Add(-3 * time.Second), IsBot: true})

	m := userMsg(1, 11, "replying to that", now)
	m.ReplyToID = 10
	res := e.ShouldRespond(1, m)

	if res.Action != ActionReact || res.Limited != LimitedReply {
		t.Errorf("got %s/%q, want react with reply-limited tag", res.Action, res.Limited)
	}
}

func TestPacingIgnoresEverythingElse(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// Bot spoke 5 seconds ago; gap is 20s.
	st.Add(store.Message{ID: 1, ChatID: 1, Text: "bot reply", Timestamp: now.Add(-5 * time.Second), IsBot: true})

	// Heat up the topic: many users, rapid messages, replies.
	for i := 2; i < 16; i++ {
		m := userMsg(1, i, "so much going on", now.Add(-time.Duration(16-i)*time.Second))
		if i%2 == 0 {
			m.ReplyToID = i - 1
		}
		st.Add(m)
	}

	res := e.ShouldRespond(1, userMsg(1, 20, "nice weather today", now))
	if res.Action != ActionIgnore {
		t.Fatalf("action = %s, want ignore via pacing", res.Action)
	}
	if res.ShouldProcess {
		t.Error("pacing ignore must not be processed")
	}
}

func TestQuotaExhaustedIgnores(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	// 2 replies in 10 messages = 20% usage against a 10% target.
	e.mu.Lock()
	e.messageCount = 10
	e.replyCount = 2
	e.mu.Unlock()

	res := e.ShouldRespond(1, userMsg(1, 1, "nothing special here", time.Now()))
	if res.Action != ActionIgnore || res.Confidence != 0.8 {
		t.Errorf("got %s/%.2f, want ignore/0.80 via quota", res.Action, res.Confidence)
	}
}

func TestHotTopicParticipation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReactionProbability = 0 // always reply when joining
	e, st := newTestEngine(t, cfg)
	now := time.Now()

	for i := 1; i <= 15; i++ {
		m := userMsg(1, i, "lively discussion", now.Add(-time.Duration(60-i)*time.Second))
		m.UserID = int64(i % 4)
		if i%3 == 0 {
			m.ReplyToID = i - 1
		}
		st.Add(m)
	}

	res := e.ShouldRespond(1, userMsg(1, 99, "what about this", now))
	if res.Action != ActionReply || res.Confidence != 0.6 {
		t.Errorf("got %s/%.2f, want hot-topic reply/0.60", res.Action, res.Confidence)
	}

	// With certain reaction, the same context reacts instead.
	e2, st2 := newTestEngine(t, DefaultConfig())
	e2.mu.Lock()
	e2.cfg.ReactionProbability = 1
	e2.mu.Unlock()
	for i := 1; i <= 15; i++ {
		m := userMsg(2, i, "lively discussion", now.Add(-time.Duration(60-i)*time.Second))
		m.UserID = int64(i % 4)
		if i%3 == 0 {
			m.ReplyToID = i - 1
		}
		st2.Add(m)
	}
	res = e2.ShouldRespond(2, userMsg(2, 99, "what about this", now))
	if res.Action != ActionReact {
		t.Errorf("got %s, want hot-topic react with probability 1", res.Action)
	}
}

func TestQuotaMonotonicity(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	for i := 1; i <= 40; i++ {
		text := "just chatting"
		if i%7 == 0 {
			text = "@oleg_bot ping"
		}
		e.ShouldRespond(1, userMsg(1, i, text, time.Now()))

		e.mu.Lock()
		mc, rc := e.messageCount, e.replyCount
		e.mu.Unlock()
		if rc > mc {
			t.Fatalf("reply_count %d > message_count %d after %d messages", rc, mc, i)
		}
		if u := e.QuotaUsage(); u < 0 || u > 1 {
			t.Fatalf("quota usage %v out of [0,1]", u)
		}
	}
}

func TestHourlyQuotaReset(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	e.mu.Lock()
	e.messageCount = 50
	e.replyCount = 5
	e.lastReset = time.Now().Add(-2 * time.Hour)
	e.mu.Unlock()

	if u := e.QuotaUsage(); u != 0 {
		t.Errorf("quota usage after stale reset = %v, want 0", u)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.messageCount != 0 || e.replyCount != 0 {
		t.Errorf("counters = %d/%d after reset, want 0/0", e.messageCount, e.replyCount)
	}
}

func TestTimeSinceLastBotMessage(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())

	if got := e.TimeSinceLastBotMessage(1); !math.IsInf(got, 1) {
		t.Errorf("empty chat: got %v, want +Inf", got)
	}

	now := time.Now()
	st.Add(store.Message{ID: 1, ChatID: 1, Text: "reply", Timestamp: now.Add(-30 * time.Second), IsBot: true})
	got := e.TimeSinceLastBotMessage(1)
	if got < 29 || got > 35 {
		t.Errorf("got %vs since last bot message, want ~30s", got)
	}
}

func TestTopicHeatColdChat(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	now := time.Now()

	if h := e.topicHeat(nil); h != 0 {
		t.Errorf("heat of empty window = %v, want 0", h)
	}
	one := []store.Message{userMsg(1, 1, "alone", now)}
	if h := e.topicHeat(one); h != 0 {
		t.Errorf("heat of single message = %v, want 0", h)
	}

	// Two messages, both outside the 5-minute window.
	old := []store.Message{
		userMsg(1, 1, "stale", now.Add(-10*time.Minute)),
		userMsg(1, 2, "stale", now.Add(-9*time.Minute)),
	}
	if h := e.topicHeat(old); h != 0 {
		t.Errorf("heat of stale window = %v, want 0", h)
	}
}

func TestTopicHeatFormula(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// 10 messages in window, 3 distinct users, 5 replies.
	msgs := make([]store.Message, 0, 10)
	for i := 0; i < 10; i++ {
		m := userMsg(1, i+1, "active", now.Add(-time.Duration(i)*time.Second))
		m.UserID = int64(i % 3)
		if i%2 == 0 {
			m.ReplyToID = 1
		}
		msgs = append(msgs, m)
	}

	// rate = 10/5 = 2.0, diversity = 1.0, replyFraction = 0.5
	// raw = 0.4*2 + 0.4*1 + 0.2*0.5 = 1.3; heat = 1.3/2 = 0.65
	got := e.topicHeat(msgs)
	if math.Abs(got-0.65) > 1e-9 {
		t.Errorf("heat = %v, want 0.65", got)
	}
}

func TestMentionPatterns(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	cases := []struct {
		text string
		want bool
	}{
		{"@oleg_bot hello", true},
		{"hey oleg_bot", true},
		{"hey bot, wake up", true},
		{"oleg, your opinion?", true},
		{"OLEG what do you think", true},
		{"robots are cool", false},
		{"bottle of water", false},
		{"", false},
	}
	for _, c := range cases {
		if got := e.isDirectMention(c.text); got != c.want {
			t.Errorf("isDirectMention(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	e.UpdateSettings(map[string]any{
		"reply_target_ratio": 0.25,
		"gap_min_seconds":    45,
		"made_up_knob":       "ignored",
	})

	cfg := e.Settings()
	if cfg.ReplyTargetRatio != 0.25 {
		t.Errorf("reply_target_ratio = %v, want 0.25", cfg.ReplyTargetRatio)
	}
	if cfg.GapMinSeconds != 45 {
		t.Errorf("gap_min_seconds = %d, want 45", cfg.GapMinSeconds)
	}
}

func TestEndToEndScenarios(t *testing.T) {
	e, st := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// A: fresh chat, direct mention, no prior bot message.
	resA := e.ShouldRespond(42, userMsg(42, 1, "@oleg_bot hello", now))
	if resA.Action != ActionReply || !resA.ShouldProcess {
		t.Fatalf("scenario A: got %s/%v, want reply/processed", resA.Action, resA.ShouldProcess)
	}

	// B: bot's reply recorded, plain message arrives within the gap.
	st.Add(store.Message{ID: 2, ChatID: 42, Text: "hello yourself", Timestamp: now, IsBot: true})
	resB := e.ShouldRespond(42, userMsg(42, 3, "nice weather today", now.Add(2*time.Second)))
	if resB.Action != ActionIgnore || resB.ShouldProcess {
		t.Fatalf("scenario B: got %s/%v, want ignore/unprocessed", resB.Action, resB.ShouldProcess)
	}

	// C: quota exhausted, gap elapsed, plain non-mention message.
	e2, _ := newTestEngine(t, DefaultConfig())
	e2.mu.Lock()
	e2.messageCount = 10
	e2.replyCount = 2
	e2.mu.Unlock()
	resC := e2.ShouldRespond(7, userMsg(7, 1, "just passing through", now))
	if resC.Action != ActionIgnore || resC.Confidence != 0.8 {
		t.Fatalf("scenario C: got %s/%.2f, want quota ignore/0.80", resC.Action, resC.Confidence)
	}
}
