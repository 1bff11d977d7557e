// Package telegram is a minimal Bot API client covering what the bot
// actually calls: webhook management, sending messages and setting message
// reactions. Requests go through an adaptive rate limiter with retries.
package telegram

// Update is an incoming Bot API update delivered to the webhook.
type Update struct {
	UpdateID      int              `json:"update_id"`
	Message       *IncomingMessage `json:"message,omitempty"`
	EditedMessage *IncomingMessage `json:"edited_message,omitempty"`
}

// IncomingMessage carries the subset of message fields the bot reads.
type IncomingMessage struct {
	MessageID      int              `json:"message_id"`
	From           *User            `json:"from,omitempty"`
	Chat           Chat             `json:"chat"`
	Date           int64            `json:"date"`
	Text           string           `json:"text,omitempty"`
	Caption        string           `json:"caption,omitempty"`
	ReplyToMessage *IncomingMessage `json:"reply_to_message,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// ContentText returns the message text, falling back to the media caption.
func (m *IncomingMessage) ContentText() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}
