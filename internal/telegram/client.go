package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/borovikovd/oleg-bot/pkg/retrylimit"
)

const defaultAPIBase = "https://api.telegram.org"

// apiError is a non-ok Bot API response. It exposes the HTTP status code so
// the retry layer can tell rate limits and server errors apart.
type apiError struct {
	method      string
	status      int
	description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram %s: status %d: %s", e.method, e.status, e.description)
}

func (e *apiError) StatusCode() int { return e.status }

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *retrylimit.AdaptiveLimiter
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		// Telegram allows roughly 30 messages/sec per bot; start well below.
		limiter: retrylimit.NewAdaptiveLimiter(10, 1, 25, 1, 0.5),
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

// call posts params to a Bot API method and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: encode params: %w", method, err)
	}

	return retrylimit.WithRetryMax(ctx, func() error {
		url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return &retrylimit.FatalError{Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("telegram %s: %w", method, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("telegram %s: read response: %w", method, err)
		}

		var envelope struct {
			OK          bool            `json:"ok"`
			Result      json.RawMessage `json:"result"`
			Description string          `json:"description"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return &apiError{method: method, status: resp.StatusCode, description: "invalid response body"}
		}
		if !envelope.OK {
			apiErr := &apiError{method: method, status: resp.StatusCode, description: envelope.Description}
			// Auth and bad-request failures will not improve on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return &retrylimit.FatalError{Err: apiErr}
			}
			return apiErr
		}
		if out != nil {
			if err := json.Unmarshal(envelope.Result, out); err != nil {
				return &retrylimit.FatalError{Err: fmt.Errorf("telegram %s: decode result: %w", method, err)}
			}
		}
		return nil
	}, c.limiter, 3)
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SetWebhook registers the webhook URL. The secret token is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	params := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "edited_message"},
	}
	if secretToken != "" {
		params["secret_token"] = secretToken
	}
	return c.call(ctx, "setWebhook", params, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": false}, nil)
}

// SendMessage sends text to a chat, optionally as a reply, and returns the
// id Telegram assigned to the sent message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int) (int, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if replyToMessageID != 0 {
		params["reply_to_message_id"] = replyToMessageID
	}
	var sent struct {
		MessageID int `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", params, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SetMessageReaction attaches an emoji reaction to a message.
func (c *Client) SetMessageReaction(ctx context.Context, chatID int64, messageID int, emoji string) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"reaction": []map[string]string{
			{"type": "emoji", "emoji": emoji},
		},
	}
	return c.call(ctx, "setMessageReaction", params, nil)
}
