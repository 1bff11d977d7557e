package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const pollinationsEndpoint = "https://text.pollinations.ai/openai"

// PollinationsProvider uses the free pollinations.ai text endpoint, which
// speaks the OpenAI chat completions dialect. No API key required.
type PollinationsProvider struct {
	model  string
	client *http.Client
}

func NewPollinationsProvider(model string) *PollinationsProvider {
	if model == "" {
		model = "openai"
	}
	return &PollinationsProvider{
		model:  model,
		client: &http.Client{Timeout: 25 * time.Second},
	}
}

func (p *PollinationsProvider) Generate(messages []Message) (string, error) {
	payload := map[string]any{
		"model":    p.model,
		"messages": messages,
		"private":  true,
	}

	body, err := postChat(p.client, pollinationsEndpoint, payload, nil)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		// The endpoint occasionally returns plain text instead of JSON.
		text := strings.TrimSpace(string(body))
		if text != "" {
			return text, nil
		}
		return "", fmt.Errorf("pollinations: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("pollinations: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}
