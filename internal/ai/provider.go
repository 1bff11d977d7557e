// Package ai abstracts the text-generation backend behind a Provider
// interface. Callers treat generation as an opaque call that may fail; the
// fallback path lives with the caller, not here.
package ai

import (
	"fmt"
	"strings"
)

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates a response for a conversation. Implementations own
// their transport timeouts; no retries are performed here.
type Provider interface {
	Generate(messages []Message) (string, error)
}

// NewProvider selects a provider by engine name.
func NewProvider(engine, apiKey, model string) (Provider, error) {
	switch strings.ToLower(engine) {
	case "openai", "":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(apiKey, model), nil
	case "pollinations":
		return NewPollinationsProvider(model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", engine)
	}
}
