package interpreter

import (
	"fmt"
	"strings"
)

// NewClient creates an extraction client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	case "groq":
		return newGroqClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported interpreter provider: %s", cfg.Provider)
	}
}
