package interpreter

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// groqClient implements the Client interface for the Groq API, which speaks
// the OpenAI chat completion protocol.
type groqClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newGroqClient creates a new Groq API client.
func newGroqClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &groqClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Extract sends an extraction request to Groq.
func (c *groqClient) Extract(ctx context.Context, proposalText string) (Extraction, error) {
	return chatCompletionExtract(ctx, c.httpClient, chatCompletionRequest{
		url:         "https://api.groq.com/openai/v1/chat/completions",
		apiKey:      c.apiKey,
		service:     "groq",
		model:       c.model,
		temperature: c.temperature,
		maxTokens:   c.maxTokens,
		proposal:    proposalText,
	})
}
