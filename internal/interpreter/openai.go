package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mshadianto/mnee-sentinel/internal/common"
)

// openAIClient implements the Client interface for the OpenAI API.
type openAIClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4-turbo-preview"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &openAIClient{
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

// Extract sends an extraction request to OpenAI.
func (c *openAIClient) Extract(ctx context.Context, proposalText string) (Extraction, error) {
	return chatCompletionExtract(ctx, c.httpClient, chatCompletionRequest{
		url:         "https://api.openai.com/v1/chat/completions",
		apiKey:      c.apiKey,
		service:     "openai",
		model:       c.model,
		temperature: c.temperature,
		maxTokens:   c.maxTokens,
		proposal:    proposalText,
	})
}

// chatCompletionRequest carries the parameters shared by OpenAI-compatible
// chat completion endpoints.
type chatCompletionRequest struct {
	url         string
	apiKey      string
	service     string
	model       string
	proposal    string
	temperature float64
	maxTokens   int
}

// chatCompletionResponse represents an OpenAI-compatible response structure.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func chatCompletionExtract(ctx context.Context, httpClient *http.Client, r chatCompletionRequest) (Extraction, error) {
	requestBody := map[string]any{
		"model": r.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": r.proposal,
			},
		},
		"temperature": r.temperature,
		"max_tokens":  r.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Extraction{}, fmt.Errorf("%w: %s: %s", common.ErrRateLimit, r.service, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("%s API error (status %d): %s", r.service, resp.StatusCode, string(body))
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return Extraction{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return Extraction{}, fmt.Errorf("no choices in response")
	}

	return parseExtraction(response.Choices[0].Message.Content)
}
