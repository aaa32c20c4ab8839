// Package summarizer adapts hosted language models to domain.Summarizer.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/domain"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client *resty.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(timeout)
	return &OpenAI{client: c, model: model}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (o *OpenAI) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	body := chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	start := time.Now()
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post("/chat/completions")
	if err != nil {
		observability.ObserveExternal("openai", "chat", 0, time.Since(start))
		return "", fmt.Errorf("openai request: %w", err)
	}
	observability.ObserveExternal("openai", "chat", resp.StatusCode(), time.Since(start))

	if resp.StatusCode() != http.StatusOK {
		var ae apiError
		_ = json.Unmarshal(resp.Body(), &ae)
		if resp.StatusCode() == http.StatusRequestEntityTooLarge || ae.Error.Code == "context_length_exceeded" {
			return "", domain.E(domain.KindSummarizationTooLarge, "prompt exceeds the model context; reduce batch size", nil)
		}
		msg := ae.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode(), msg)
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
