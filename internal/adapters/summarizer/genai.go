package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/domain"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates the client. baseURL overrides the API endpoint and is empty in production.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// geminiTooLarge recognises input-size rejections: a 413, or a 400 naming the token limit.
// Other 400s (bad key, bad argument) stay plain failures.
func geminiTooLarge(ae genai.APIError) bool {
	if ae.Code == http.StatusRequestEntityTooLarge {
		return true
	}
	if ae.Code != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(ae.Message)
	return strings.Contains(msg, "exceeds the maximum number of tokens") || strings.Contains(msg, "input token count")
}

func (g *Gemini) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	conf := &genai.GenerateContentConfig{Temperature: genai.Ptr(temperature)}
	if maxTokens > 0 {
		conf.MaxOutputTokens = int32(maxTokens)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), conf)
	if err != nil {
		var ae genai.APIError
		if errors.As(err, &ae) {
			observability.ObserveExternal("gemini", "generate", ae.Code, time.Since(start))
			if geminiTooLarge(ae) {
				return "", domain.E(domain.KindSummarizationTooLarge, "prompt exceeds the model input limit; reduce batch size", err)
			}
		} else {
			observability.ObserveExternal("gemini", "generate", 0, time.Since(start))
		}
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	observability.ObserveExternal("gemini", "generate", http.StatusOK, time.Since(start))

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
