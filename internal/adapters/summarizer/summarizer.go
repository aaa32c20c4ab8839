package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"doctor_reputation/internal/domain"
)

type Config struct {
	Provider string // openai | gemini
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New returns the summarizer for cfg.Provider.
func New(ctx context.Context, cfg Config) (domain.Summarizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		s, err := NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gemini":
		s, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
}
