package factory

import (
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/llm/gemini"
	"ai-salesops-be/pkg/llm/ollama"
	"ai-salesops-be/pkg/llm/openai"
	"context"
	"fmt"
	"time"
)

type ProviderConfig struct {
	Provider string // "ollama", "openai", "huggingface", "gemini"
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "openai", "huggingface":
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Provider == "huggingface" {
			baseURL = "https://router.huggingface.co/v1"
		}
		return openai.NewOpenAIProvider(cfg.APIKey, baseURL, cfg.Model, cfg.Timeout), nil
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
