package followup

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/scoring"
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultTemperature = 0.7

// Generator writes three follow-up actions for one record. Unlike scoring
// there is no fallback: provider failures are returned to the caller.
type Generator struct {
	provider    llm.LLMProvider
	logger      logger.ILogger
	temperature float64
	timeout     time.Duration
}

func NewGenerator(provider llm.LLMProvider, log logger.ILogger, temperature float64, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = scoring.DefaultCallTimeout
	}
	return &Generator{
		provider:    provider,
		logger:      log,
		temperature: temperature,
		timeout:     timeout,
	}
}

func (g *Generator) Generate(ctx context.Context, record crm.Record, kind scoring.Kind) (string, error) {
	canonical, err := scoring.Canonical(record)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Generate 3 specific follow-up actions for this %s:
%s

Format as numbered list with actionable steps.
Return exactly 3 items, numbered 1. to 3.`, kind.Name, canonical)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	response, err := g.provider.Generate(callCtx, prompt, llm.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Error("FOLLOWUP", "Follow-up generation failed", map[string]interface{}{
			"kind":  kind.Name,
			"id":    record.ID(),
			"error": err.Error(),
		})
		return "", fmt.Errorf("generating follow-up for %s %q: %w", kind.Name, record.Name(), err)
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("generating follow-up for %s %q: %w", kind.Name, record.Name(), llm.ErrEmptyResponse)
	}

	g.logger.Info("FOLLOWUP", "Follow-up generated", map[string]interface{}{
		"kind":        kind.Name,
		"id":          record.ID(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return response, nil
}
