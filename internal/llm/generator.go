// Package llm adapts OpenAI-compatible chat backends to a single prompt-in, text-out call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/duskwallet/duskwallet-api/internal/config"
)

var (
	// ErrMissingAPIKey is returned when no backend credential is configured.
	ErrMissingAPIKey = errors.New("llm: missing api key (set `ai.api-key`, AI_API_KEY or GEMINI_API_KEY)")
	// ErrEmptyResponse is returned when the backend answers without text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Generator turns a prompt into raw model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unavailable returns a Generator that always fails with err.
func Unavailable(err error) Generator {
	return GeneratorFunc(func(context.Context, string) (string, error) {
		return "", err
	})
}

// New builds the backend selected by cfg.Provider.
func New(cfg config.AIConfig) (Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	switch cfg.Provider {
	case config.AIProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	case config.AIProviderLangChain, "":
		return NewLangChainGenerator(cfg)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// normalizeBaseURL drops the trailing slash; both clients append "/chat/completions".
func normalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
