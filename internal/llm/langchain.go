package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	langopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/duskwallet/duskwallet-api/internal/config"
)

// LangChainGenerator calls an OpenAI-compatible endpoint through langchaingo.
type LangChainGenerator struct {
	llm         llms.Model
	temperature float64
}

// NewLangChainGenerator constructs a LangChainGenerator.
func NewLangChainGenerator(cfg config.AIConfig) (*LangChainGenerator, error) {
	llm, err := langopenai.New(
		langopenai.WithToken(cfg.APIKey),
		langopenai.WithModel(cfg.Model),
		langopenai.WithBaseURL(normalizeBaseURL(cfg.BaseURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: langchain client: %w", err)
	}
	return &LangChainGenerator{llm: llm, temperature: cfg.Temperature}, nil
}

// Generate sends prompt as a single user message.
func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
