package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator is the single operation the game needs from a text-generation
// service. Implementations must return a wrapped error on transport, auth, or
// rate-limit failure; callers never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Service adapts a langchaingo model to the Generator interface.
type Service struct {
	llm llms.Model
}

func NewService(apiKey, model string) (*Service, error) {
	llm, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	return &Service{llm: llm}, nil
}

func (s *Service) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	completion, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate LLM response: %w", err)
	}

	return strings.TrimSpace(completion), nil
}
