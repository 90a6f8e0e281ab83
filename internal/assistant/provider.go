// Package assistant forwards free-form questions to a language model.
package assistant

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
)

//go:embed prompts/system.txt
var systemPrompt string

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("empty answer")

// Answerer answers a question with plain text.
type Answerer interface {
	Name() string
	Ask(ctx context.Context, question string) (string, error)
}

// Usage tracks token usage across questions.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// UsageReporter is implemented by providers that count tokens.
type UsageReporter interface {
	GetUsage() Usage
}

type usageTracker struct {
	mu    sync.Mutex
	usage Usage
}

func (t *usageTracker) track(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.InputTokens += int(input)
	t.usage.OutputTokens += int(output)
}

// GetUsage returns the tokens used so far.
func (t *usageTracker) GetUsage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Config selects and configures a provider.
type Config struct {
	Provider     string
	OpenAIToken  string
	GeminiAPIKey string
	OllamaURL    string
	OllamaModel  string
}

// New creates the configured provider.
func New(ctx context.Context, cfg Config) (Answerer, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		if cfg.OpenAIToken == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return NewOpenAI(cfg.OpenAIToken), nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		return NewGemini(ctx, cfg.GeminiAPIKey)
	case ProviderOllama, "":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown assistant provider: %s (use openai, gemini or ollama)", cfg.Provider)
	}
}

func cleanAnswer(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyAnswer
	}
	return s, nil
}
