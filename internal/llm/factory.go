package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/store"
)

// ErrNotConfigured is returned by NewProvider when no provider is selected.
var ErrNotConfigured = errors.New("no LLM provider configured")

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with timeout, rate-limit and logging
// middleware. Failures are never retried here.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → timeout → rate limit → logging → base
	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	limited := WithRateLimit(logged, cfg.RateLimit)
	return WithTimeout(limited, cfg.Timeout), nil
}

// Unconfigured stands in when no provider is selected. Every call fails
// with ErrNotConfigured; wrapped with WithLogging, those calls are still
// recorded as failed requests.
func Unconfigured() Provider { return unconfigured{} }

type unconfigured struct{}

func (unconfigured) Generate(context.Context, Request) (*Response, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) ModelID() string { return "none" }
