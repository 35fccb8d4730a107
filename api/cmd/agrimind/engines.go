package main

import (
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"agrimind/api/internal/config"
	"agrimind/api/internal/llm"
	"agrimind/api/internal/llm/gemini"
	"agrimind/api/internal/llm/gpt"
	"agrimind/api/internal/metrics"
)

// newEngines is swapped in tests.
var newEngines = buildEngines

// buildEngines registers every provider that has an API key, each behind its
// own circuit breaker, and selects the configured default.
func buildEngines(c *config.Config, m *metrics.Metrics, log *zap.Logger) (*llm.Engines, error) {
	settings := llm.BreakerSettings{
		ConsecutiveFailures: c.Breaker.ConsecutiveFailures,
		OpenTimeout:         c.GetBreakerOpenTimeout(),
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state changed",
				zap.String("engine", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if m != nil {
				m.BreakerOpen(name, to != gobreaker.StateClosed)
			}
		},
	}

	engs := llm.NewEngines()
	if c.OpenAI.APIKey != "" {
		e := gpt.New(c.OpenAI.APIKey, c.OpenAI.Model).WithBaseURL(c.OpenAI.BaseURL)
		engs.Register(llm.WithBreaker(e, settings), "openai")
	}
	if c.Gemini.APIKey != "" {
		e := gemini.New(c.Gemini.APIKey, c.Gemini.Model)
		engs.Register(llm.WithBreaker(e, settings), "google")
	}
	if len(engs.Names()) == 0 {
		return nil, fmt.Errorf("no provider configured: set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	if err := engs.SetDefault(c.Engine); err != nil {
		return nil, err
	}
	return engs, nil
}
