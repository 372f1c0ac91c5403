// Package backend provides the processing backends selected by BACKEND_KIND.
package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

// Defaults for the simulated backend.
const (
	DefaultBaseDelay     = 2 * time.Second
	DefaultJitter        = 3 * time.Second
	DefaultPricePerToken = 0.00002
	DefaultTemplate      = "Simulated response to: {{prompt}}"

	promptPlaceholder = "{{prompt}}"
)

// ErrSimulatedFailure is returned when the configured failure rate triggers.
var ErrSimulatedFailure = errors.New("simulated processing failure")

// SimulatedConfig configures Simulated. Negative values are clamped to zero and an
// empty template falls back to DefaultTemplate. Rand and Sleep exist for deterministic tests.
type SimulatedConfig struct {
	BaseDelay     time.Duration
	Jitter        time.Duration
	FailureRate   float64
	PricePerToken float64
	Template      string

	// Rand returns a value in [0, 1).
	Rand  func() float64
	Sleep func(ctx context.Context, d time.Duration) error
}

// Simulated waits a randomized delay and returns a templated answer with token estimates.
type Simulated struct {
	cfg SimulatedConfig
}

var _ core.ProcessingBackend = (*Simulated)(nil)

// NewSimulated builds a simulated backend.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	cfg.FailureRate = math.Max(0, math.Min(1, cfg.FailureRate))
	if cfg.PricePerToken < 0 {
		cfg.PricePerToken = 0
	}
	if strings.TrimSpace(cfg.Template) == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Simulated{cfg: cfg}
}

// Process implements core.ProcessingBackend.
func (s *Simulated) Process(ctx context.Context, _ string, prompt string) (*model.ProcessingResult, error) {
	delay := s.cfg.BaseDelay + time.Duration(s.cfg.Rand()*float64(s.cfg.Jitter))
	if err := s.cfg.Sleep(ctx, delay); err != nil {
		return nil, fmt.Errorf("simulated delay: %w", err)
	}

	if s.cfg.FailureRate > 0 && s.cfg.Rand() < s.cfg.FailureRate {
		return nil, ErrSimulatedFailure
	}

	out := strings.ReplaceAll(s.cfg.Template, promptPlaceholder, prompt)
	promptTokens := EstimateTokens(prompt)
	completionTokens := EstimateTokens(out)
	total := promptTokens + completionTokens
	return &model.ProcessingResult{
		Result: out,
		Metadata: &model.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      total,
			EstimatedCost:    float64(total) * s.cfg.PricePerToken,
		},
	}, nil
}

// EstimateTokens approximates a token count as one token per four characters, at least one.
func EstimateTokens(s string) int {
	n := (utf8.RuneCountInString(s) + 3) / 4
	return max(n, 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
