package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost_KnownModels(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.InDelta(t, 18.00, u.EstimateCost("claude-sonnet-4-5-20250929"), 1e-9)
	assert.InDelta(t, 90.00, u.EstimateCost("claude-opus-4-1-20250805"), 1e-9)
}

func TestEstimateCost_CacheTraffic(t *testing.T) {
	u := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}

	// 0.5M input at $0.80, 0.1M output at $4.00, 0.2M cache writes at
	// 1.25x input, 0.3M cache reads at 0.10x input.
	assert.InDelta(t, 1.024, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
}

func TestEstimateCost_UnknownModelIsFree(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("claude-1"))
}

func TestEstimateCost_NoUsage(t *testing.T) {
	assert.Zero(t, TokenUsage{}.EstimateCost("claude-sonnet-4-5-20250929"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 4000, OutputTokens: 600}.LogCost("claude-sonnet-4-5-20250929", "analyze")
		TokenUsage{}.LogCost("claude-1", "")
	})
}
