package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

// TokenUsage tallies the tokens one call consumed.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func fromSDKUsage(u sdk.Usage) TokenUsage {
	return TokenUsage{
		InputTokens:              u.InputTokens,
		OutputTokens:             u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}

// modelPrice is USD per million tokens.
type modelPrice struct {
	input  float64
	output float64
}

// Cache traffic is billed as a multiple of the input rate.
const (
	cacheWriteMultiplier = 1.25
	cacheReadMultiplier  = 0.10
)

var modelPricing = map[string]modelPrice{
	"claude-haiku-4-5-20251001":  {input: 0.80, output: 4.00},
	"claude-sonnet-4-5-20250929": {input: 3.00, output: 15.00},
	"claude-opus-4-1-20250805":   {input: 15.00, output: 75.00},
}

// EstimateCost returns the call's estimated spend in USD, or 0 for a model
// the pricing table does not know.
func (u TokenUsage) EstimateCost(model string) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	perMTok := func(tokens int64, rate float64) float64 {
		return float64(tokens) / 1e6 * rate
	}
	return perMTok(u.InputTokens, price.input) +
		perMTok(u.OutputTokens, price.output) +
		perMTok(u.CacheCreationInputTokens, price.input*cacheWriteMultiplier) +
		perMTok(u.CacheReadInputTokens, price.input*cacheReadMultiplier)
}

// LogCost writes the usage and estimated cost to the structured log under
// the given phase label.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
