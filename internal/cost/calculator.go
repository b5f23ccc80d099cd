// Package cost prices provider API usage so every analysis carries its spend
// in the audit record.
package cost

import "github.com/fenchurch-labs/corep-assistant/pkg/anthropic"

// Rates is the pricing table, one entry per provider.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaRate             `yaml:"jina" mapstructure:"jina"`
}

// ModelRate prices one Claude model in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaRate prices Jina embedding tokens.
type JinaRate struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// Calculator prices API usage against a Rates table.
type Calculator struct {
	rates Rates
}

// NewCalculator builds a Calculator over the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude prices one Claude call from its token usage. Unknown models price
// at zero rather than failing the analysis.
func (c *Calculator) Claude(model string, usage anthropic.TokenUsage) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	input := float64(usage.InputTokens) / 1e6 * rate.Input
	output := float64(usage.OutputTokens) / 1e6 * rate.Output
	cacheWrite := float64(usage.CacheCreationInputTokens) / 1e6 * rate.Input * rate.CacheWriteMul
	cacheRead := float64(usage.CacheReadInputTokens) / 1e6 * rate.Input * rate.CacheReadMul

	return input + output + cacheWrite + cacheRead
}

// Jina prices embedding token usage.
func (c *Calculator) Jina(tokens int64) float64 {
	return float64(tokens) / 1e6 * c.rates.Jina.PerMTok
}

// claudeRate builds a ModelRate with the standard cache multipliers: writes
// bill at 1.25x the input rate, reads at 0.1x.
func claudeRate(input, output float64) ModelRate {
	return ModelRate{Input: input, Output: output, CacheWriteMul: 1.25, CacheReadMul: 0.1}
}

// DefaultRates returns the built-in pricing table.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  claudeRate(0.80, 4.00),
			"claude-sonnet-4-5-20250929": claudeRate(3.00, 15.00),
			"claude-opus-4-1-20250805":   claudeRate(15.00, 75.00),
		},
		Jina: JinaRate{PerMTok: 0.02},
	}
}
