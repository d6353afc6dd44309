package cost

import (
	"fmt"

	"github.com/leofalp/scriptgraph/providers/ai"
)

// DefaultCurrency is used when ModelCost.Currency is empty.
const DefaultCurrency = "USD"

// ModelCost is the price list of one model. Prices are per million tokens.
//
// Example (GPT-4o-mini style pricing):
//
//	cost.ModelCost{
//	    InputCostPerMillion:       0.15,
//	    OutputCostPerMillion:      0.60,
//	    CachedInputCostPerMillion: 0.075,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million" yaml:"input_cost_per_million" mapstructure:"input_cost_per_million" validate:"gte=0"`
	OutputCostPerMillion float64 `json:"output_cost_per_million" yaml:"output_cost_per_million" mapstructure:"output_cost_per_million" validate:"gte=0"`

	// CachedInputCostPerMillion prices cached prompt tokens. When zero they
	// are billed at the input rate.
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty" yaml:"cached_input_cost_per_million" mapstructure:"cached_input_cost_per_million" validate:"gte=0"`

	Currency string `json:"currency,omitempty" yaml:"currency" mapstructure:"currency"`
}

// IsZero reports whether no price is set.
func (mc ModelCost) IsZero() bool {
	return mc.InputCostPerMillion == 0 && mc.OutputCostPerMillion == 0 && mc.CachedInputCostPerMillion == 0
}

// CalculateInputCost returns the cost of tokens at the input rate.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return perMillion(tokens, mc.InputCostPerMillion)
}

// CalculateOutputCost returns the cost of tokens at the output rate.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return perMillion(tokens, mc.OutputCostPerMillion)
}

// CalculateCachedCost returns the cost of cached prompt tokens.
func (mc ModelCost) CalculateCachedCost(tokens int) float64 {
	if mc.CachedInputCostPerMillion == 0 {
		return mc.CalculateInputCost(tokens)
	}
	return perMillion(tokens, mc.CachedInputCostPerMillion)
}

// Estimate prices usage. Cached tokens are counted inside PromptTokens, so
// only the uncached remainder is billed at the input rate.
func (mc ModelCost) Estimate(usage ai.Usage) Estimate {
	cached := min(max(usage.CachedTokens, 0), max(usage.PromptTokens, 0))
	uncached := max(usage.PromptTokens-cached, 0)

	estimate := Estimate{
		InputCost:  mc.CalculateInputCost(uncached),
		CachedCost: mc.CalculateCachedCost(cached),
		OutputCost: mc.CalculateOutputCost(usage.CompletionTokens),
		Currency:   mc.Currency,
	}
	if estimate.Currency == "" {
		estimate.Currency = DefaultCurrency
	}
	estimate.TotalCost = estimate.InputCost + estimate.CachedCost + estimate.OutputCost
	return estimate
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	currency := mc.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return fmt.Sprintf("Input: %.6f %s/M, Output: %.6f %s/M",
		mc.InputCostPerMillion, currency, mc.OutputCostPerMillion, currency)
}

// Estimate is the priced breakdown of one usage total.
type Estimate struct {
	InputCost  float64 `json:"input_cost"`
	CachedCost float64 `json:"cached_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
	Currency   string  `json:"currency"`
}

func (e Estimate) String() string {
	return fmt.Sprintf("%.6f %s", e.TotalCost, e.Currency)
}

func perMillion(tokens int, price float64) float64 {
	return (float64(tokens) / 1_000_000.0) * price
}
