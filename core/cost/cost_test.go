package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leofalp/scriptgraph/providers/ai"
)

func TestModelCost_Estimate(t *testing.T) {
	price := ModelCost{InputCostPerMillion: 2, OutputCostPerMillion: 8}

	estimate := price.Estimate(ai.Usage{PromptTokens: 500_000, CompletionTokens: 250_000, TotalTokens: 750_000})

	assert.InDelta(t, 1.0, estimate.InputCost, 1e-9)
	assert.InDelta(t, 2.0, estimate.OutputCost, 1e-9)
	assert.Zero(t, estimate.CachedCost)
	assert.InDelta(t, 3.0, estimate.TotalCost, 1e-9)
	assert.Equal(t, DefaultCurrency, estimate.Currency)
}

func TestModelCost_EstimateCachedTokens(t *testing.T) {
	price := ModelCost{InputCostPerMillion: 2, OutputCostPerMillion: 8, CachedInputCostPerMillion: 1, Currency: "EUR"}

	estimate := price.Estimate(ai.Usage{PromptTokens: 1_000_000, CachedTokens: 400_000})

	assert.InDelta(t, 1.2, estimate.InputCost, 1e-9)
	assert.InDelta(t, 0.4, estimate.CachedCost, 1e-9)
	assert.InDelta(t, 1.6, estimate.TotalCost, 1e-9)
	assert.Equal(t, "EUR", estimate.Currency)
}

func TestModelCost_CachedWithoutRateUsesInputRate(t *testing.T) {
	price := ModelCost{InputCostPerMillion: 2}

	estimate := price.Estimate(ai.Usage{PromptTokens: 1_000_000, CachedTokens: 2_000_000})

	assert.Zero(t, estimate.InputCost)
	assert.InDelta(t, 2.0, estimate.CachedCost, 1e-9)
	assert.InDelta(t, 2.0, estimate.TotalCost, 1e-9)
}

func TestModelCost_IsZero(t *testing.T) {
	assert.True(t, ModelCost{}.IsZero())
	assert.True(t, ModelCost{Currency: "EUR"}.IsZero())
	assert.False(t, ModelCost{OutputCostPerMillion: 0.1}.IsZero())
}

func TestModelCost_String(t *testing.T) {
	assert.Equal(t, "Input: 0.150000 USD/M, Output: 0.600000 USD/M",
		ModelCost{InputCostPerMillion: 0.15, OutputCostPerMillion: 0.6}.String())
	assert.Equal(t, "1.500000 EUR", Estimate{TotalCost: 1.5, Currency: "EUR"}.String())
}
