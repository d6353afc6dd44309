// Package cost turns token usage into a monetary estimate.
//
// [ModelCost] holds per-million token prices for one model; [ModelCost.Estimate]
// applies them to an [ai.Usage] and returns an [Estimate] broken down by
// token kind.
package cost
