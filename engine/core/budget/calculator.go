// Package budget computes affordability verdicts and aggregate budget
// statistics over candidate sets.
package budget

import (
	"fmt"
	"sort"

	"github.com/hrygo/shopsense/engine"
)

// Calculator is stateless; all outputs are pure functions of the inputs and
// are owned by the request scope that produced them.
type Calculator struct{}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Analyze partitions candidates into within-budget and over-budget by
// price <= budget and reports min/max/mean price and the affordable fraction.
// Empty input yields a summary with zero counts, not an error. Price
// statistics are computed over positive prices only; the partition itself
// covers every candidate so the counts always sum to the total.
func (c *Calculator) Analyze(candidates []engine.Candidate, budget float64) engine.BudgetSummary {
	summary := engine.BudgetSummary{Budget: budget, Total: len(candidates)}
	if len(candidates) == 0 {
		return summary
	}

	var sum float64
	priced := 0
	for _, cand := range candidates {
		if cand.Price <= budget {
			summary.WithinBudget++
		} else {
			summary.OverBudget++
		}

		if cand.Price <= 0 {
			continue
		}
		if priced == 0 || cand.Price < summary.MinPrice {
			summary.MinPrice = cand.Price
		}
		if cand.Price > summary.MaxPrice {
			summary.MaxPrice = cand.Price
		}
		sum += cand.Price
		priced++
	}

	if priced > 0 {
		summary.MeanPrice = sum / float64(priced)
	}
	summary.AffordableFraction = float64(summary.WithinBudget) / float64(summary.Total)

	return summary
}

// SuggestQuantity produces the affordability verdict for one candidate.
// Quantity policy is fixed at 1: quantity optimization is deliberately
// deferred to the user, this is not a knapsack problem. An invalid price
// yields a failed verdict with a reason rather than an error.
func (c *Calculator) SuggestQuantity(candidate engine.Candidate, budget float64) engine.BudgetVerdict {
	if candidate.Price <= 0 {
		return engine.BudgetVerdict{
			Reason: fmt.Sprintf("invalid candidate price %.3f", candidate.Price),
		}
	}

	const quantity = 1
	total := candidate.Price * quantity
	return engine.BudgetVerdict{
		UnitPrice:    candidate.Price,
		Quantity:     quantity,
		TotalPrice:   total,
		WithinBudget: total <= budget,
		OK:           true,
	}
}

// Savings computes savings against a reference price for every strictly
// cheaper alternative, sorted by savings descending. Candidates priced at or
// above the reference are excluded, not zero-scored.
func (c *Calculator) Savings(referencePrice float64, alternatives []engine.Candidate) []engine.Alternative {
	if referencePrice <= 0 {
		return nil
	}

	out := make([]engine.Alternative, 0, len(alternatives))
	for _, alt := range alternatives {
		if alt.Price <= 0 || alt.Price >= referencePrice {
			continue
		}
		savings := referencePrice - alt.Price
		out = append(out, engine.Alternative{
			Candidate:      alt,
			Savings:        savings,
			SavingsPercent: savings / referencePrice * 100,
			Similarity:     alt.EffectiveScore(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Savings > out[j].Savings
	})

	return out
}
