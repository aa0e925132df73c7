package pipeline

import (
	"fmt"
	"strings"

	"github.com/hrygo/shopsense/engine"
)

// templateRecommendation builds the recommendation sentence deterministically
// from the structured decision fields. It is the fallback when the prose
// service is unavailable: a correct structured answer without pretty prose is
// still useful.
func templateRecommendation(best engine.Candidate, verdict *engine.BudgetVerdict, alternatives []engine.Alternative, budget float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Best match: %s", best.Name)
	if best.Brand != "" {
		fmt.Fprintf(&b, " by %s", best.Brand)
	}
	fmt.Fprintf(&b, " at %.3f in %s.", best.Price, best.Market)

	switch {
	case verdict == nil || !verdict.OK:
		fmt.Fprintf(&b, " Affordability could not be determined for this item.")
	case verdict.WithinBudget:
		fmt.Fprintf(&b, " It fits your budget of %.3f.", budget)
	default:
		fmt.Fprintf(&b, " It exceeds your budget of %.3f.", budget)
	}

	if len(alternatives) > 0 {
		top := alternatives[0]
		fmt.Fprintf(&b, " Cheaper at %s: %s for %.3f (save %.3f, %.1f%%).",
			top.Candidate.Market, top.Candidate.Name, top.Candidate.Price, top.Savings, top.SavingsPercent)
		if len(alternatives) > 1 {
			fmt.Fprintf(&b, " %d more alternative(s) available.", len(alternatives)-1)
		}
	} else {
		b.WriteString(" No cheaper equivalent found in other markets.")
	}

	return b.String()
}

// decisionFacts flattens the structured decision into the facts map consumed
// by the prose service.
func decisionFacts(best engine.Candidate, verdict *engine.BudgetVerdict, alternatives []engine.Alternative, budget float64) map[string]any {
	facts := map[string]any{
		"product": best.Name,
		"brand":   best.Brand,
		"market":  best.Market,
		"price":   best.Price,
		"budget":  budget,
	}

	if verdict != nil && verdict.OK {
		facts["within_budget"] = verdict.WithinBudget
		facts["quantity"] = verdict.Quantity
		facts["total_price"] = verdict.TotalPrice
	}

	if len(alternatives) > 0 {
		alts := make([]map[string]any, 0, len(alternatives))
		for _, alt := range alternatives {
			alts = append(alts, map[string]any{
				"product":         alt.Candidate.Name,
				"market":          alt.Candidate.Market,
				"price":           alt.Candidate.Price,
				"savings":         alt.Savings,
				"savings_percent": alt.SavingsPercent,
			})
		}
		facts["alternatives"] = alts
	}

	return facts
}
