package budget

import (
	"math"
	"testing"

	"github.com/hrygo/shopsense/engine"
)

func priced(name string, price float64) engine.Candidate {
	return engine.Candidate{ID: name, Name: name, Price: price}
}

func TestAnalyze_PartitionCompleteness(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name       string
		candidates []engine.Candidate
		budget     float64
	}{
		{"empty", nil, 10},
		{"all affordable", []engine.Candidate{priced("a", 1), priced("b", 2)}, 10},
		{"all over", []engine.Candidate{priced("a", 11), priced("b", 20)}, 10},
		{"mixed", []engine.Candidate{priced("a", 1), priced("b", 20), priced("c", 10)}, 10},
		{"invalid prices included in partition", []engine.Candidate{priced("a", 0), priced("b", -1), priced("c", 5)}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := calc.Analyze(tt.candidates, tt.budget)
			if s.WithinBudget+s.OverBudget != s.Total {
				t.Errorf("partition incomplete: within=%d over=%d total=%d", s.WithinBudget, s.OverBudget, s.Total)
			}
			if s.Total != len(tt.candidates) {
				t.Errorf("Total = %d, want %d", s.Total, len(tt.candidates))
			}
		})
	}
}

func TestAnalyze_Statistics(t *testing.T) {
	calc := NewCalculator()

	s := calc.Analyze([]engine.Candidate{
		priced("a", 1.0),
		priced("b", 3.0),
		priced("c", 2.0),
	}, 2.5)

	if s.MinPrice != 1.0 || s.MaxPrice != 3.0 {
		t.Errorf("min/max = %f/%f, want 1.0/3.0", s.MinPrice, s.MaxPrice)
	}
	if math.Abs(s.MeanPrice-2.0) > 1e-9 {
		t.Errorf("MeanPrice = %f, want 2.0", s.MeanPrice)
	}
	if s.WithinBudget != 2 || s.OverBudget != 1 {
		t.Errorf("within/over = %d/%d, want 2/1", s.WithinBudget, s.OverBudget)
	}
	if math.Abs(s.AffordableFraction-2.0/3.0) > 1e-9 {
		t.Errorf("AffordableFraction = %f, want 2/3", s.AffordableFraction)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	calc := NewCalculator()
	s := calc.Analyze(nil, 10)

	if s.Total != 0 || s.WithinBudget != 0 || s.OverBudget != 0 {
		t.Errorf("empty input should yield zero counts, got %+v", s)
	}
	if s.MinPrice != 0 || s.MaxPrice != 0 || s.MeanPrice != 0 {
		t.Errorf("empty input should yield zero statistics, got %+v", s)
	}
}

func TestSuggestQuantity(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name         string
		price        float64
		budget       float64
		wantOK       bool
		wantWithin   bool
		wantQuantity int
	}{
		{"affordable", 1.2, 10, true, true, 1},
		{"exactly at budget", 10, 10, true, true, 1},
		{"over budget", 12, 10, true, false, 1},
		{"zero price invalid", 0, 10, false, false, 0},
		{"negative price invalid", -1, 10, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := calc.SuggestQuantity(priced("x", tt.price), tt.budget)
			if v.OK != tt.wantOK {
				t.Fatalf("OK = %v, want %v", v.OK, tt.wantOK)
			}
			if !tt.wantOK {
				if v.Reason == "" {
					t.Error("failed verdict must carry a reason")
				}
				return
			}
			if v.Quantity != tt.wantQuantity {
				t.Errorf("Quantity = %d, want %d (quantity policy is always 1)", v.Quantity, tt.wantQuantity)
			}
			if v.WithinBudget != tt.wantWithin {
				t.Errorf("WithinBudget = %v, want %v", v.WithinBudget, tt.wantWithin)
			}
			if v.TotalPrice != tt.price {
				t.Errorf("TotalPrice = %f, want %f", v.TotalPrice, tt.price)
			}
		})
	}
}

func TestSavings_PositiveAndSorted(t *testing.T) {
	calc := NewCalculator()

	alts := calc.Savings(2.0, []engine.Candidate{
		priced("small saving", 1.8),
		priced("same price", 2.0),
		priced("more expensive", 3.0),
		priced("big saving", 0.5),
		priced("invalid", 0),
	})

	if len(alts) != 2 {
		t.Fatalf("Savings() returned %d alternatives, want 2", len(alts))
	}
	if alts[0].Candidate.ID != "big saving" {
		t.Errorf("first alternative = %s, want big saving (sorted by savings desc)", alts[0].Candidate.ID)
	}

	for _, alt := range alts {
		if alt.Savings <= 0 {
			t.Errorf("alternative %s has non-positive savings %f", alt.Candidate.ID, alt.Savings)
		}
		if alt.Candidate.Price >= 2.0 {
			t.Errorf("alternative %s is not cheaper than the reference", alt.Candidate.ID)
		}
	}

	if math.Abs(alts[0].SavingsPercent-75) > 1e-9 {
		t.Errorf("SavingsPercent = %f, want 75", alts[0].SavingsPercent)
	}
}

func TestSavings_InvalidReference(t *testing.T) {
	calc := NewCalculator()
	if got := calc.Savings(0, []engine.Candidate{priced("a", 1)}); got != nil {
		t.Errorf("Savings with invalid reference = %v, want nil", got)
	}
}
