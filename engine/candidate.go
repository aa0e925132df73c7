package engine

// Candidate is one retrieved product at a point in time. Candidates are
// immutable snapshots: a new Candidate is produced whenever a score is
// revised, so each pipeline stage can be tested in isolation.
type Candidate struct {
	ID             string
	Name           string
	NormalizedName string
	Description    string
	Brand          string
	Category       string
	Market         string
	Price          float64

	// Score is the raw similarity score in [0,1] from the embedding search.
	Score float32

	// FusedScore is the multi-signal relevance score populated by the
	// reranker. Nil until a rerank stage has run.
	FusedScore *float32
}

// WithFusedScore returns a copy of the candidate with FusedScore set.
// The receiver is never mutated.
func (c Candidate) WithFusedScore(score float32) Candidate {
	c.FusedScore = &score
	return c
}

// EffectiveScore returns the fused score when present, the raw similarity
// score otherwise.
func (c Candidate) EffectiveScore() float32 {
	if c.FusedScore != nil {
		return *c.FusedScore
	}
	return c.Score
}

// QueryContext is the immutable per-request input. It is created once per
// incoming request and flows through every pipeline stage unchanged.
type QueryContext struct {
	Embedding       []float32
	RecognizedText  string
	Market          string
	Budget          float64
	Limit           int
	PreferredBrands []string
}

// Alternative relates a reference candidate to a cheaper candidate from a
// different market. Computed on demand, never persisted.
type Alternative struct {
	Candidate      Candidate
	Savings        float64
	SavingsPercent float64
	Similarity     float32
	BrandMatch     bool
	ExactMatch     bool
}

// BudgetVerdict is the affordability judgment for one candidate against a
// stated budget. Recomputed fresh whenever budget or price changes.
type BudgetVerdict struct {
	UnitPrice    float64
	Quantity     int
	TotalPrice   float64
	WithinBudget bool

	// OK is false when the verdict could not be computed (invalid price);
	// Reason then carries the explanation.
	OK     bool
	Reason string
}

// BudgetSummary aggregates affordability over a candidate set.
type BudgetSummary struct {
	Budget             float64
	Total              int
	WithinBudget       int
	OverBudget         int
	MinPrice           float64
	MaxPrice           float64
	MeanPrice          float64
	AffordableFraction float64
}
