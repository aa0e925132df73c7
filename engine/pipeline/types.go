// Package pipeline implements the decision pipeline as a strictly sequential
// state machine: market query, budget analysis, quantity suggestion,
// cross-market alternative search, recommendation synthesis. Every stage
// records a ToolResult into an ordered execution log so callers and tests can
// audit exactly which branch was taken and why.
package pipeline

import (
	"time"

	"github.com/hrygo/shopsense/engine"
)

// State identifies one pipeline stage. Transitions are strictly sequential
// with no backtracking; StateAbort is reachable from StateQueryMarket only.
type State string

const (
	StateQueryMarket      State = "QUERY_MARKET"
	StateAnalyzeBudget    State = "ANALYZE_BUDGET"
	StateSuggestQuantity  State = "SUGGEST_QUANTITY"
	StateFindAlternatives State = "FIND_ALTERNATIVES"
	StateSynthesize       State = "SYNTHESIZE_RECOMMENDATION"
	StateDone             State = "DONE"
	StateAbort            State = "ABORT"
)

// Payload is the typed stage output carried by a ToolResult. Each stage has
// its own payload type so consumers can switch exhaustively instead of
// runtime type-checking an untyped blob.
type Payload interface {
	isPayload()
}

// SearchPayload is the QUERY_MARKET output: reranked, prototype-boosted
// market candidates plus the all-markets pool gathered for the alternative
// search fallback.
type SearchPayload struct {
	MarketResults []engine.Candidate
	AllResults    []engine.Candidate
}

// BudgetPayload is the ANALYZE_BUDGET output.
type BudgetPayload struct {
	Summary engine.BudgetSummary
}

// QuantityPayload is the SUGGEST_QUANTITY output.
type QuantityPayload struct {
	Verdict engine.BudgetVerdict
}

// AlternativeSource names which branch produced the alternative pool.
type AlternativeSource string

const (
	// SourceExactName means the alternatives came from a name-based search
	// classified in strict exact-match mode.
	SourceExactName AlternativeSource = "exact_name"
	// SourceEmbedding means the strict tier found nothing and the looser
	// embedding-similarity pool was used instead.
	SourceEmbedding AlternativeSource = "embedding"
)

// AlternativesPayload is the FIND_ALTERNATIVES output.
type AlternativesPayload struct {
	Alternatives []engine.Alternative
	Source       AlternativeSource
}

// RecommendationPayload is the SYNTHESIZE_RECOMMENDATION output.
type RecommendationPayload struct {
	Text string

	// FromTemplate is true when the prose service was unavailable and the
	// deterministic template produced the text.
	FromTemplate bool
}

func (SearchPayload) isPayload()         {}
func (BudgetPayload) isPayload()         {}
func (QuantityPayload) isPayload()       {}
func (AlternativesPayload) isPayload()   {}
func (RecommendationPayload) isPayload() {}

// ToolResult is the uniform contract returned by every pipeline stage.
// A failed result carries a non-empty reasoning string and a nil payload;
// callers must not read Payload unless Success is true.
type ToolResult struct {
	State     State
	Success   bool
	Reasoning string
	Payload   Payload
	Elapsed   time.Duration
}

// Decision is the pipeline's final output, exposed to the cart/checkout
// subsystem that embeds the engine.
type Decision struct {
	RequestID      string
	FinalState     State
	BestCandidate  *engine.Candidate
	Verdict        *engine.BudgetVerdict
	Alternatives   []engine.Alternative
	Recommendation string

	// Log is the ordered execution trail, one ToolResult per executed
	// state, including aborted runs.
	Log []ToolResult
}

// Config holds the pipeline's operational knobs.
type Config struct {
	// SearchTimeout bounds each call to the similarity-search service.
	SearchTimeout time.Duration

	// PhraseTimeout bounds the best-effort prose-generation call.
	PhraseTimeout time.Duration

	// MaxAlternatives caps the alternatives surfaced to the user.
	MaxAlternatives int

	// AllMarketsLimit is the result limit for the cross-market searches.
	AllMarketsLimit int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SearchTimeout:   10 * time.Second,
		PhraseTimeout:   8 * time.Second,
		MaxAlternatives: 3,
		AllMarketsLimit: 30,
	}
}
