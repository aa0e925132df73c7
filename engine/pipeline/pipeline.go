package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/shopsense/engine"
	"github.com/hrygo/shopsense/engine/core/budget"
	"github.com/hrygo/shopsense/engine/core/match"
	"github.com/hrygo/shopsense/engine/core/prototype"
	"github.com/hrygo/shopsense/engine/core/rerank"
	"github.com/hrygo/shopsense/engine/metrics"
)

// Deps are the pipeline's collaborators, constructed once at process start
// and passed in explicitly. Search is required; everything else has a
// working default or is optional.
type Deps struct {
	Search     engine.SearchService
	Phrase     engine.PhraseService
	Reranker   *rerank.Service
	Prototypes *prototype.Store
	Calculator *budget.Calculator
	Matcher    *match.Matcher
	Metrics    *metrics.Exporter
	Logger     *slog.Logger
}

// Pipeline sequences the decision stages for one request at a time. It holds
// no per-request state; concurrent Run calls are safe because the only shared
// mutable collaborator, the prototype store, is read-only at query time.
type Pipeline struct {
	search     engine.SearchService
	phrase     engine.PhraseService
	reranker   *rerank.Service
	prototypes *prototype.Store
	calculator *budget.Calculator
	matcher    *match.Matcher
	metrics    *metrics.Exporter
	logger     *slog.Logger
	cfg        Config
}

// New creates a Pipeline.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Search == nil {
		return nil, fmt.Errorf("search service cannot be nil")
	}
	if deps.Reranker == nil {
		deps.Reranker = rerank.NewService(nil)
	}
	if deps.Prototypes == nil {
		deps.Prototypes = prototype.NewStore()
	}
	if deps.Calculator == nil {
		deps.Calculator = budget.NewCalculator()
	}
	if deps.Matcher == nil {
		deps.Matcher = match.NewMatcher(match.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = def.SearchTimeout
	}
	if cfg.PhraseTimeout <= 0 {
		cfg.PhraseTimeout = def.PhraseTimeout
	}
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = def.MaxAlternatives
	}
	if cfg.AllMarketsLimit <= 0 {
		cfg.AllMarketsLimit = def.AllMarketsLimit
	}

	return &Pipeline{
		search:     deps.Search,
		phrase:     deps.Phrase,
		reranker:   deps.Reranker,
		prototypes: deps.Prototypes,
		calculator: deps.Calculator,
		matcher:    deps.Matcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
	}, nil
}

// Run executes the full decision pipeline for one query. The only
// caller-visible error is context cancellation; every degraded outcome is
// expressed through the execution log and the final state instead.
func (p *Pipeline) Run(ctx context.Context, q *engine.QueryContext) (*Decision, error) {
	if q == nil {
		return nil, fmt.Errorf("query context cannot be nil")
	}

	requestID := shortuuid.New()
	logger := p.logger.With("request_id", requestID)

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	decision := &Decision{RequestID: requestID}

	// QUERY_MARKET
	marketResults, allResults := p.queryMarket(ctx, q, limit, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(marketResults) == 0 {
		reasoning := fmt.Sprintf("no products found in market %q; try another market or broader criteria", q.Market)
		decision.Log = append(decision.Log, ToolResult{
			State:     StateQueryMarket,
			Success:   false,
			Reasoning: reasoning,
		})
		decision.FinalState = StateAbort
		logger.InfoContext(ctx, "Pipeline aborted", "state", StateQueryMarket, "reason", reasoning)
		p.metrics.ObserveRun(string(StateAbort))
		return decision, nil
	}

	decision.Log = append(decision.Log, ToolResult{
		State:   StateQueryMarket,
		Success: true,
		Reasoning: fmt.Sprintf("found %d candidate(s) in market %q and %d across all markets; reranked and prototype-boosted",
			len(marketResults), q.Market, len(allResults)),
		Payload: SearchPayload{MarketResults: marketResults, AllResults: allResults},
	})

	best := marketResults[0]
	decision.BestCandidate = &best

	// ANALYZE_BUDGET — informational only, never gates progression.
	p.runStage(StateAnalyzeBudget, func() ToolResult {
		s := p.calculator.Analyze(marketResults, q.Budget)
		return ToolResult{
			State:   StateAnalyzeBudget,
			Success: true,
			Reasoning: fmt.Sprintf("%d of %d candidate(s) within budget %.3f",
				s.WithinBudget, s.Total, q.Budget),
			Payload: BudgetPayload{Summary: s},
		}
	}, decision, logger)

	// SUGGEST_QUANTITY
	p.runStage(StateSuggestQuantity, func() ToolResult {
		v := p.calculator.SuggestQuantity(best, q.Budget)
		if !v.OK {
			return ToolResult{
				State:     StateSuggestQuantity,
				Success:   false,
				Reasoning: fmt.Sprintf("cannot suggest quantity for %q: %s", best.Name, v.Reason),
			}
		}
		decision.Verdict = &v
		return ToolResult{
			State:   StateSuggestQuantity,
			Success: true,
			Reasoning: fmt.Sprintf("suggested quantity %d at %.3f each (within budget: %t)",
				v.Quantity, v.UnitPrice, v.WithinBudget),
			Payload: QuantityPayload{Verdict: v},
		}
	}, decision, logger)

	// FIND_ALTERNATIVES
	p.runStage(StateFindAlternatives, func() ToolResult {
		alts, source := p.findAlternatives(ctx, best, allResults, logger)
		if len(alts) > p.cfg.MaxAlternatives {
			alts = alts[:p.cfg.MaxAlternatives]
		}
		decision.Alternatives = alts

		reasoning := fmt.Sprintf("found %d cheaper alternative(s) via %s matching", len(alts), source)
		if len(alts) == 0 {
			reasoning = "no unambiguous cheaper alternative in other markets"
		}
		return ToolResult{
			State:     StateFindAlternatives,
			Success:   true,
			Reasoning: reasoning,
			Payload:   AlternativesPayload{Alternatives: alts, Source: source},
		}
	}, decision, logger)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// SYNTHESIZE_RECOMMENDATION
	p.runStage(StateSynthesize, func() ToolResult {
		text, fromTemplate := p.synthesize(ctx, best, decision.Verdict, decision.Alternatives, q.Budget, logger)
		decision.Recommendation = text

		reasoning := "recommendation phrased by prose service"
		if fromTemplate {
			reasoning = "prose service unavailable; used deterministic template"
		}
		return ToolResult{
			State:     StateSynthesize,
			Success:   true,
			Reasoning: reasoning,
			Payload:   RecommendationPayload{Text: text, FromTemplate: fromTemplate},
		}
	}, decision, logger)

	decision.FinalState = StateDone
	p.metrics.ObserveRun(string(StateDone))
	logger.InfoContext(ctx, "Pipeline completed",
		"best", best.Name,
		"market", best.Market,
		"alternatives", len(decision.Alternatives),
	)

	return decision, nil
}

// runStage executes one stage body, records its ToolResult and duration.
func (p *Pipeline) runStage(state State, fn func() ToolResult, decision *Decision, logger *slog.Logger) ToolResult {
	start := time.Now()
	result := fn()
	result.Elapsed = time.Since(start)

	decision.Log = append(decision.Log, result)
	p.metrics.ObserveStage(string(state), result.Elapsed)
	logger.Debug("Stage completed", "state", state, "success", result.Success, "reasoning", result.Reasoning)

	return result
}

// queryMarket issues the market-scoped and all-markets searches concurrently.
// The two calls are independent; joining before the next stage is a pure
// latency optimization. Search failures degrade to zero results.
func (p *Pipeline) queryMarket(ctx context.Context, q *engine.QueryContext, limit int, logger *slog.Logger) (market, all []engine.Candidate) {
	start := time.Now()
	defer func() {
		p.metrics.ObserveStage(string(StateQueryMarket), time.Since(start))
	}()

	var g errgroup.Group

	g.Go(func() error {
		market = p.boundedSearch(ctx, &engine.SearchRequest{
			Embedding: q.Embedding,
			Text:      q.RecognizedText,
			Market:    q.Market,
			Limit:     limit,
		}, logger)
		return nil
	})
	g.Go(func() error {
		all = p.boundedSearch(ctx, &engine.SearchRequest{
			Embedding: q.Embedding,
			Text:      q.RecognizedText,
			Limit:     p.cfg.AllMarketsLimit,
		}, logger)
		return nil
	})
	_ = g.Wait()

	if len(market) == 0 {
		return nil, all
	}

	reranked := p.reranker.Rerank(market, q.RecognizedText, &rerank.Preferences{Brands: q.PreferredBrands})

	boosted := make([]engine.Candidate, 0, len(reranked))
	for _, c := range reranked {
		boosted = append(boosted, c.WithFusedScore(
			p.prototypes.Boost(q.Embedding, c.Category, c.Brand, c.EffectiveScore())))
	}
	sort.SliceStable(boosted, func(i, j int) bool {
		return *boosted[i].FusedScore > *boosted[j].FusedScore
	})

	return boosted, all
}

// boundedSearch wraps one similarity-search call with the configured timeout
// and maps any failure to zero results. Retry policy belongs to the
// transport layer, never here.
func (p *Pipeline) boundedSearch(ctx context.Context, req *engine.SearchRequest, logger *slog.Logger) []engine.Candidate {
	searchCtx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	defer cancel()

	results, err := p.search.Search(searchCtx, req)
	if err != nil {
		logger.WarnContext(ctx, "Similarity search failed, treating as empty",
			"market", req.Market,
			"error", err,
		)
		p.metrics.IncSearchError()
		return nil
	}
	return results
}

// findAlternatives runs the two-tier cross-market search. The name-based
// strict tier is attempted first because exact-name matching is the more
// defensible basis for a "cheaper elsewhere" claim; the embedding pool from
// the initial query is the fallback for noisy scraped names.
func (p *Pipeline) findAlternatives(ctx context.Context, best engine.Candidate, allResults []engine.Candidate, logger *slog.Logger) ([]engine.Alternative, AlternativeSource) {
	nameResults := p.boundedSearch(ctx, &engine.SearchRequest{
		Text:  best.Name,
		Limit: p.cfg.AllMarketsLimit,
	}, logger)

	exactPool := make([]engine.Candidate, 0, len(nameResults))
	for _, cand := range nameResults {
		if p.matcher.Classify(best.Name, cand) == match.ClassExact {
			exactPool = append(exactPool, cand)
		}
	}

	if len(exactPool) > 0 {
		alts := p.matcher.FindAlternatives(best.Name, best.Brand, best.Market, best.Price, exactPool)
		for i := range alts {
			alts[i].ExactMatch = true
		}
		return alts, SourceExactName
	}

	return p.matcher.FindAlternatives(best.Name, best.Brand, best.Market, best.Price, allResults), SourceEmbedding
}

// synthesize produces the recommendation text, preferring the prose service
// and falling back to the deterministic template. The pipeline never fails
// because phrasing failed.
func (p *Pipeline) synthesize(ctx context.Context, best engine.Candidate, verdict *engine.BudgetVerdict, alternatives []engine.Alternative, budgetAmount float64, logger *slog.Logger) (string, bool) {
	if p.phrase == nil {
		return templateRecommendation(best, verdict, alternatives, budgetAmount), true
	}

	phraseCtx, cancel := context.WithTimeout(ctx, p.cfg.PhraseTimeout)
	defer cancel()

	text, err := p.phrase.Phrase(phraseCtx, decisionFacts(best, verdict, alternatives, budgetAmount))
	if err != nil || text == "" {
		if err != nil {
			logger.WarnContext(ctx, "Prose generation failed, using template", "error", err)
		}
		p.metrics.IncPhraseError()
		return templateRecommendation(best, verdict, alternatives, budgetAmount), true
	}

	return text, false
}
