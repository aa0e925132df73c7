// Package match finds the same physical product across retail catalogs with
// inconsistent naming and ranks cheaper equivalents by savings.
package match

import (
	"sort"
	"strings"

	"github.com/hrygo/shopsense/engine"
	"github.com/hrygo/shopsense/engine/internal/strutil"
)

// Config holds the matcher's tunable constants. The similarity threshold is
// the single most important knob: too low produces false "same product"
// claims across unrelated items, too high misses legitimate matches from
// naming drift between retailers. The exact-match constants were tuned
// independently and should be recalibrated empirically rather than trusted.
type Config struct {
	// SimilarityThreshold classifies a pool candidate as a true
	// alternative when the normalized-name similarity meets it.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// BrandBoost is added to the similarity when the reference brand is a
	// substring of the candidate brand.
	BrandBoost float64 `yaml:"brand_boost"`

	// ExactWordOverlap is the minimum token overlap (on words longer than
	// MinWordLength runes) required for an exact-match classification.
	ExactWordOverlap float64 `yaml:"exact_word_overlap"`

	// ExactEmbedSimilarity is the minimum embedding similarity required
	// for an exact-match classification.
	ExactEmbedSimilarity float32 `yaml:"exact_embed_similarity"`

	// SimilarEmbedSimilarity is the minimum embedding similarity for the
	// weaker "similar" classification. Similar matches are deliberately
	// withheld from user-facing savings claims.
	SimilarEmbedSimilarity float32 `yaml:"similar_embed_similarity"`

	// MinWordLength is the token length cutoff for the word-overlap check.
	MinWordLength int `yaml:"min_word_length"`
}

// DefaultConfig returns the baseline matcher constants.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    0.70,
		BrandBoost:             0.20,
		ExactWordOverlap:       0.60,
		ExactEmbedSimilarity:   0.75,
		SimilarEmbedSimilarity: 0.70,
		MinWordLength:          3,
	}
}

// Class is the strict-mode classification of a cross-market pairing.
type Class int

const (
	// ClassNone means the pairing is not the same product.
	ClassNone Class = iota
	// ClassSimilar means related but not confidently the same product.
	ClassSimilar
	// ClassExact means confidently the same physical product.
	ClassExact
)

// String returns the classification name.
func (c Class) String() string {
	switch c {
	case ClassExact:
		return "exact"
	case ClassSimilar:
		return "similar"
	default:
		return "none"
	}
}

// Matcher compares one product against candidate pools from other catalogs.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a Matcher. Zero-valued config fields fall back to the
// defaults so a partially specified configuration never disables matching.
func NewMatcher(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.BrandBoost <= 0 {
		cfg.BrandBoost = def.BrandBoost
	}
	if cfg.ExactWordOverlap <= 0 {
		cfg.ExactWordOverlap = def.ExactWordOverlap
	}
	if cfg.ExactEmbedSimilarity <= 0 {
		cfg.ExactEmbedSimilarity = def.ExactEmbedSimilarity
	}
	if cfg.SimilarEmbedSimilarity <= 0 {
		cfg.SimilarEmbedSimilarity = def.SimilarEmbedSimilarity
	}
	if cfg.MinWordLength <= 0 {
		cfg.MinWordLength = def.MinWordLength
	}
	return &Matcher{cfg: cfg}
}

// Config returns the active matcher configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// FindAlternatives finds cheaper equivalents of the reference product in a
// pool of candidates from other catalogs. Pool candidates from currentMarket
// are skipped: a product is never compared to itself in the same catalog.
// Results are sorted by (brand match desc, price asc, similarity desc) —
// price is the primary tie-break once brand-matched items are preferred,
// because the matcher exists for savings discovery, not semantic search.
func (m *Matcher) FindAlternatives(name, brand, currentMarket string, currentPrice float64, pool []engine.Candidate) []engine.Alternative {
	refNorm := NormalizeName(name)
	if refNorm == "" || currentPrice <= 0 {
		return nil
	}

	out := make([]engine.Alternative, 0, len(pool))
	for _, cand := range pool {
		if strings.EqualFold(cand.Market, currentMarket) {
			continue
		}

		sim, brandMatch := m.similarity(refNorm, brand, cand)
		if !m.meetsThreshold(sim) {
			continue
		}
		if cand.Price <= 0 || cand.Price >= currentPrice {
			continue
		}

		savings := currentPrice - cand.Price
		out = append(out, engine.Alternative{
			Candidate:      cand,
			Savings:        savings,
			SavingsPercent: savings / currentPrice * 100,
			Similarity:     float32(sim),
			BrandMatch:     brandMatch,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BrandMatch != b.BrandMatch {
			return a.BrandMatch
		}
		if a.Candidate.Price != b.Candidate.Price {
			return a.Candidate.Price < b.Candidate.Price
		}
		return a.Similarity > b.Similarity
	})

	return out
}

// Classify applies the stricter exact-match rules to one cross-market
// pairing: exact requires both the word-overlap bar and high embedding
// similarity; a high embedding similarity alone is only "similar".
// The candidate's raw search score stands in for embedding similarity.
func (m *Matcher) Classify(referenceName string, cand engine.Candidate) Class {
	overlap := strutil.WordOverlap(NormalizeName(referenceName), NormalizeName(cand.Name), m.cfg.MinWordLength)

	if overlap >= m.cfg.ExactWordOverlap && cand.Score > m.cfg.ExactEmbedSimilarity {
		return ClassExact
	}
	if cand.Score > m.cfg.SimilarEmbedSimilarity {
		return ClassSimilar
	}
	return ClassNone
}

// similarity computes the boosted name similarity for one pool candidate.
func (m *Matcher) similarity(refNorm, refBrand string, cand engine.Candidate) (float64, bool) {
	candNorm := cand.NormalizedName
	if candNorm == "" {
		candNorm = NormalizeName(cand.Name)
	}

	sim := strutil.EditRatio(refNorm, candNorm)

	brandMatch := false
	if refBrand != "" && cand.Brand != "" &&
		strings.Contains(strings.ToLower(cand.Brand), strings.ToLower(refBrand)) {
		brandMatch = true
		sim += m.cfg.BrandBoost
		if sim > 1 {
			sim = 1
		}
	}

	return sim, brandMatch
}

// meetsThreshold reports whether a similarity value classifies as a match.
// Split out so the boundary can be exercised directly in tests.
func (m *Matcher) meetsThreshold(sim float64) bool {
	return sim >= m.cfg.SimilarityThreshold
}
