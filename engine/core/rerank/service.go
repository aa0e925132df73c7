// Package rerank fuses embedding similarity with textual, brand, category and
// price signals into a single relevance score per candidate.
package rerank

import (
	"sort"
	"strings"

	"github.com/hrygo/shopsense/engine"
	"github.com/hrygo/shopsense/engine/internal/strutil"
)

// Fusion weights and multipliers. The multipliers are deliberately
// asymmetric: a category mismatch between two detected categories halves the
// score to suppress false positives across dissimilar product types.
const (
	substringTextScore = 0.9
	jaccardBase        = 0.7
	jaccardWeight      = 0.3
	jaccardFloor       = 0.3

	embedWeight = 0.6
	textWeight  = 0.4

	brandBoost      = 1.20
	categoryBoost   = 1.10
	categoryPenalty = 0.50
	priceBandBoost  = 1.05
	preferredBoost  = 1.15
)

// Preferences carries the caller's per-request ranking preferences.
type Preferences struct {
	Brands []string
}

func (p *Preferences) prefers(brand string) bool {
	if p == nil || brand == "" {
		return false
	}
	lower := strings.ToLower(brand)
	for _, b := range p.Brands {
		if strings.ToLower(b) == lower {
			return true
		}
	}
	return false
}

// Service recomputes fused relevance scores over a candidate list.
// It is a pure function of its inputs aside from the static vocabulary.
type Service struct {
	vocab *Vocabulary
}

// NewService creates a reranker with the given vocabulary. A nil vocabulary
// falls back to the compiled-in defaults.
func NewService(vocab *Vocabulary) *Service {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Service{vocab: vocab}
}

// Rerank returns new candidates with FusedScore populated, sorted descending
// by fused score. Ties retain embedding-search order (stable sort). The input
// slice is never mutated. Malformed candidates degrade individual sub-signals
// to zero contribution; the stage never fails outright.
func (s *Service) Rerank(candidates []engine.Candidate, recognizedText string, prefs *Preferences) []engine.Candidate {
	detectedBrand := s.vocab.DetectBrand(recognizedText)
	detectedCategory := s.vocab.DetectCategory(recognizedText)

	out := make([]engine.Candidate, 0, len(candidates))
	for _, c := range candidates {
		fused := float64(c.Score)

		if recognizedText != "" {
			textScore := s.textScore(recognizedText, c)
			fused = embedWeight*fused + textWeight*textScore
		}

		if detectedBrand != "" && strings.EqualFold(detectedBrand, c.Brand) {
			fused *= brandBoost
		}

		if detectedCategory != "" && c.Category != "" {
			if strings.EqualFold(detectedCategory, c.Category) {
				fused *= categoryBoost
			} else {
				fused *= categoryPenalty
			}
		}

		if s.vocab.InPriceBand(c.Price) {
			fused *= priceBandBoost
		}

		if prefs.prefers(c.Brand) {
			fused *= preferredBoost
		}

		out = append(out, c.WithFusedScore(clamp01(fused)))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].FusedScore > *out[j].FusedScore
	})

	return out
}

// textScore measures how well the recognized text matches the candidate's
// name, description and brand. Tiers, in priority order: exact substring
// containment, token-set Jaccard overlap, generic edit ratio.
func (s *Service) textScore(recognizedText string, c engine.Candidate) float64 {
	target := strings.ToLower(strings.TrimSpace(c.Name + " " + c.Description + " " + c.Brand))
	if target == "" {
		return 0
	}

	query := strings.ToLower(strings.TrimSpace(recognizedText))
	if strings.Contains(target, query) {
		return substringTextScore
	}

	if j := strutil.Jaccard(query, target); j > jaccardFloor {
		return jaccardBase + jaccardWeight*j
	}

	return strutil.EditRatio(query, target)
}

func clamp01(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
